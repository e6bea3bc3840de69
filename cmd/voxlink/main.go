// Command voxlink talks to a Deepgram-compatible speech API.
//
// Usage:
//
//	voxlink [flags] <command> [args]
//
// Commands:
//
//	listen      - stream a file or the microphone for live transcription
//	transcribe  - transcribe a URL or file in one request
//	speak       - synthesize speech from text
//	analyze     - summarize and classify text
//
// Configuration is read from config/voxlink.yaml unless --config is set.
// DEEPGRAM_API_KEY overrides the configured key.
package main

import (
	"fmt"
	"os"

	"github.com/liuscraft/voxlink/cmd/voxlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
