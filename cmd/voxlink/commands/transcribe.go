package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/listen"
	"github.com/liuscraft/voxlink/pkg/source"
)

var (
	transcribeModel      string
	transcribeDiarize    bool
	transcribeUtterances bool
	transcribeSummarize  bool
	transcribeCallback   string
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <url|file>",
	Short: "Transcribe a recording in one request",
	Long: `Transcribe a hosted recording by URL or upload a local file.

With --callback the request is asynchronous: the request id is printed and
results are delivered to the callback URL.

Examples:
  voxlink transcribe https://example.com/call.wav
  voxlink transcribe call.mp3 --diarize --utterances --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.runTranscribe(cmd.Context(), args[0])
	},
}

func init() {
	transcribeCmd.Flags().StringVar(&transcribeModel, "model", "", "model override")
	transcribeCmd.Flags().BoolVar(&transcribeDiarize, "diarize", false, "label speakers")
	transcribeCmd.Flags().BoolVar(&transcribeUtterances, "utterances", false, "split into utterances")
	transcribeCmd.Flags().BoolVar(&transcribeSummarize, "summarize", false, "add a summary")
	transcribeCmd.Flags().StringVar(&transcribeCallback, "callback", "", "deliver results to this URL")
}

func (a *app) runTranscribe(ctx context.Context, target string) error {
	opts, err := a.clientOptions()
	if err != nil {
		return err
	}
	rc, err := listen.NewRESTClient(opts)
	if err != nil {
		return err
	}

	params := listen.PrerecordedOptions{
		Model:       a.cfg.Listen.Model,
		Language:    a.cfg.Listen.Language,
		SmartFormat: client.BoolPtr(a.cfg.Listen.SmartFormat),
		Punctuate:   client.BoolPtr(a.cfg.Listen.Punctuate),
	}
	if transcribeModel != "" {
		params.Model = transcribeModel
	}
	if transcribeDiarize {
		params.Diarize = client.BoolPtr(true)
	}
	if transcribeUtterances {
		params.Utterances = client.BoolPtr(true)
	}
	if transcribeSummarize {
		params.Summarize = "v2"
	}

	var src source.Source
	if isURL(target) {
		src = source.FromURL(target)
	} else {
		src, err = source.FromFile(target)
		if err != nil {
			return err
		}
	}

	if transcribeCallback != "" {
		var async *listen.AsyncResponse
		if src.Kind == source.KindURL {
			async, err = rc.TranscribeURLCallback(ctx, src, transcribeCallback, params)
		} else {
			async, err = rc.TranscribeFileCallback(ctx, src, transcribeCallback, params)
		}
		if err != nil {
			return err
		}
		a.logger.Info("transcription accepted", zap.String("request_id", async.RequestID))
		if outputJSON {
			return printJSON(async)
		}
		fmt.Println(async.RequestID)
		return nil
	}

	var resp *listen.PrerecordedResponse
	if src.Kind == source.KindURL {
		resp, err = rc.TranscribeURL(ctx, src, params)
	} else {
		resp, err = rc.TranscribeFile(ctx, src, params)
	}
	if err != nil {
		return err
	}
	a.logger.Info("transcription complete",
		zap.String("request_id", resp.Metadata.RequestID),
		zap.Float64("duration", resp.Metadata.Duration))

	if outputJSON {
		return printJSON(resp)
	}
	if len(resp.Results.Utterances) > 0 {
		for _, u := range resp.Results.Utterances {
			speaker := ""
			if u.Speaker != nil {
				speaker = fmt.Sprintf("speaker %d: ", *u.Speaker)
			}
			fmt.Printf("[%7.2fs] %s%s\n", u.Start, speaker, u.Transcript)
		}
	} else {
		fmt.Println(resp.Transcript())
	}
	if s := resp.Results.Summary; s != nil && s.Short != "" {
		fmt.Printf("\nSummary: %s\n", s.Short)
	}
	return nil
}
