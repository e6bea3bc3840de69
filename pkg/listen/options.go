package listen

import (
	"net/url"

	"github.com/liuscraft/voxlink/pkg/client"
)

// LiveOptions are the query parameters of a live transcription session.
type LiveOptions struct {
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
	InterimResults *bool
	Punctuate      *bool
	SmartFormat    *bool
	Diarize        *bool
	Multichannel   *bool
	// Endpointing is "false" or a silence duration in milliseconds.
	Endpointing    string
	UtteranceEndMs int
	VADEvents      *bool
	Keywords       []string
	Tags           []string
	Extra          map[string]string
}

func (o LiveOptions) Query() url.Values {
	return client.Query{}.
		Str("model", o.Model).
		Str("language", o.Language).
		Str("encoding", o.Encoding).
		Int("sample_rate", o.SampleRate).
		Int("channels", o.Channels).
		Bool("interim_results", o.InterimResults).
		Bool("punctuate", o.Punctuate).
		Bool("smart_format", o.SmartFormat).
		Bool("diarize", o.Diarize).
		Bool("multichannel", o.Multichannel).
		Str("endpointing", o.Endpointing).
		Int("utterance_end_ms", o.UtteranceEndMs).
		Bool("vad_events", o.VADEvents).
		Strings("keywords", o.Keywords).
		Strings("tag", o.Tags).
		Extra(o.Extra).
		Values()
}

// PrerecordedOptions are the query parameters of a file transcription.
type PrerecordedOptions struct {
	Model          string
	Language       string
	DetectLanguage *bool
	Punctuate      *bool
	SmartFormat    *bool
	Diarize        *bool
	Paragraphs     *bool
	Utterances     *bool
	Summarize      string
	Topics         *bool
	Intents        *bool
	Sentiment      *bool
	Keywords       []string
	Tags           []string
	// Callback makes the request asynchronous: results are posted to it.
	Callback       string
	CallbackMethod string
	Extra          map[string]string
}

func (o PrerecordedOptions) Query() url.Values {
	return client.Query{}.
		Str("model", o.Model).
		Str("language", o.Language).
		Bool("detect_language", o.DetectLanguage).
		Bool("punctuate", o.Punctuate).
		Bool("smart_format", o.SmartFormat).
		Bool("diarize", o.Diarize).
		Bool("paragraphs", o.Paragraphs).
		Bool("utterances", o.Utterances).
		Str("summarize", o.Summarize).
		Bool("topics", o.Topics).
		Bool("intents", o.Intents).
		Bool("sentiment", o.Sentiment).
		Strings("keywords", o.Keywords).
		Strings("tag", o.Tags).
		Str("callback", o.Callback).
		Str("callback_method", o.CallbackMethod).
		Extra(o.Extra).
		Values()
}
