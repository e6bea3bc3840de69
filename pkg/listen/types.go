package listen

import "fmt"

type Word struct {
	Word           string  `json:"word"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
	PunctuatedWord string  `json:"punctuated_word,omitempty"`
	Speaker        *int    `json:"speaker,omitempty"`
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

type ModelInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Arch    string `json:"arch"`
}

// LiveResult is one "Results" message of a live session.
type LiveResult struct {
	Type         string  `json:"type"`
	ChannelIndex []int   `json:"channel_index"`
	Duration     float64 `json:"duration"`
	Start        float64 `json:"start"`
	IsFinal      bool    `json:"is_final"`
	SpeechFinal  bool    `json:"speech_final"`
	FromFinalize bool    `json:"from_finalize"`
	Channel      struct {
		Alternatives []Alternative `json:"alternatives"`
	} `json:"channel"`
	Metadata struct {
		RequestID string    `json:"request_id"`
		ModelInfo ModelInfo `json:"model_info"`
		ModelUUID string    `json:"model_uuid"`
	} `json:"metadata"`
}

// Transcript returns the top alternative, or "" when there is none.
func (r *LiveResult) Transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return r.Channel.Alternatives[0].Transcript
}

type Metadata struct {
	Type           string               `json:"type"`
	TransactionKey string               `json:"transaction_key"`
	RequestID      string               `json:"request_id"`
	SHA256         string               `json:"sha256"`
	Created        string               `json:"created"`
	Duration       float64              `json:"duration"`
	Channels       int                  `json:"channels"`
	Models         []string             `json:"models"`
	ModelInfo      map[string]ModelInfo `json:"model_info"`
}

type SpeechStarted struct {
	Type      string  `json:"type"`
	Channel   []int   `json:"channel"`
	Timestamp float64 `json:"timestamp"`
}

type UtteranceEnd struct {
	Type        string  `json:"type"`
	Channel     []int   `json:"channel"`
	LastWordEnd float64 `json:"last_word_end"`
}

// ErrorResponse is an error or warning message sent during a live session.
type ErrorResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
	Variant     string `json:"variant"`
}

func (e *ErrorResponse) Error() string {
	msg := e.Description
	if msg == "" {
		msg = e.Message
	}
	if e.Variant != "" {
		return fmt.Sprintf("%s (%s)", msg, e.Variant)
	}
	return msg
}

type Utterance struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Channel    int     `json:"channel"`
	Transcript string  `json:"transcript"`
	Words      []Word  `json:"words"`
	Speaker    *int    `json:"speaker,omitempty"`
	ID         string  `json:"id"`
}

type Summary struct {
	Result string `json:"result"`
	Short  string `json:"short"`
}

type PrerecordedMetadata struct {
	TransactionKey string               `json:"transaction_key"`
	RequestID      string               `json:"request_id"`
	SHA256         string               `json:"sha256"`
	Created        string               `json:"created"`
	Duration       float64              `json:"duration"`
	Channels       int                  `json:"channels"`
	Models         []string             `json:"models"`
	ModelInfo      map[string]ModelInfo `json:"model_info"`
}

type PrerecordedChannel struct {
	Alternatives     []Alternative `json:"alternatives"`
	DetectedLanguage string        `json:"detected_language,omitempty"`
}

type PrerecordedResponse struct {
	Metadata PrerecordedMetadata `json:"metadata"`
	Results  struct {
		Channels   []PrerecordedChannel `json:"channels"`
		Utterances []Utterance          `json:"utterances,omitempty"`
		Summary    *Summary             `json:"summary,omitempty"`
	} `json:"results"`
}

// Transcript returns the top alternative of the first channel.
func (r *PrerecordedResponse) Transcript() string {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return r.Results.Channels[0].Alternatives[0].Transcript
}

// AsyncResponse acknowledges a callback request.
type AsyncResponse struct {
	RequestID string `json:"request_id"`
}
