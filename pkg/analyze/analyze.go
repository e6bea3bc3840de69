// Package analyze runs text intelligence (summaries, topics, intents and
// sentiment) over text or a URL.
package analyze

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/source"
)

const path = "v1/read"

type Options struct {
	Language         string
	Summarize        *bool
	Topics           *bool
	Intents          *bool
	Sentiment        *bool
	CustomTopics     []string
	CustomTopicMode  string
	CustomIntents    []string
	CustomIntentMode string
	// Callback makes the request asynchronous; only Response.RequestID is
	// set.
	Callback       string
	CallbackMethod string
	Extra          map[string]string
}

func (o Options) Query() url.Values {
	return client.Query{}.
		Str("language", o.Language).
		Bool("summarize", o.Summarize).
		Bool("topics", o.Topics).
		Bool("intents", o.Intents).
		Bool("sentiment", o.Sentiment).
		Strings("custom_topic", o.CustomTopics).
		Str("custom_topic_mode", o.CustomTopicMode).
		Strings("custom_intent", o.CustomIntents).
		Str("custom_intent_mode", o.CustomIntentMode).
		Str("callback", o.Callback).
		Str("callback_method", o.CallbackMethod).
		Extra(o.Extra).
		Values()
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Created   string `json:"created"`
	Language  string `json:"language"`
}

type Topic struct {
	Topic           string  `json:"topic"`
	ConfidenceScore float64 `json:"confidence_score"`
}

type Intent struct {
	Intent          string  `json:"intent"`
	ConfidenceScore float64 `json:"confidence_score"`
}

type Segment struct {
	Text           string   `json:"text"`
	StartWord      int      `json:"start_word"`
	EndWord        int      `json:"end_word"`
	Topics         []Topic  `json:"topics,omitempty"`
	Intents        []Intent `json:"intents,omitempty"`
	Sentiment      string   `json:"sentiment,omitempty"`
	SentimentScore float64  `json:"sentiment_score,omitempty"`
}

type Results struct {
	Summary *struct {
		Text string `json:"text"`
	} `json:"summary,omitempty"`
	Topics *struct {
		Segments []Segment `json:"segments"`
	} `json:"topics,omitempty"`
	Intents *struct {
		Segments []Segment `json:"segments"`
	} `json:"intents,omitempty"`
	Sentiments *struct {
		Segments []Segment `json:"segments"`
		Average  struct {
			Sentiment      string  `json:"sentiment"`
			SentimentScore float64 `json:"sentiment_score"`
		} `json:"average"`
	} `json:"sentiments,omitempty"`
}

type Response struct {
	// RequestID is set on asynchronous (callback) responses.
	RequestID string   `json:"request_id,omitempty"`
	Metadata  Metadata `json:"metadata"`
	Results   Results  `json:"results"`
}

// Summary returns the summary text, or "" when none was requested.
func (r *Response) Summary() string {
	if r.Results.Summary == nil {
		return ""
	}
	return r.Results.Summary.Text
}

type Client struct {
	opts   client.Options
	logger *zap.Logger
}

func NewClient(opts client.Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		opts:   opts,
		logger: opts.Log().With(zap.String("component", "analyze")),
	}, nil
}

func (c *Client) AnalyzeURL(ctx context.Context, src source.Source, opts Options) (*Response, error) {
	if src.Kind != source.KindURL {
		return nil, fmt.Errorf("analyze url: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	return c.analyze(ctx, map[string]string{"url": src.URL}, opts)
}

func (c *Client) AnalyzeText(ctx context.Context, src source.Source, opts Options) (*Response, error) {
	if src.Kind != source.KindText {
		return nil, fmt.Errorf("analyze text: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	return c.analyze(ctx, map[string]string{"text": src.Text}, opts)
}

// AnalyzeBuffer analyzes the text held by a buffer or stream source.
func (c *Client) AnalyzeBuffer(ctx context.Context, src source.Source, opts Options) (*Response, error) {
	r, ok := src.Reader()
	if !ok {
		return nil, fmt.Errorf("analyze buffer: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return c.analyze(ctx, map[string]string{"text": string(data)}, opts)
}

func (c *Client) analyze(ctx context.Context, body map[string]string, opts Options) (*Response, error) {
	resp, err := client.DoJSON(ctx, c.opts, path, opts.Query(), body)
	if err != nil {
		return nil, err
	}
	out, err := client.DecodeJSON[Response](resp)
	if err != nil {
		return nil, err
	}
	requestID := out.Metadata.RequestID
	if requestID == "" {
		requestID = out.RequestID
	}
	c.logger.Info("analysis finished", zap.String("request_id", requestID))
	return out, nil
}
