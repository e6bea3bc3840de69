package analyze

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/source"
)

const readBody = `{
  "metadata": {"request_id": "rd-1", "language": "en"},
  "results": {
    "summary": {"text": "A short conversation."},
    "topics": {"segments": [{"text": "t", "start_word": 0, "end_word": 5, "topics": [{"topic": "weather", "confidence_score": 0.8}]}]},
    "sentiments": {"segments": [], "average": {"sentiment": "positive", "sentiment_score": 0.6}}
  }
}`

func newServer(t *testing.T, wantBody map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/read", r.URL.Path)
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "true", r.URL.Query().Get("summarize"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, wantBody, body)
		_, _ = io.WriteString(w, readBody)
	}))
}

func TestClient_Analyze(t *testing.T) {
	opts := Options{Language: "en", Summarize: client.BoolPtr(true)}

	tests := []struct {
		name     string
		src      source.Source
		call     func(c *Client, ctx context.Context, src source.Source, opts Options) (*Response, error)
		wantBody map[string]string
	}{
		{"url", source.FromURL("https://example.com/doc.txt"), (*Client).AnalyzeURL, map[string]string{"url": "https://example.com/doc.txt"}},
		{"text", source.FromText("Hello there."), (*Client).AnalyzeText, map[string]string{"text": "Hello there."}},
		{"buffer", source.FromBuffer([]byte("From a file.")), (*Client).AnalyzeBuffer, map[string]string{"text": "From a file."}},
		{"stream", source.FromStream(strings.NewReader("Streamed.")), (*Client).AnalyzeBuffer, map[string]string{"text": "Streamed."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.wantBody)
			defer srv.Close()

			c, err := NewClient(client.Options{APIKey: "k", Host: srv.URL})
			require.NoError(t, err)
			resp, err := tt.call(c, context.Background(), tt.src, opts)
			require.NoError(t, err)
			assert.Equal(t, "A short conversation.", resp.Summary())
			assert.Equal(t, "rd-1", resp.Metadata.RequestID)
			require.NotNil(t, resp.Results.Topics)
			assert.Equal(t, "weather", resp.Results.Topics.Segments[0].Topics[0].Topic)
			require.NotNil(t, resp.Results.Sentiments)
			assert.Equal(t, "positive", resp.Results.Sentiments.Average.Sentiment)
			assert.Nil(t, resp.Results.Intents)
		})
	}
}

func TestClient_WrongSource(t *testing.T) {
	c, err := NewClient(client.Options{APIKey: "k", Host: "http://127.0.0.1:1"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.AnalyzeURL(ctx, source.FromText("x"), Options{})
	assert.ErrorIs(t, err, client.ErrUnknownSource)
	_, err = c.AnalyzeText(ctx, source.FromURL("https://x"), Options{})
	assert.ErrorIs(t, err, client.ErrUnknownSource)
	_, err = c.AnalyzeBuffer(ctx, source.FromText("x"), Options{})
	assert.ErrorIs(t, err, client.ErrUnknownSource)
}

func TestClient_Callback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://cb.example.com", r.URL.Query().Get("callback"))
		_, _ = io.WriteString(w, `{"request_id":"async-9"}`)
	}))
	defer srv.Close()

	c, err := NewClient(client.Options{APIKey: "k", Host: srv.URL})
	require.NoError(t, err)
	resp, err := c.AnalyzeText(context.Background(), source.FromText("hi"), Options{Callback: "https://cb.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "async-9", resp.RequestID)
	assert.Empty(t, resp.Summary())
}

func TestOptions_Query(t *testing.T) {
	q := Options{CustomTopics: []string{"a", "b"}, CustomTopicMode: "strict", Intents: client.BoolPtr(false)}.Query()
	assert.Equal(t, []string{"a", "b"}, q["custom_topic"])
	assert.Equal(t, "strict", q.Get("custom_topic_mode"))
	assert.Equal(t, "false", q.Get("intents"))
	assert.False(t, q.Has("summarize"))
}
