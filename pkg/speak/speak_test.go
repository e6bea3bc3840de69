package speak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/live"
	"github.com/liuscraft/voxlink/pkg/source"
)

func restServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speak", r.URL.Path)
		assert.Equal(t, "aura-asteria-en", r.URL.Query().Get("model"))
		assert.Equal(t, "24000", r.URL.Query().Get("sample_rate"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello, world.", body["text"])

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("dg-request-id", "req-7")
		w.Header().Set("dg-model-name", "aura-asteria-en")
		w.Header().Set("dg-char-count", "13")
		_, _ = w.Write([]byte("RIFFdata"))
	}))
}

func TestRESTClient_Stream(t *testing.T) {
	srv := restServer(t)
	defer srv.Close()

	c, err := NewRESTClient(client.Options{APIKey: "k", Host: srv.URL})
	require.NoError(t, err)

	opts := Options{Model: "aura-asteria-en", Encoding: "linear16", SampleRate: 24000}
	for _, src := range []source.Source{
		source.FromText("Hello, world."),
		source.FromStream(strings.NewReader("Hello, world.\n")),
	} {
		resp, err := c.Stream(context.Background(), src, opts)
		require.NoError(t, err)
		assert.Equal(t, "audio/wav", resp.ContentType)
		assert.Equal(t, "req-7", resp.RequestID)
		assert.Equal(t, "aura-asteria-en", resp.ModelName)
		assert.Equal(t, 13, resp.Characters)
		assert.Equal(t, []byte("RIFFdata"), resp.Audio)
	}
}

func TestRESTClient_Save(t *testing.T) {
	srv := restServer(t)
	defer srv.Close()

	c, err := NewRESTClient(client.Options{APIKey: "k", Host: srv.URL})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.wav")
	_, err = c.Save(context.Background(), path, source.FromText("Hello, world."), Options{Model: "aura-asteria-en", SampleRate: 24000})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))
}

func TestRESTClient_UnknownSource(t *testing.T) {
	c, err := NewRESTClient(client.Options{APIKey: "k", Host: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), source.FromURL("https://example.com"), Options{})
	assert.ErrorIs(t, err, client.ErrUnknownSource)
	_, err = c.Stream(context.Background(), source.FromBuffer([]byte("x")), Options{})
	assert.ErrorIs(t, err, client.ErrUnknownSource)
}

func TestAudioPipe(t *testing.T) {
	p := newAudioPipe()
	_, err := p.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = p.Write([]byte("cd"))
	require.NoError(t, err)

	read := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(p)
		read <- data
	}()
	time.Sleep(10 * time.Millisecond)
	_, _ = p.Write([]byte("ef"))
	require.NoError(t, p.Close())

	select {
	case data := <-read:
		assert.Equal(t, "abcdef", string(data))
	case <-time.After(time.Second):
		t.Fatal("reader did not reach EOF")
	}
	_, err = p.Write([]byte("late"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestAudioPipe_CloseWithError(t *testing.T) {
	p := newAudioPipe()
	_, _ = p.Write([]byte("x"))
	boom := assert.AnError
	require.NoError(t, p.CloseWithError(boom))

	buf := make([]byte, 4)
	n, err := p.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = p.Read(buf)
	assert.ErrorIs(t, err, boom)
}

type speakServer struct {
	mu       sync.Mutex
	received []map[string]string
}

func (s *speakServer) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speak", r.URL.Path)
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata","request_id":"sp-1","model_name":"aura"}`))
		flushes := 0
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var msg map[string]string
			if err := json.Unmarshal(data, &msg); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, msg)
			s.mu.Unlock()

			switch msg["type"] {
			case "Speak":
				_ = ws.WriteMessage(websocket.BinaryMessage, []byte("<"+msg["text"]+">"))
			case "Flush":
				_ = ws.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"type":"Flushed","sequence_id":%d}`, flushes)))
				flushes++
			case "Clear":
				_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"Cleared","sequence_id":0}`))
			case "Close":
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	})
}

func (s *speakServer) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.received {
		out = append(out, m["type"])
	}
	return out
}

func TestLiveClient_SpeakSession(t *testing.T) {
	fake := &speakServer{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	c, err := NewLiveClient(client.Options{APIKey: "k", Host: srv.URL}, Options{Model: "aura", Encoding: "linear16"}, live.Options{CloseTimeout: 2 * time.Second})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		flushed  []int
		cleared  int
		metadata *Metadata
	)
	c.OnFlushed(func(f *Flushed) {
		mu.Lock()
		flushed = append(flushed, f.SequenceID)
		mu.Unlock()
	})
	c.OnCleared(func(*Cleared) {
		mu.Lock()
		cleared++
		mu.Unlock()
	})
	c.OnMetadata(func(m *Metadata) {
		mu.Lock()
		metadata = m
		mu.Unlock()
	})
	c.OnError(func(err error) { t.Errorf("unexpected error: %v", err) })

	audio := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(c.AudioReader())
		audio <- data
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.SpeakText(ctx, "**Hello** there. See [docs](https://x.test) now!"))
	require.NoError(t, c.Flush(ctx))
	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.Finish(ctx))

	select {
	case data := <-audio:
		assert.Equal(t, "<Hello there.><See docs now!>", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("audio reader did not finish")
	}

	assert.Equal(t, []string{"Speak", "Speak", "Flush", "Clear", "Close"}, fake.types())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0}, flushed)
	assert.Equal(t, 1, cleared)
	require.NotNil(t, metadata)
	assert.Equal(t, "sp-1", metadata.RequestID)
}

func TestLiveClient_HandshakeFailureClosesAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewLiveClient(client.Options{APIKey: "k", Host: srv.URL}, Options{}, live.Options{})
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, live.ErrConnectionEstablish)

	_, readErr := io.ReadAll(c.AudioReader())
	assert.Error(t, readErr)
}

func TestErrorResponse(t *testing.T) {
	assert.Equal(t, "INVALID: bad text", (&ErrorResponse{Code: "INVALID", Description: "bad text"}).Error())
	assert.Equal(t, "E1: m", (&ErrorResponse{ErrCode: "E1", ErrMsg: "m"}).Error())
	assert.Equal(t, "plain", (&ErrorResponse{Description: "plain"}).Error())
}
