// Package speak synthesizes speech from text, as a single REST download or
// over a live session that streams audio back while text is still arriving.
package speak

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/source"
)

const restPath = "v1/speak"

// Response is synthesized audio with the metadata the service returns in
// headers.
type Response struct {
	ContentType string
	RequestID   string
	ModelName   string
	ModelUUID   string
	Characters  int
	Audio       []byte
}

type RESTClient struct {
	opts   client.Options
	logger *zap.Logger
}

func NewRESTClient(opts client.Options) (*RESTClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &RESTClient{
		opts:   opts,
		logger: opts.Log().With(zap.String("component", "speak_rest")),
	}, nil
}

// Stream synthesizes a text source, or text read from a stream source, and
// returns the audio in memory.
func (c *RESTClient) Stream(ctx context.Context, src source.Source, opts Options) (*Response, error) {
	input, err := textOf(src)
	if err != nil {
		return nil, err
	}
	resp, err := client.DoJSON(ctx, c.opts, restPath, opts.Query(), map[string]string{"text": input})
	if err != nil {
		return nil, err
	}

	out := &Response{
		ContentType: resp.Header.Get("Content-Type"),
		RequestID:   resp.Header.Get("dg-request-id"),
		ModelName:   resp.Header.Get("dg-model-name"),
		ModelUUID:   resp.Header.Get("dg-model-uuid"),
		Audio:       resp.Body,
	}
	if chars := resp.Header.Get("dg-char-count"); chars != "" {
		if n, err := strconv.Atoi(chars); err == nil {
			out.Characters = n
		}
	}
	c.logger.Info("speech synthesized",
		zap.String("request_id", out.RequestID),
		zap.Int("characters", out.Characters),
		zap.Int("bytes", len(out.Audio)))
	return out, nil
}

// Save synthesizes src and writes the audio to path.
func (c *RESTClient) Save(ctx context.Context, path string, src source.Source, opts Options) (*Response, error) {
	resp, err := c.Stream(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, resp.Audio, 0o644); err != nil {
		return nil, fmt.Errorf("save audio: %w", err)
	}
	return resp, nil
}

func textOf(src source.Source) (string, error) {
	switch src.Kind {
	case source.KindText:
		return src.Text, nil
	case source.KindStream:
		if src.Stream == nil {
			break
		}
		data, err := io.ReadAll(src.Stream)
		if err != nil {
			return "", fmt.Errorf("read text stream: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", fmt.Errorf("speak: %w: %s", client.ErrUnknownSource, src.Kind)
}
