package listen

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/client"
	"github.com/liuscraft/voxlink/pkg/source"
)

const restPath = "v1/listen"

// RESTClient transcribes prerecorded audio.
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
		logger: opts.Log().With(zap.String("component", "listen_rest")),
	}, nil
}

// TranscribeURL transcribes audio hosted at a URL. When opts.Callback is set
// the request is made asynchronously and the result carries no transcript;
// use TranscribeURLCallback to get the request id.
func (c *RESTClient) TranscribeURL(ctx context.Context, src source.Source, opts PrerecordedOptions) (*PrerecordedResponse, error) {
	if opts.Callback != "" {
		async, err := c.TranscribeURLCallback(ctx, src, opts.Callback, opts)
		if err != nil {
			return nil, err
		}
		resp := &PrerecordedResponse{}
		resp.Metadata.RequestID = async.RequestID
		return resp, nil
	}
	if src.Kind != source.KindURL {
		return nil, fmt.Errorf("transcribe url: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	resp, err := client.DoJSON(ctx, c.opts, restPath, opts.Query(), map[string]string{"url": src.URL})
	if err != nil {
		return nil, err
	}
	out, err := client.DecodeJSON[PrerecordedResponse](resp)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transcribe url succeeded", zap.String("request_id", out.Metadata.RequestID))
	return out, nil
}

func (c *RESTClient) TranscribeURLCallback(ctx context.Context, src source.Source, callback string, opts PrerecordedOptions) (*AsyncResponse, error) {
	if src.Kind != source.KindURL {
		return nil, fmt.Errorf("transcribe url callback: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	opts.Callback = callback
	resp, err := client.DoJSON(ctx, c.opts, restPath, opts.Query(), map[string]string{"url": src.URL})
	if err != nil {
		return nil, err
	}
	return client.DecodeJSON[AsyncResponse](resp)
}

// TranscribeFile uploads a buffer or stream source.
func (c *RESTClient) TranscribeFile(ctx context.Context, src source.Source, opts PrerecordedOptions) (*PrerecordedResponse, error) {
	if opts.Callback != "" {
		async, err := c.TranscribeFileCallback(ctx, src, opts.Callback, opts)
		if err != nil {
			return nil, err
		}
		resp := &PrerecordedResponse{}
		resp.Metadata.RequestID = async.RequestID
		return resp, nil
	}
	resp, err := c.upload(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	out, err := client.DecodeJSON[PrerecordedResponse](resp)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transcribe file succeeded", zap.String("request_id", out.Metadata.RequestID))
	return out, nil
}

func (c *RESTClient) TranscribeFileCallback(ctx context.Context, src source.Source, callback string, opts PrerecordedOptions) (*AsyncResponse, error) {
	opts.Callback = callback
	resp, err := c.upload(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	return client.DecodeJSON[AsyncResponse](resp)
}

func (c *RESTClient) upload(ctx context.Context, src source.Source, opts PrerecordedOptions) (*client.Response, error) {
	body, ok := src.Reader()
	if !ok {
		return nil, fmt.Errorf("transcribe file: %w: %s", client.ErrUnknownSource, src.Kind)
	}
	return client.Do(ctx, c.opts, http.MethodPost, restPath, opts.Query(), body, "application/octet-stream")
}
