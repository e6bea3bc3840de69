// Package client holds the account-level settings shared by every provider
// client: credentials, endpoint host, HTTP plumbing and the API error types.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/liuscraft/voxlink/pkg/live"
	"github.com/liuscraft/voxlink/pkg/transport"
)

const (
	DefaultHost = "api.deepgram.com"
	userAgent   = "voxlink-go/1.0"
)

var ErrAPIKeyRequired = errors.New("client: API key is required")

// Options configures access to the provider.
type Options struct {
	APIKey string
	// Host is a bare host ("api.deepgram.com") or a URL with a scheme.
	// http:// and ws:// hosts disable TLS for both REST and streaming.
	Host string
	// Headers are added to every request and handshake.
	Headers http.Header

	HTTPClient *http.Client
	Dialer     transport.Dialer
	Logger     *zap.Logger
	Hooks      live.Hooks
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return ErrAPIKeyRequired
	}
	return nil
}

func (o Options) HTTP() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

func (o Options) Log() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// Header returns the authentication and identification headers.
func (o Options) Header() http.Header {
	h := http.Header{}
	for k, vs := range o.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	h.Set("Authorization", "Token "+o.APIKey)
	h.Set("User-Agent", userAgent)
	return h
}

func (o Options) RESTURL(path string, query url.Values) (string, error) {
	return o.endpoint(false, path, query)
}

func (o Options) WSURL(path string, query url.Values) (string, error) {
	return o.endpoint(true, path, query)
}

func (o Options) endpoint(stream bool, path string, query url.Values) (string, error) {
	host := strings.TrimSpace(o.Host)
	if host == "" {
		host = DefaultHost
	}

	secure := true
	if i := strings.Index(host, "://"); i >= 0 {
		switch strings.ToLower(host[:i]) {
		case "http", "ws":
			secure = false
		case "https", "wss":
		default:
			return "", fmt.Errorf("client: unsupported scheme in host %q", o.Host)
		}
		host = host[i+3:]
	}
	host = strings.TrimRight(host, "/")

	scheme := "https"
	switch {
	case stream && secure:
		scheme = "wss"
	case stream:
		scheme = "ws"
	case !secure:
		scheme = "http"
	}

	u := url.URL{Scheme: scheme, Host: host, Path: "/" + strings.TrimLeft(path, "/")}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// ConnOptions returns the live.Conn options carried by o.
func (o Options) ConnOptions() []live.Option {
	opts := []live.Option{live.WithLogger(o.Log())}
	if o.Dialer != nil {
		opts = append(opts, live.WithDialer(o.Dialer))
	}
	if o.Hooks != nil {
		opts = append(opts, live.WithHooks(o.Hooks))
	}
	return opts
}
