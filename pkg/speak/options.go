package speak

import (
	"net/url"

	"github.com/liuscraft/voxlink/pkg/client"
)

// Options are the query parameters of a synthesis request.
type Options struct {
	Model      string
	Encoding   string
	Container  string
	SampleRate int
	BitRate    int
	// Callback and CallbackMethod only apply to REST requests.
	Callback       string
	CallbackMethod string
	Extra          map[string]string
}

func (o Options) Query() url.Values {
	return client.Query{}.
		Str("model", o.Model).
		Str("encoding", o.Encoding).
		Str("container", o.Container).
		Int("sample_rate", o.SampleRate).
		Int("bit_rate", o.BitRate).
		Str("callback", o.Callback).
		Str("callback_method", o.CallbackMethod).
		Extra(o.Extra).
		Values()
}
