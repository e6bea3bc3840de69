package client

import (
	"net/url"
	"strconv"
)

// Query accumulates request parameters, skipping zero values.
type Query url.Values

func (q Query) Str(key, value string) Query {
	if value != "" {
		url.Values(q).Set(key, value)
	}
	return q
}

func (q Query) Bool(key string, value *bool) Query {
	if value != nil {
		url.Values(q).Set(key, strconv.FormatBool(*value))
	}
	return q
}

func (q Query) Int(key string, value int) Query {
	if value != 0 {
		url.Values(q).Set(key, strconv.Itoa(value))
	}
	return q
}

func (q Query) Float(key string, value float64) Query {
	if value != 0 {
		url.Values(q).Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
	return q
}

func (q Query) Strings(key string, values []string) Query {
	for _, v := range values {
		url.Values(q).Add(key, v)
	}
	return q
}

// Extra copies free-form parameters not modeled by the options types.
func (q Query) Extra(extra map[string]string) Query {
	for k, v := range extra {
		url.Values(q).Set(k, v)
	}
	return q
}

func (q Query) Values() url.Values {
	return url.Values(q)
}

// BoolPtr returns a pointer to v, for optional flags.
func BoolPtr(v bool) *bool {
	return &v
}
