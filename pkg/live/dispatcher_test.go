package live

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_OrderAndIsolation(t *testing.T) {
	var failures []error
	d := NewDispatcher(func(ev Event, err error) { failures = append(failures, err) })

	var calls []string
	d.On(EventResult, func(Event) error {
		calls = append(calls, "first")
		return errors.New("handler error")
	})
	d.On(EventResult, func(Event) error {
		calls = append(calls, "second")
		panic("boom")
	})
	d.On(EventResult, func(Event) error {
		calls = append(calls, "third")
		return nil
	})
	d.On(EventWarning, func(Event) error {
		calls = append(calls, "warning")
		return nil
	})
	d.On(EventResult, nil)

	d.Dispatch(newEvent(EventResult))

	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Len(t, failures, 2)
	assert.Contains(t, failures[1].Error(), "boom")
}

func TestDispatcher_OnAny(t *testing.T) {
	d := NewDispatcher(nil)
	var seen []EventKind
	d.OnAny(func(ev Event) error {
		seen = append(seen, ev.Kind)
		return nil
	})
	for _, kind := range eventKinds {
		d.Dispatch(newEvent(kind))
	}
	assert.Equal(t, eventKinds, seen)
}

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewDispatcher(nil)
	assert.NotPanics(t, func() { d.Dispatch(newEvent(EventClose)) })
}
