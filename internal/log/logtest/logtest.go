// Package logtest records slog output in memory so tests can assert on it.
package logtest

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Entry is a flattened slog record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder is a slog.Handler keeping every record it handles. It is safe
// for concurrent use; handlers derived with WithAttrs share the same store.
type Recorder struct {
	store *store
	attrs []slog.Attr
	group string
}

type store struct {
	mx      sync.Mutex
	entries []Entry
}

func New() *Recorder {
	return &Recorder{store: &store{}}
}

// Logger returns a logger backed by r.
func (r *Recorder) Logger() *slog.Logger {
	return slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool {
	return true
}

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{
		Level:   rec.Level,
		Message: rec.Message,
		Attrs:   make(map[string]any, rec.NumAttrs()+len(r.attrs)),
	}
	for _, a := range r.attrs {
		e.Attrs[r.key(a.Key)] = a.Value.Resolve().Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[r.key(a.Key)] = a.Value.Resolve().Any()
		return true
	})

	r.store.mx.Lock()
	defer r.store.mx.Unlock()
	r.store.entries = append(r.store.entries, e)
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := *r
	ret.attrs = append(slices.Clone(r.attrs), attrs...)
	return &ret
}

func (r *Recorder) WithGroup(name string) slog.Handler {
	ret := *r
	ret.group = r.key(name)
	return &ret
}

func (r *Recorder) key(k string) string {
	if r.group == "" {
		return k
	}
	return r.group + "." + k
}

// Entries returns a snapshot of all records handled so far.
func (r *Recorder) Entries() []Entry {
	r.store.mx.Lock()
	defer r.store.mx.Unlock()
	return slices.Clone(r.store.entries)
}

// Messages returns the entries with the given message.
func (r *Recorder) Messages(msg string) []Entry {
	var ret []Entry
	for _, e := range r.Entries() {
		if e.Message == msg {
			ret = append(ret, e)
		}
	}
	return ret
}

// Strings returns the string value of attribute key for every entry with
// the given message.
func (r *Recorder) Strings(msg, key string) []string {
	var ret []string
	for _, e := range r.Messages(msg) {
		if s, ok := e.Attrs[key].(string); ok {
			ret = append(ret, s)
		}
	}
	return ret
}
