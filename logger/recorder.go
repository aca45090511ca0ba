package logger

import (
	"slices"
	"sync"
)

// Entry is one record captured by a Recorder.
type Entry struct {
	Level  Level
	Msg    string
	Fields []any
}

// Field returns the value logged under key and whether it was present.
func (e Entry) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			return e.Fields[i+1], true
		}
	}

	return nil, false
}

type recorderStore struct {
	mu      sync.Mutex
	entries []Entry
}

// Recorder is a Logger that keeps its records in memory, for tests.
// Fatal is recorded and does not exit.
type Recorder struct {
	store  *recorderStore
	fields []any
	level  Level
}

var _ Logger = (*Recorder)(nil)

// NewRecorder creates a Recorder that captures every level.
func NewRecorder() *Recorder {
	return &Recorder{store: &recorderStore{}, level: DebugLevel}
}

func (r *Recorder) Debug(msg string, keysAndValues ...any) { r.record(DebugLevel, msg, keysAndValues) }
func (r *Recorder) Info(msg string, keysAndValues ...any)  { r.record(InfoLevel, msg, keysAndValues) }
func (r *Recorder) Warn(msg string, keysAndValues ...any)  { r.record(WarnLevel, msg, keysAndValues) }
func (r *Recorder) Error(msg string, keysAndValues ...any) { r.record(ErrorLevel, msg, keysAndValues) }
func (r *Recorder) Fatal(msg string, keysAndValues ...any) { r.record(FatalLevel, msg, keysAndValues) }

// With returns a child sharing the parent's records.
func (r *Recorder) With(keyValues ...any) Logger {
	return &Recorder{
		store:  r.store,
		fields: append(slices.Clip(r.fields), keyValues...),
		level:  r.level,
	}
}

func (r *Recorder) Level() Level { return r.level }

func (r *Recorder) SetLevel(level Level) { r.level = level }

// Entries returns the captured records in order.
func (r *Recorder) Entries() []Entry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return slices.Clone(r.store.entries)
}

// Messages returns the captured messages at level or above.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level >= level {
			out = append(out, e.Msg)
		}
	}

	return out
}

func (r *Recorder) record(level Level, msg string, kv []any) {
	if level < r.level {
		return
	}

	fields := make([]any, 0, len(r.fields)+len(kv))
	fields = append(fields, r.fields...)
	fields = append(fields, kv...)

	r.store.mu.Lock()
	r.store.entries = append(r.store.entries, Entry{Level: level, Msg: msg, Fields: fields})
	r.store.mu.Unlock()
}
