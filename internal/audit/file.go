package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

var _ types.RecordSink = (*FileSink)(nil)

// FileSink appends audit records to a file, one JSON object per line
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewFileSink opens path for appending, creating parent directories as needed
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if e := os.MkdirAll(dir, 0o755); e != nil {
			return nil, e
		}
	}

	f, e := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if e != nil {
		return nil, e
	}

	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one record as a JSON line
func (s *FileSink) Write(r types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(r)
}

// Close flushes and closes the underlying file
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
