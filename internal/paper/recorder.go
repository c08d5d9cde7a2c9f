package paper

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"tickbot-go/internal/execution"
)

// Recorders fans every fill out to each recorder in order.
type Recorders []FillRecorder

// Record forwards fill to every recorder.
func (rs Recorders) Record(fill execution.Fill) {
	for _, r := range rs {
		r.Record(fill)
	}
}

// JSONLRecorder appends fills as JSON lines; LoadFills reads them back.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single fill to the underlying JSONL file.
func (r *JSONLRecorder) Record(fill execution.Fill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return
	}
	_ = r.enc.Encode(fill)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// LoadFills reads a JSONL fills file written by JSONLRecorder.
func LoadFills(path string) ([]execution.Fill, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var fills []execution.Fill
	dec := json.NewDecoder(file)
	for {
		var fill execution.Fill
		if err := dec.Decode(&fill); err != nil {
			if errors.Is(err, io.EOF) {
				return fills, nil
			}
			return fills, fmt.Errorf("fills %s line %d: %w", path, len(fills)+1, err)
		}
		fills = append(fills, fill)
	}
}
