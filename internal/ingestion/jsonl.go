package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"charm-reso-lab/internal/domain"
)

// maxEventLine bounds a single JSONL event record. Collisions with hundreds
// of candidates stay well under this.
const maxEventLine = 16 * 1024 * 1024

// JSONLSource replays collision events from a stream of JSON objects, one
// per line. It is the batch input of the reduction pipeline. Blank lines
// are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	nextID  int64
	line    int
}

var _ EventSource = (*JSONLSource)(nil)

// NewJSONLSource opens the JSONL events file at path.
func NewJSONLSource(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	s := NewJSONLReader(f)
	s.closer = f
	return s, nil
}

// NewJSONLReader wraps an already-open stream of JSONL events.
func NewJSONLReader(r io.Reader) *JSONLSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	return &JSONLSource{scanner: sc}
}

// Next decodes the next collision event, assigning collision indices in
// file order starting from zero. It returns io.EOF at end of stream.
func (s *JSONLSource) Next(ctx context.Context) (*domain.CollisionEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("read events: %w", err)
			}
			return nil, io.EOF
		}
		s.line++
		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var msg CollisionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode event at line %d: %w", s.line, err)
		}

		ev := msg.Event(s.nextID)
		s.nextID++
		return ev, nil
	}
}

// Close releases the underlying file, if any.
func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
