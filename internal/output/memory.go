package output

import (
	"sync"

	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	header  []string
	records []plugin.Record
	closed  bool
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) WriteHeader(fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), fields...)
	return nil
}

func (s *MemorySink) WriteRecord(record plugin.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Header returns the declared columns.
func (s *MemorySink) Header() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.header...)
}

// Records returns a copy of everything written so far.
func (s *MemorySink) Records() []plugin.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]plugin.Record(nil), s.records...)
}

func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
