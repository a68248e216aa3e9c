package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/ramkansal/hacico-crawler/internal/extractor"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// CSVSink writes records as comma-separated rows under a header line.
// Every row is flushed immediately so an interrupted crawl keeps its output.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	mu     sync.Mutex
}

// NewCSVSink writes to w. The caller keeps ownership of w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// CreateCSVFile truncates or creates path and writes to it.
func CreateCSVFile(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv output: %w", err)
	}
	s := NewCSVSink(f)
	s.closer = f
	return s, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) WriteHeader(fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(fields)
}

func (s *CSVSink) WriteRecord(record plugin.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(FormatRecord(record))
}

func (s *CSVSink) write(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
		s.closer = nil
	}
	return err
}

// ---------- helpers ----------

// FormatRecord renders a record in plugin.RecordFields order.
func FormatRecord(r plugin.Record) []string {
	return []string{
		r.Title,
		r.Type,
		formatDecimal(r.Price),
		strconv.FormatBool(r.InStock),
		r.Image,
		r.Size,
		formatDecimal(r.Length),
		formatDecimal(r.Diameter),
		r.URL,
		r.Country,
	}
}

// formatDecimal prints at most two fractional digits, dropping trailing zeros.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(extractor.Round2(v), 'f', -1, 64)
}
