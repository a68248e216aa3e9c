package crawler

import (
	"errors"

	"github.com/ramkansal/hacico-crawler/internal/extractor"
	"github.com/ramkansal/hacico-crawler/internal/fetcher"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// SkipReason tags why a product produced no records.
type SkipReason string

const (
	SkipNone           SkipReason = ""
	SkipFetch          SkipReason = "fetch"
	SkipNoData         SkipReason = "no_data"
	SkipExtraction     SkipReason = "extraction"
	SkipFormat         SkipReason = "format"
	SkipFiltered       SkipReason = "filtered"
	SkipNotPurchasable SkipReason = "not_purchasable"
)

// Outcome is the result of processing one product detail page: either
// records to write or a skip reason, never both.
type Outcome struct {
	URL     string
	Records []plugin.Record
	Skip    SkipReason
	Err     error
}

func (o Outcome) Skipped() bool { return o.Skip != SkipNone }

func skip(url string, reason SkipReason, err error) Outcome {
	return Outcome{URL: url, Skip: reason, Err: err}
}

// classify maps a product-level error onto its skip reason.
func classify(err error) SkipReason {
	var (
		fetchErr  *fetcher.FetchError
		formatErr *extractor.FormatError
	)
	switch {
	case errors.As(err, &fetchErr):
		return SkipFetch
	case errors.Is(err, extractor.ErrNoData):
		return SkipNoData
	case errors.As(err, &formatErr):
		return SkipFormat
	default:
		return SkipExtraction
	}
}
