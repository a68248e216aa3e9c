package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// ErrNoData means the page has no product info block and is not a product.
var ErrNoData = errors.New("no product data on page")

// ExtractionError reports an expected element missing from a detail page.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract %s: element not found", e.Field)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Fields scraped from the free-text info panel.
const (
	FieldLength   = "length"
	FieldDiameter = "diameter"
	FieldSize     = "size"
)

// ProductRules locate the fields of a product detail page.
type ProductRules struct {
	InfoBlock string `mapstructure:"info_block"`
	Photo     string `mapstructure:"photo"`
	Heading   string `mapstructure:"heading"`
	InfoPanel string `mapstructure:"info_panel"`
	Rows      string `mapstructure:"rows"`

	// Zero-based td indexes within a listing row.
	TypeCell  int `mapstructure:"type_cell"`
	PriceCell int `mapstructure:"price_cell"`
	BuyCell   int `mapstructure:"buy_cell"`

	PriceElement string `mapstructure:"price_element"`
	BuyControl   string `mapstructure:"buy_control"`

	// Labels maps FieldLength, FieldDiameter and FieldSize to their prefixes.
	Labels map[string]string `mapstructure:"labels"`

	Currency     string `mapstructure:"currency"`
	ImageBaseURL string `mapstructure:"image_base_url"`
}

// DefaultProductRules describe hacico.de product pages.
func DefaultProductRules() ProductRules {
	return ProductRules{
		InfoBlock:    ".product_info_box",
		Photo:        ".product_info_box_middle_left img",
		Heading:      ".product_info_box_middle_left h1",
		InfoPanel:    ".product_info_box_middle_right > div > div",
		Rows:         "tr.tableListingI",
		TypeCell:     3,
		PriceCell:    6,
		BuyCell:      10,
		PriceElement: "b",
		BuyControl:   "input",
		Labels: map[string]string{
			FieldLength:   "Länge in cm:",
			FieldDiameter: "Durchmesser in cm:",
			FieldSize:     "Fabrikformat:",
		},
		Currency:     "EUR",
		ImageBaseURL: "https://www.hacico.de/",
	}
}

// ExtractedFields is one purchasable row of a detail page before numeric
// normalization.
type ExtractedFields struct {
	Name       string
	Type       string
	PriceRaw   string
	LengthCm   string
	DiameterCm string
	SizeLabel  string
	ImageURL   string
	InStock    bool
}

// ProductExtractor turns a product detail page into records.
type ProductExtractor struct {
	rules  ProductRules
	labels *LabelParser
}

func NewProductExtractor(rules ProductRules) *ProductExtractor {
	return &ProductExtractor{
		rules:  rules,
		labels: NewLabelParser(rules.Labels),
	}
}

// Extract returns one ExtractedFields per listing row that has a purchase
// control. Rows without one are not currently purchasable and yield
// nothing. A page without the info block fails with ErrNoData.
func (e *ProductExtractor) Extract(doc *goquery.Document) ([]ExtractedFields, error) {
	info := doc.Find(e.rules.InfoBlock).First()
	if info.Length() == 0 {
		return nil, ErrNoData
	}

	heading := info.Find(e.rules.Heading).First()
	if heading.Length() == 0 {
		return nil, &ExtractionError{Field: "title"}
	}
	name := strings.TrimSpace(heading.Text())

	src, ok := info.Find(e.rules.Photo).First().Attr("src")
	if !ok {
		return nil, &ExtractionError{Field: "image"}
	}
	image := prefixBase(e.rules.ImageBaseURL, strings.TrimSpace(src))

	panel, err := outerHTML(info.Find(e.rules.InfoPanel))
	if err != nil {
		return nil, &ExtractionError{Field: "info panel", Err: err}
	}
	values := e.labels.Parse(panel)

	var fields []ExtractedFields
	var rowErr error
	doc.Find(e.rules.Rows).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		last := max(e.rules.TypeCell, e.rules.PriceCell, e.rules.BuyCell)
		if cells.Length() <= last {
			rowErr = &ExtractionError{Field: fmt.Sprintf("row %d", i), Err: fmt.Errorf("%d cells, want more than %d", cells.Length(), last)}
			return false
		}

		if cells.Eq(e.rules.BuyCell).Find(e.rules.BuyControl).Length() == 0 {
			return true
		}

		price := cells.Eq(e.rules.PriceCell).Find(e.rules.PriceElement).First()
		if price.Length() == 0 {
			rowErr = &ExtractionError{Field: fmt.Sprintf("row %d price", i)}
			return false
		}

		fields = append(fields, ExtractedFields{
			Name:       name,
			Type:       strings.TrimSpace(cells.Eq(e.rules.TypeCell).Text()),
			PriceRaw:   price.Text(),
			LengthCm:   values[FieldLength],
			DiameterCm: values[FieldDiameter],
			SizeLabel:  values[FieldSize],
			ImageURL:   image,
			InStock:    true,
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return fields, nil
}

// Record normalizes extracted fields into an output record.
func (e *ProductExtractor) Record(f ExtractedFields, pageURL, country string) (plugin.Record, error) {
	raw := f.PriceRaw
	if e.rules.Currency != "" {
		raw = strings.ReplaceAll(raw, e.rules.Currency, "")
	}
	price, err := NormalizeNumber(raw)
	if err != nil {
		return plugin.Record{}, err
	}
	if price < 0 {
		return plugin.Record{}, &FormatError{Input: f.PriceRaw}
	}

	length, err := optionalInches(f.LengthCm)
	if err != nil {
		return plugin.Record{}, err
	}
	diameter, err := optionalInches(f.DiameterCm)
	if err != nil {
		return plugin.Record{}, err
	}

	return plugin.Record{
		Title:    f.Name,
		Type:     f.Type,
		Price:    price,
		InStock:  f.InStock,
		Image:    f.ImageURL,
		Size:     f.SizeLabel,
		Length:   length,
		Diameter: diameter,
		URL:      pageURL,
		Country:  country,
	}, nil
}

func optionalInches(cm string) (float64, error) {
	if strings.TrimSpace(cm) == "" {
		return 0, nil
	}
	v, err := NormalizeNumber(cm)
	if err != nil {
		return 0, err
	}
	return CentimetersToInches(v), nil
}

func outerHTML(s *goquery.Selection) (string, error) {
	var b strings.Builder
	var err error
	s.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		var h string
		h, err = goquery.OuterHtml(el)
		if err != nil {
			return false
		}
		b.WriteString(h)
		return true
	})
	return b.String(), err
}

// prefixBase joins a site-relative src onto base; absolute URLs pass through.
func prefixBase(base, src string) string {
	if base == "" || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "//") {
		return src
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(src, "/")
}
