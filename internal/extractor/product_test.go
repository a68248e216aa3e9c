package extractor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	typ   string
	price string // empty omits the price element
	buy   bool
}

func listingRow(r row) string {
	cells := make([]string, 11)
	cells[3] = r.typ
	if r.price != "" {
		cells[6] = "<b>" + r.price + "</b>"
	}
	if r.buy {
		cells[10] = `<input type="submit" value="buy">`
	}
	var b strings.Builder
	b.WriteString(`<tr class="tableListingI">`)
	for _, c := range cells {
		fmt.Fprintf(&b, "<td>%s</td>", c)
	}
	b.WriteString("</tr>")
	return b.String()
}

func productPage(name, src, panel string, rows ...row) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="product_info_box">`)
	fmt.Fprintf(&b, `<div class="product_info_box_middle_left"><h1> %s </h1><img src="%s"></div>`, name, src)
	fmt.Fprintf(&b, `<div class="product_info_box_middle_right"><div><div>%s</div></div></div>`, panel)
	b.WriteString(`</div><table>`)
	for _, r := range rows {
		b.WriteString(listingRow(r))
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

func parse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

const robustoPanel = `Fabrikformat: Robusto<br/>Länge in cm: 12,7<br/>Durchmesser in cm: 1,98<br/>`

func TestExtract(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())
	doc := parse(t, productPage("Royal Seleccion", "images/royal.jpg", robustoPanel,
		row{typ: "Box of 25", price: "312,50 EUR", buy: true},
		row{typ: "Single", price: "12,50 EUR", buy: false},
		row{typ: "Box of 10", price: "1.250,00 EUR", buy: true},
	))

	fields, err := e.Extract(doc)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, ExtractedFields{
		Name:       "Royal Seleccion",
		Type:       "Box of 25",
		PriceRaw:   "312,50 EUR",
		LengthCm:   "12,7",
		DiameterCm: "1,98",
		SizeLabel:  "Robusto",
		ImageURL:   "https://www.hacico.de/images/royal.jpg",
		InStock:    true,
	}, fields[0])
	assert.Equal(t, "Box of 10", fields[1].Type)
	assert.Equal(t, "1.250,00 EUR", fields[1].PriceRaw)
}

func TestExtractErrors(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())

	t.Run("no info block", func(t *testing.T) {
		_, err := e.Extract(parse(t, `<html><body><p>category overview</p></body></html>`))
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("missing image", func(t *testing.T) {
		markup := `<div class="product_info_box"><div class="product_info_box_middle_left"><h1>X</h1></div></div>`
		_, err := e.Extract(parse(t, markup))
		var ee *ExtractionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "image", ee.Field)
	})

	t.Run("short row", func(t *testing.T) {
		markup := strings.Replace(productPage("X", "x.jpg", robustoPanel), "</table>",
			`<tr class="tableListingI"><td>only</td></tr></table>`, 1)
		_, err := e.Extract(parse(t, markup))
		var ee *ExtractionError
		assert.ErrorAs(t, err, &ee)
	})

	t.Run("purchasable row without price", func(t *testing.T) {
		_, err := e.Extract(parse(t, productPage("X", "x.jpg", robustoPanel, row{typ: "Box", buy: true})))
		var ee *ExtractionError
		assert.ErrorAs(t, err, &ee)
	})
}

func TestExtractNothingPurchasable(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())
	doc := parse(t, productPage("Royal Seleccion", "r.jpg", robustoPanel, row{typ: "Box", price: "10,00 EUR"}))

	fields, err := e.Extract(doc)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestExtractWithoutPanelLabels(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())
	doc := parse(t, productPage("Royal Seleccion", "https://cdn.test/r.jpg", "no measurements",
		row{typ: "Box", price: "10,00 EUR", buy: true}))

	fields, err := e.Extract(doc)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Empty(t, fields[0].LengthCm)
	assert.Empty(t, fields[0].SizeLabel)
	assert.Equal(t, "https://cdn.test/r.jpg", fields[0].ImageURL)
}

func TestRecord(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())
	f := ExtractedFields{
		Name:       "Royal Seleccion",
		Type:       "Box of 25",
		PriceRaw:   "1.250,00 EUR",
		LengthCm:   "12,7",
		DiameterCm: "1,98",
		SizeLabel:  "Robusto",
		ImageURL:   "https://www.hacico.de/r.jpg",
		InStock:    true,
	}

	r, err := e.Record(f, "https://www.hacico.de/p/royal", "Cuba")
	require.NoError(t, err)
	assert.Equal(t, 1250.0, r.Price)
	assert.Equal(t, 5.0, r.Length)
	assert.Equal(t, 0.78, r.Diameter)
	assert.Equal(t, "Robusto", r.Size)
	assert.Equal(t, "Cuba", r.Country)
	assert.Equal(t, "https://www.hacico.de/p/royal", r.URL)
	assert.True(t, r.InStock)
}

func TestRecordFormatErrors(t *testing.T) {
	e := NewProductExtractor(DefaultProductRules())

	tests := []struct {
		name string
		f    ExtractedFields
	}{
		{name: "price", f: ExtractedFields{PriceRaw: "on request"}},
		{name: "negative price", f: ExtractedFields{PriceRaw: "-5,00 EUR"}},
		{name: "length", f: ExtractedFields{PriceRaw: "5,00 EUR", LengthCm: "long"}},
		{name: "diameter", f: ExtractedFields{PriceRaw: "5,00 EUR", DiameterCm: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Record(tt.f, "u", "c")
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
		})
	}
}

func TestPrefixBase(t *testing.T) {
	assert.Equal(t, "https://www.hacico.de/images/a.jpg", prefixBase("https://www.hacico.de/", "/images/a.jpg"))
	assert.Equal(t, "https://www.hacico.de/images/a.jpg", prefixBase("https://www.hacico.de", "images/a.jpg"))
	assert.Equal(t, "http://cdn.test/a.jpg", prefixBase("https://www.hacico.de/", "http://cdn.test/a.jpg"))
	assert.Equal(t, "a.jpg", prefixBase("", "a.jpg"))
}
