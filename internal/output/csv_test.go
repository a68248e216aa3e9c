package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

func sampleRecord() plugin.Record {
	return plugin.Record{
		Title:    "Royal Seleccion",
		Type:     "Box of 25",
		Price:    312.5,
		InStock:  true,
		Image:    "https://www.hacico.de/images/royal.jpg",
		Size:     "Robusto",
		Length:   5,
		Diameter: 0.78,
		URL:      "https://www.hacico.de/en/royal",
		Country:  "Cuba",
	}
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, []string{
		"Royal Seleccion",
		"Box of 25",
		"312.5",
		"true",
		"https://www.hacico.de/images/royal.jpg",
		"Robusto",
		"5",
		"0.78",
		"https://www.hacico.de/en/royal",
		"Cuba",
	}, FormatRecord(sampleRecord()))
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSVSink(&buf)

	require.NoError(t, s.WriteHeader(plugin.RecordFields))
	r := sampleRecord()
	r.Title = `Hoyo "Epicure", No. 2`
	require.NoError(t, s.WriteRecord(r))
	require.NoError(t, s.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "title,type,price,in_stock,image,size,length,diameter,url,country", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Hoyo ""Epicure"", No. 2",Box of 25,312.5,true,`))
	assert.Equal(t, "csv", s.Name())
}

func TestCreateCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	s, err := CreateCSVFile(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteHeader(plugin.RecordFields))
	require.NoError(t, s.WriteRecord(sampleRecord()))

	// rows are flushed before Close
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Royal Seleccion,Box of 25,312.5")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestCreateCSVFileBadPath(t *testing.T) {
	_, err := CreateCSVFile(filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.Error(t, err)
}
