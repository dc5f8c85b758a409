package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/model"
)

var pantry = []model.Item{
	{ID: "a", Name: "Rice", Quantity: 3, Description: "long grain, white", Image: "/api/blobs/x"},
	{ID: "b", Name: "Čokolada", Quantity: 1, Description: `dark "70%"`},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, pantry))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Name", "Quantity", "Description"},
		{"Rice", "3", "long grain, white"},
		{"Čokolada", "1", `dark "70%"`},
	}, records)
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	assert.Equal(t, "Name,Quantity,Description\n", buf.String())
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, pantry))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFManyPages(t *testing.T) {
	items := make([]model.Item, 120)
	for i := range items {
		items[i] = model.Item{Name: fmt.Sprintf("Item %d", i), Quantity: i + 1, Description: "a fairly long description that wraps onto a second line of the table cell"}
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, items))
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("/Type /Page\n")), 1)
}

func TestParse(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	s, err := ParseScope("filtered")
	require.NoError(t, err)
	assert.Equal(t, ScopeFiltered, s)

	_, err = ParseScope("some")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "inventory_all.csv", FileName(FormatCSV, ScopeAll))
	assert.Equal(t, "inventory_filtered.csv", FileName(FormatCSV, ScopeFiltered))
	assert.Equal(t, "inventory.pdf", FileName(FormatPDF, ScopeFiltered))
}
