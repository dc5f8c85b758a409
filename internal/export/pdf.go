package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/erazemk/shramba/internal/model"
)

const (
	lineHeight = 6.0
	margin     = 15.0
)

// Column widths in mm on A4 portrait.
var widths = []float64{60, 25, 95}

// WritePDF renders items as a single table with a repeated header row.
func WritePDF(w io.Writer, items []model.Item) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - margin

	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		for i, title := range header {
			pdf.CellFormat(widths[i], lineHeight+2, title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	drawHeader()

	for _, item := range items {
		cells := row(item)
		lines := make([][]string, len(cells))
		height := lineHeight
		for i, cell := range cells {
			lines[i] = pdf.SplitText(tr(cell), widths[i]-2)
			if len(lines[i]) == 0 {
				lines[i] = []string{""}
			}
			if h := float64(len(lines[i])) * lineHeight; h > height {
				height = h
			}
		}

		if pdf.GetY()+height > bottom {
			pdf.AddPage()
			drawHeader()
		}

		x, y := pdf.GetXY()
		for i := range cells {
			pdf.Rect(x, y, widths[i], height, "D")
			for j, line := range lines[i] {
				pdf.SetXY(x+1, y+float64(j)*lineHeight)
				pdf.CellFormat(widths[i]-2, lineHeight, line, "", 0, "L", false, 0, "")
			}
			x += widths[i]
		}
		pdf.SetXY(margin, y+height)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	return nil
}
