// Package render turns bills into printable PDFs and terminal cards.
package render

import (
	"fmt"
	"io"

	"github.com/bher20/ebillmanager/internal/storage"
	"github.com/jung-kurt/gofpdf"
)

const dateLayout = "02 Jan 2006"

// WritePDF writes a one-page A4 bill to w.
func WritePDF(w io.Writer, b *storage.Bill) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Electricity Bill "+b.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Electricity Bill", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Bill ID: "+b.ID, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	for _, row := range [][2]string{
		{"Consumer", b.HouseholdName},
		{"Service Number", b.ServiceNumber},
		{"House Number", b.HouseNumber},
		{"Address", b.Address},
		{"Connection", b.ConnectionType},
		{"Bill Date", b.CreatedAt.Format(dateLayout)},
		{"Due Date", b.DueDate.Format(dateLayout)},
		{"Status", string(b.Status)},
	} {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, h := range []struct {
		text  string
		width float64
	}{{"Slab", 50}, {"Units", 40}, {"Rate", 40}, {"Amount", 50}} {
		pdf.CellFormat(h.width, 8, h.text, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 11)
	if len(b.Breakdown) == 0 && b.MinimumChargeApplied {
		pdf.CellFormat(130, 8, "Minimum charge", "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, b.CurrentCharge.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	for _, s := range b.Breakdown {
		pdf.CellFormat(50, 8, s.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, s.Units.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, s.Rate.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 8, s.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	for _, row := range [][2]string{
		{"Units consumed", b.Units.String()},
		{"Current charge", b.CurrentCharge.StringFixed(2)},
		{"Fine", b.FineAmount.StringFixed(2)},
		{"Previous dues", b.PreviousDues.StringFixed(2)},
	} {
		pdf.CellFormat(130, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, row[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(130, 9, "Total payable", "T", 0, "R", false, 0, "")
	pdf.CellFormat(50, 9, b.TotalAmount.StringFixed(2), "T", 1, "R", false, 0, "")

	if b.PaidAt != nil {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "Paid on "+b.PaidAt.Format(dateLayout), "", 1, "R", false, 0, "")
	}
	if b.Note != "" {
		pdf.Ln(2)
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, "Note: "+b.Note, "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
