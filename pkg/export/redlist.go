package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/filetrackhq/filetrack-api/internal/models"
)

var redListHeaders = []string{"File Number", "Subject", "Department", "Division", "Holder", "Due Date", "Red-Listed At"}

// RedListReport renders the current red list as CSV or PDF for the admin
// reporting endpoints.
type RedListReport struct {
	GeneratedAt time.Time
	Files       []models.File
}

func (r *RedListReport) rows() [][]string {
	rows := make([][]string, 0, len(r.Files))
	for _, f := range r.Files {
		holder := ""
		if f.AssignedToID != nil {
			holder = *f.AssignedToID
		}
		due := ""
		if f.DueDate != nil {
			due = f.DueDate.UTC().Format("2006-01-02")
		}
		redAt := ""
		if f.RedListedAt != nil {
			redAt = f.RedListedAt.UTC().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{f.FileNumber, f.Subject, f.DepartmentID, f.CurrentDivisionID, holder, due, redAt})
	}
	return rows
}

// CSV renders the report as CSV bytes.
func (r *RedListReport) CSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(redListHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range r.rows() {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PDF renders the report as a tabular PDF document.
func (r *RedListReport) PDF() ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "RED-LISTED FILES", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04")+" UTC, "+strconv.Itoa(len(r.Files))+" file(s)", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(redListHeaders))
	for _, header := range redListHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range r.rows() {
		for _, value := range row {
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
