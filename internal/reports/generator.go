package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/fdg312/nutricart/internal/cart"
	"github.com/fdg312/nutricart/internal/nutrition"
	"github.com/fdg312/nutricart/internal/suggest"
	"github.com/jung-kurt/gofpdf"
)

// Content is everything a report shows about one cart.
type Content struct {
	Profile     nutrition.UserProfile
	State       suggest.State
	Target      nutrition.Vector
	Aggregate   cart.Aggregate
	Suggestion  *suggest.Suggestion // nil when not requested
	GeneratedAt time.Time
}

// Generate renders c in the given format.
func Generate(c Content, format string) ([]byte, error) {
	switch format {
	case FormatPDF:
		return generatePDF(c)
	case FormatCSV:
		return generateCSV(c)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// csvHeader: section,code,name,quantity + one column per nutrient
var csvHeader = []string{
	"section", "code", "name", "quantity",
	"proteins", "fats", "carbohydrates", "calories", "cholesterol", "sugars",
}

// generateCSV writes one row per cart item followed by total, target, unknown
// codes and the optional suggestion.
func generateCSV(c Content) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{csvHeader}

	units := 0
	for _, row := range c.Aggregate.Matrix {
		units += row.Quantity
		rows = append(rows, withNutrients(
			[]string{"item", strconv.Itoa(row.Code), row.Name, strconv.Itoa(row.Quantity)},
			row.Nutrients.Scale(float64(row.Quantity)),
		))
	}
	rows = append(rows, withNutrients([]string{"total", "", "", strconv.Itoa(units)}, c.Aggregate.Total))
	rows = append(rows, withNutrients([]string{"target", "", "", ""}, c.Target))
	rows = append(rows, []string{"state", "", c.State.String(), "", "", "", "", "", "", ""})

	for _, code := range c.Aggregate.Unknown {
		rows = append(rows, []string{"unknown", strconv.Itoa(code), "", "", "", "", "", "", "", ""})
	}

	if c.Suggestion != nil {
		section := suggestionSection(c.Suggestion.Kind)
		for _, it := range c.Suggestion.Items {
			rows = append(rows, []string{section, strconv.Itoa(it.Code), it.Name, strconv.Itoa(it.Quantity), "", "", "", "", "", ""})
		}
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func withNutrients(prefix []string, v nutrition.Vector) []string {
	row := make([]string, 0, len(prefix)+nutrition.Count)
	row = append(row, prefix...)
	for _, x := range v {
		row = append(row, strconv.FormatFloat(x, 'f', 2, 64))
	}
	return row
}

func suggestionSection(kind suggest.Kind) string {
	switch kind {
	case suggest.KindRemove:
		return "remove"
	case suggest.KindAdd:
		return "add"
	}
	return "none"
}

// generatePDF renders an A4 page with the profile, a nutrient table and the
// suggestion. Core fonts only cover cp1252, so text goes through the
// translator; characters outside it are dropped by gofpdf.
func generatePDF(c Content) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Cart nutrition report", true)
	pdf.SetCreator("nutricart", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Cart nutrition report")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Generated: "+c.GeneratedAt.UTC().Format(time.RFC3339))
	pdf.Ln(6)
	p := c.Profile
	pdf.Cell(0, 6, tr(fmt.Sprintf("Profile: %s, %.1f kg, %.1f cm, %d years, %d day(s), diet %s",
		p.Gender, p.WeightKg, p.HeightCm, p.AgeYears, p.Days, dietLabel(p.Diet))))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Cart state: "+c.State.String())
	pdf.Ln(10)

	drawItemsTable(pdf, tr, c)

	if len(c.Aggregate.Unknown) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 6, fmt.Sprintf("Unknown product codes (ignored): %v", c.Aggregate.Unknown))
		pdf.Ln(6)
	}

	if c.Suggestion != nil {
		drawSuggestion(pdf, tr, *c.Suggestion)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func drawItemsTable(pdf *gofpdf.Fpdf, tr func(string) string, c Content) {
	const (
		nameW = 52.0
		qtyW  = 12.0
		numW  = 21.0
		rowH  = 6.0
	)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(nameW, rowH, "Product", "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyW, rowH, "Qty", "1", 0, "C", true, 0, "")
	for i, name := range nutrition.Names {
		ln := 0
		if i == nutrition.Count-1 {
			ln = 1
		}
		pdf.CellFormat(numW, rowH, name, "1", ln, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	line := func(label, qty string, v nutrition.Vector, fill bool) {
		pdf.CellFormat(nameW, rowH, label, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(qtyW, rowH, qty, "1", 0, "C", fill, 0, "")
		for i, x := range v {
			ln := 0
			if i == nutrition.Count-1 {
				ln = 1
			}
			pdf.CellFormat(numW, rowH, strconv.FormatFloat(x, 'f', 2, 64), "1", ln, "R", fill, 0, "")
		}
	}

	for _, row := range c.Aggregate.Matrix {
		line(tr(truncate(row.Name, 32)), strconv.Itoa(row.Quantity), row.Nutrients.Scale(float64(row.Quantity)), false)
	}

	pdf.SetFont("Helvetica", "B", 8)
	line("Total", "", c.Aggregate.Total, true)
	line("Target", "", c.Target, true)
}

func drawSuggestion(pdf *gofpdf.Fpdf, tr func(string) string, s suggest.Suggestion) {
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Suggestion: "+s.Desc)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 9)
	if len(s.Items) == 0 {
		pdf.Cell(0, 6, "The cart needs no changes.")
		pdf.Ln(6)
		return
	}
	verb := "Add"
	if s.Kind == suggest.KindRemove {
		verb = "Remove"
	}
	for _, it := range s.Items {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s %d x %s (code %d)", verb, it.Quantity, it.Name, it.Code)))
		pdf.Ln(5)
	}
}

func dietLabel(diet string) string {
	if diet == "" {
		return nutrition.DietAny
	}
	return diet
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
