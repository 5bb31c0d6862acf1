package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/utils"
)

// Sheet names of the entries report.
const (
	SheetEntries = "Entries"
	SheetSummary = "Summary"
)

var entryHeader = []interface{}{
	"Entry No.", "Type", "Entry date", "Vendor", "Vehicle", "Driver", "Material",
	"Entry weight (kg)", "Exit weight (kg)", "Net weight (kg)",
	"Moisture (%)", "Dust (%)", "Quality", "Pallette", "Bags", "Weight/Bag (kg)",
	"Final weight (kg)", "Variance", "Manual weight", "Reviewed",
}

// Summary aggregates a set of entries.
type Summary struct {
	Total, Purchases, Sales  int
	Completed, Open, Flagged int
	PurchaseNetKg, SaleNetKg float64
}

// Summarize counts entries and sums their net weights by type.
func Summarize(entries []models.Entry) Summary {
	var s Summary
	for i := range entries {
		e := &entries[i]
		s.Total++
		switch e.EntryType {
		case models.EntryTypePurchase:
			s.Purchases++
			s.PurchaseNetKg += e.NetWeight()
		case models.EntryTypeSale:
			s.Sales++
			s.SaleNetKg += e.NetWeight()
		}
		if e.HasExit() {
			s.Completed++
		} else {
			s.Open++
		}
		if e.VarianceFailed() {
			s.Flagged++
		}
	}
	return s
}

// EntriesWorkbook renders entries as an .xlsx report with an entries sheet and a summary sheet.
func EntriesWorkbook(entries []models.Entry, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetEntries); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(SheetEntries, "A1", &entryHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetPanes(SheetEntries, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}

	for i := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := entryRow(&entries[i], loc)
		if err := f.SetSheetRow(SheetEntries, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(SheetEntries, "A", "T", 16)

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, err
	}
	s := Summarize(entries)
	summary := [][]interface{}{
		{"Metric", "Value"},
		{"Entries", s.Total},
		{"Purchases", s.Purchases},
		{"Sales", s.Sales},
		{"Completed", s.Completed},
		{"Open", s.Open},
		{"Variance flagged", s.Flagged},
		{"Purchase net weight", utils.FormatWeight(s.PurchaseNetKg)},
		{"Sale net weight", utils.FormatWeight(s.SaleNetKg)},
	}
	for i, r := range summary {
		row := r
		if err := f.SetSheetRow(SheetSummary, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}
	_ = f.SetColWidth(SheetSummary, "A", "B", 22)

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func entryRow(e *models.Entry, loc *time.Location) []interface{} {
	material := ""
	if e.MaterialType != nil {
		material = e.MaterialType.Label()
	}
	quality := ""
	if e.EntryType == models.EntryTypePurchase && e.HasExit() {
		q := utils.QualityFor(e.Moisture, e.Dust)
		quality = fmt.Sprintf("%d %s", q.Score, q.Status)
	}
	variance := ""
	if e.VarianceFlag != nil {
		variance = "pass"
		if *e.VarianceFlag {
			variance = "flagged"
		}
	}
	entryDate := ""
	if !e.EntryDate.IsZero() {
		entryDate = e.EntryDate.In(loc).Format("2006-01-02 15:04")
	}

	return []interface{}{
		e.EntryNumber, string(e.EntryType), entryDate,
		e.Vendor.Label(), e.Vehicle.Label(), e.DriverName, material,
		e.EntryWeight, optFloat(e.ExitWeight), e.NetWeight(),
		optFloat(e.Moisture), optFloat(e.Dust), quality,
		string(e.PalletteType), optInt(e.NoOfBags), optFloat(e.WeightPerBag),
		optFloat(e.FinalWeight), variance, e.ManualWeight, e.IsReviewed,
	}
}

func optFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
