package printer

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/utils"
)

// ErrIncomplete is returned for entries without a recorded exit weight.
var ErrIncomplete = errors.New("slip needs a recorded exit weight")

// QRPrefix is prepended to the entry id in the slip's QR code.
const QRPrefix = "K2/ENTRY/"

// SlipOptions holds configuration for slip generation
type SlipOptions struct {
	Title    string // defaults to "Weighment Slip"
	Plant    string // printed under the title
	Location *time.Location
}

type row struct {
	label, value string
}

// GenerateSlipPDF renders an A5 weighment slip for a completed entry
func GenerateSlipPDF(e models.Entry, opts SlipOptions) ([]byte, error) {
	if !e.HasExit() {
		return nil, ErrIncomplete
	}
	if opts.Title == "" {
		opts.Title = "Weighment Slip"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	contentW := pageWidth - 20

	// Header
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(contentW, 8, tr(opts.Title), "", 1, "C", false, 0, "")
	if opts.Plant != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(contentW, 5, tr(opts.Plant), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	// QR code top right, same embedding as the label sheets
	qrPng, err := qrcode.Encode(QRPrefix+e.ID, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", imgOptions, bytes.NewReader(qrPng))
	qrSize := 28.0
	pdf.ImageOptions("qr", pageWidth-10-qrSize, pdf.GetY(), qrSize, qrSize, false, imgOptions, 0, "")

	labelW := 38.0
	valueW := contentW - labelW - qrSize - 2
	for i, r := range slipRows(e, opts.Location) {
		w := valueW
		if i > 6 {
			// below the QR code the value column can use the full width
			w = contentW - labelW
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(labelW, 6, tr(r.label), "B", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(w, 6, tr(r.value), "B", 1, "L", false, 0, "")
	}

	if e.ManualWeight {
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(contentW, 5, "Entry weight captured manually (weighbridge offline)", "", 1, "L", false, 0, "")
	}

	// Signature lines
	pdf.SetY(175)
	pdf.SetFont("Arial", "", 8)
	half := contentW / 2
	pdf.CellFormat(half, 5, "Operator", "T", 0, "C", false, 0, "")
	pdf.CellFormat(half, 5, "Driver", "T", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func slipRows(e models.Entry, loc *time.Location) []row {
	number := e.EntryNumber
	if number == "" {
		number = e.ID
	}
	rows := []row{
		{"Entry No.", number},
		{"Type", string(e.EntryType)},
		{"Vendor", e.Vendor.Label()},
		{"Vehicle", e.Vehicle.Label()},
		{"Driver", driver(e)},
		{"Entry weight", utils.FormatWeight(e.EntryWeight)},
		{"Entry time", formatTime(e.EntryDate, loc)},
		{"Exit weight", utils.FormatWeightPtr(e.ExitWeight)},
	}
	if e.ExitDate != nil {
		rows = append(rows, row{"Exit time", formatTime(*e.ExitDate, loc)})
	}
	rows = append(rows, row{"Net weight", utils.FormatWeight(e.NetWeight())})

	switch e.EntryType {
	case models.EntryTypePurchase:
		if e.MaterialType != nil {
			rows = append(rows, row{"Material", e.MaterialType.Label()})
		}
		q := utils.QualityFor(e.Moisture, e.Dust)
		rows = append(rows,
			row{"Moisture", utils.FormatPercent(e.Moisture)},
			row{"Dust", utils.FormatPercent(e.Dust)},
			row{"Quality", fmt.Sprintf("%d (%s)", q.Score, q.Status)},
		)
	case models.EntryTypeSale:
		if e.PalletteType != models.PalletteNone {
			rows = append(rows, row{"Pallette", string(e.PalletteType)})
		}
		if e.PalletteType == models.PallettePacked && e.NoOfBags != nil && e.WeightPerBag != nil {
			packed := float64(*e.NoOfBags) * *e.WeightPerBag
			if e.PackedWeight != nil {
				packed = *e.PackedWeight
			}
			rows = append(rows,
				row{"Bags", fmt.Sprintf("%d x %.2f kg", *e.NoOfBags, *e.WeightPerBag)},
				row{"Packed weight", utils.FormatWeight(packed)},
			)
		}
	}

	if e.FinalWeight != nil {
		rows = append(rows, row{"Final weight", utils.FormatWeight(*e.FinalWeight)})
	}
	if e.VarianceFlag != nil {
		status := "PASS"
		if *e.VarianceFlag {
			status = "FLAGGED"
		}
		rows = append(rows, row{"Variance", status})
	}
	return rows
}

func driver(e models.Entry) string {
	if e.DriverPhone == "" {
		return e.DriverName
	}
	return fmt.Sprintf("%s (%s)", e.DriverName, e.DriverPhone)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("02 Jan 2006 15:04")
}
