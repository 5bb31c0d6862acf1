package printer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

func completedPurchase() models.Entry {
	exit, moisture, dust, final := 950.0, 12.0, 4.0, 42.0
	flag := false
	exitDate := time.Date(2026, 10, 18, 11, 0, 0, 0, time.UTC)
	material := models.Expanded("m1", map[string]string{"name": "Rice Husk"})
	return models.Entry{
		ID:           "e1",
		EntryNumber:  "ENT-00001",
		EntryType:    models.EntryTypePurchase,
		Vendor:       models.Expanded("v1", map[string]string{"name": "Shakti Agro"}),
		Vehicle:      models.Expanded("vh1", map[string]string{"vehicleNumber": "MH12AB1234"}),
		MaterialType: &material,
		DriverName:   "Ramesh",
		EntryWeight:  1000,
		EntryDate:    exitDate.Add(-2 * time.Hour),
		ExitWeight:   &exit,
		ExitDate:     &exitDate,
		Moisture:     &moisture,
		Dust:         &dust,
		FinalWeight:  &final,
		VarianceFlag: &flag,
		ManualWeight: true,
	}
}

func TestGenerateSlipPDF(t *testing.T) {
	pdf, err := GenerateSlipPDF(completedPurchase(), SlipOptions{Plant: "Pune Plant", Location: time.UTC})
	if err != nil {
		t.Fatalf("GenerateSlipPDF failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}

func TestGenerateSlipPDF_RequiresExit(t *testing.T) {
	e := completedPurchase()
	e.ExitWeight = nil
	if _, err := GenerateSlipPDF(e, SlipOptions{}); !errors.Is(err, ErrIncomplete) {
		t.Errorf("got %v, want ErrIncomplete", err)
	}
}

func TestSlipRows(t *testing.T) {
	rows := slipRows(completedPurchase(), time.UTC)
	got := map[string]string{}
	for _, r := range rows {
		got[r.label] = r.value
	}

	want := map[string]string{
		"Entry No.":    "ENT-00001",
		"Vehicle":      "MH12AB1234",
		"Entry weight": "1.00 MT",
		"Exit weight":  "950.00 kg",
		"Net weight":   "50.00 kg",
		"Quality":      "70 (Acceptable)",
		"Variance":     "PASS",
		"Exit time":    "18 Oct 2026 11:00",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	bags, perBag := 10, 25.5
	exit := 800.0
	sale := models.Entry{
		ID: "s1", EntryType: models.EntryTypeSale, EntryWeight: 500, ExitWeight: &exit,
		PalletteType: models.PallettePacked, NoOfBags: &bags, WeightPerBag: &perBag,
	}
	for _, r := range slipRows(sale, time.UTC) {
		if r.label == "Packed weight" && !strings.HasPrefix(r.value, "255.00") {
			t.Errorf("packed weight = %q", r.value)
		}
	}
}
