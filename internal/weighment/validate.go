package weighment

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// Draft is the phase-1 form as the operator filled it in.
type Draft struct {
	EntryType    string
	Vendor       string
	Vehicle      string
	DriverName   string
	DriverPhone  string
	EntryWeight  string
	MaterialType string
	ManualWeight bool
}

// ValidateDraft checks every creation rule and either returns the payload to
// send or the full set of field errors. Rules do not short-circuit.
func ValidateDraft(d Draft, now time.Time) (models.CreateEntryPayload, FieldErrors) {
	errs := FieldErrors{}

	entryType := models.EntryType(strings.TrimSpace(d.EntryType))
	switch {
	case entryType == "":
		errs["entryType"] = "Entry type is required"
	case !entryType.Valid():
		errs["entryType"] = "Entry type must be purchase or sale"
	}

	vendor := strings.TrimSpace(d.Vendor)
	if vendor == "" {
		errs["vendor"] = "Vendor is required"
	}

	vehicle := strings.TrimSpace(d.Vehicle)
	if vehicle == "" {
		errs["vehicle"] = "Vehicle is required"
	}

	driverName := strings.TrimSpace(d.DriverName)
	if driverName == "" {
		errs["driverName"] = "Driver name is required"
	}

	weight, weightErr := parseEntryWeight(d.EntryWeight)
	if weightErr != "" {
		errs["entryWeight"] = weightErr
	}

	material := strings.TrimSpace(d.MaterialType)
	if entryType == models.EntryTypePurchase && material == "" {
		errs["materialType"] = "Material type is required for purchase entries"
	}

	if len(errs) > 0 {
		return models.CreateEntryPayload{}, errs
	}

	payload := models.CreateEntryPayload{
		EntryType:    entryType,
		Vendor:       vendor,
		Vehicle:      vehicle,
		DriverName:   driverName,
		DriverPhone:  strings.TrimSpace(d.DriverPhone),
		EntryWeight:  weight,
		EntryDate:    now.UTC().Format(models.ISOLayout),
		ManualWeight: d.ManualWeight,
	}
	if entryType == models.EntryTypePurchase {
		payload.MaterialType = material
	}
	return payload, nil
}

func parseEntryWeight(raw string) (float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "Entry weight is required"
	}
	w, ok := parseFinite(raw)
	if !ok || w <= 0 {
		return 0, "Entry weight must be greater than 0"
	}
	return w, ""
}

// parseFinite parses a decimal number, rejecting NaN and infinities.
func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
