package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EntryType classifies a weighbridge transaction. Fixed at creation.
type EntryType string

const (
	EntryTypePurchase EntryType = "purchase"
	EntryTypeSale     EntryType = "sale"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	return t == EntryTypePurchase || t == EntryTypeSale
}

// PalletteType tells how sale goods leave the plant.
type PalletteType string

const (
	PalletteNone   PalletteType = ""
	PalletteLoose  PalletteType = "loose"
	PallettePacked PalletteType = "packed"
)

// Entry mirrors one weighbridge transaction as the entries service returns it.
// Phase-2 and server-computed fields are pointers: nil means "not recorded yet".
type Entry struct {
	ID          string    `json:"id"`
	EntryNumber string    `json:"entryNumber,omitempty"`
	EntryType   EntryType `json:"entryType"`
	Vendor      Ref       `json:"vendor"`
	Vehicle     Ref       `json:"vehicle"`
	Plant       *Ref      `json:"plant,omitempty"`
	DriverName  string    `json:"driverName"`
	DriverPhone string    `json:"driverPhone,omitempty"`

	// Phase 1
	EntryWeight  float64   `json:"entryWeight"`
	EntryDate    time.Time `json:"entryDate"`
	MaterialType *Ref      `json:"materialType,omitempty"`
	ManualWeight bool      `json:"manualWeight"`

	// Phase 2
	ExitWeight   *float64     `json:"exitWeight,omitempty"`
	ExitDate     *time.Time   `json:"exitDate,omitempty"`
	Moisture     *float64     `json:"moisture,omitempty"`
	Dust         *float64     `json:"dust,omitempty"`
	PalletteType PalletteType `json:"palletteType,omitempty"`
	NoOfBags     *int         `json:"noOfBags,omitempty"`
	WeightPerBag *float64     `json:"weightPerBag,omitempty"`
	PackedWeight *float64     `json:"packedWeight,omitempty"`

	// Computed by the entries service, read-only here
	VarianceFlag   *bool    `json:"varianceFlag,omitempty"`
	FinalWeight    *float64 `json:"finalWeight,omitempty"`
	ComputedWeight *float64 `json:"computedWeight,omitempty"`
	IsReviewed     bool     `json:"isReviewed"`
	Flagged        bool     `json:"flagged"`
	FlagReason     string   `json:"flagReason,omitempty"`
	ReviewNotes    string   `json:"reviewNotes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON also accepts the document-store "_id" key for the entry id.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type Alias Entry
	aux := struct {
		*Alias
		DocID string `json:"_id"`
	}{Alias: (*Alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = aux.DocID
	}
	return nil
}

// HasExit reports whether a positive exit weight is on record.
func (e *Entry) HasExit() bool {
	return e.ExitWeight != nil && *e.ExitWeight > 0
}

// KnownEntryWeight returns the entry weight and whether it is a usable positive number.
func (e *Entry) KnownEntryWeight() (float64, bool) {
	return e.EntryWeight, e.EntryWeight > 0
}

// VarianceFailed reports whether the server flagged a weight variance.
func (e *Entry) VarianceFailed() bool {
	return e.VarianceFlag != nil && *e.VarianceFlag
}

// NetWeight is the absolute difference between the two weighments, 0 without an exit.
func (e *Entry) NetWeight() float64 {
	if !e.HasExit() {
		return 0
	}
	d := e.EntryWeight - *e.ExitWeight
	if d < 0 {
		d = -d
	}
	return d
}

// ErrInvalidEntry is wrapped by every Validate failure.
var ErrInvalidEntry = errors.New("invalid entry")

// Validate checks the invariants every accepted entry must satisfy.
func (e *Entry) Validate() error {
	if !e.EntryType.Valid() {
		return fmt.Errorf("%w: unknown entry type %q", ErrInvalidEntry, e.EntryType)
	}
	if e.EntryWeight <= 0 {
		return fmt.Errorf("%w: entryWeight must be > 0", ErrInvalidEntry)
	}
	if e.EntryType == EntryTypePurchase && (e.MaterialType == nil || e.MaterialType.IsZero()) {
		return fmt.Errorf("%w: purchase without materialType", ErrInvalidEntry)
	}
	if e.EntryType == EntryTypeSale && e.MaterialType != nil && !e.MaterialType.IsZero() {
		return fmt.Errorf("%w: sale with materialType", ErrInvalidEntry)
	}
	if e.ExitWeight != nil {
		exit := *e.ExitWeight
		switch e.EntryType {
		case EntryTypeSale:
			if exit < e.EntryWeight {
				return fmt.Errorf("%w: sale exitWeight %.2f below entryWeight %.2f", ErrInvalidEntry, exit, e.EntryWeight)
			}
		case EntryTypePurchase:
			if e.EntryWeight < exit {
				return fmt.Errorf("%w: purchase entryWeight %.2f below exitWeight %.2f", ErrInvalidEntry, e.EntryWeight, exit)
			}
		}
	}
	for name, v := range map[string]*float64{"moisture": e.Moisture, "dust": e.Dust} {
		if v != nil && (*v < 0 || *v > 100) {
			return fmt.Errorf("%w: %s %.2f outside 0..100", ErrInvalidEntry, name, *v)
		}
	}
	if e.PalletteType == PallettePacked {
		if e.NoOfBags == nil || *e.NoOfBags <= 0 || e.WeightPerBag == nil || *e.WeightPerBag <= 0 {
			return fmt.Errorf("%w: packed pallette without bags", ErrInvalidEntry)
		}
	}
	return nil
}
