package models

import (
	"net/url"
	"strconv"
	"time"
)

// CreateEntryPayload is the phase-1 body sent to the entries service.
// MaterialType is only set for purchases.
type CreateEntryPayload struct {
	EntryType    EntryType `json:"entryType"`
	Vendor       string    `json:"vendor"`
	Vehicle      string    `json:"vehicle"`
	DriverName   string    `json:"driverName"`
	DriverPhone  string    `json:"driverPhone"`
	EntryWeight  float64   `json:"entryWeight"`
	EntryDate    string    `json:"entryDate"`
	ManualWeight bool      `json:"manualWeight"`
	MaterialType string    `json:"materialType,omitempty"`
}

// ExitPayload is the phase-2 body sent to the entries service.
// PackedWeight is derived for packed sales and kept off the wire.
type ExitPayload struct {
	ExitWeight   float64      `json:"exitWeight"`
	PalletteType PalletteType `json:"palletteType,omitempty"`
	NoOfBags     *int         `json:"noOfBags,omitempty"`
	WeightPerBag *float64     `json:"weightPerBag,omitempty"`
	Moisture     *float64     `json:"moisture,omitempty"`
	Dust         *float64     `json:"dust,omitempty"`

	PackedWeight *float64 `json:"-"`
}

// EntryQuery filters and pages the entries list.
type EntryQuery struct {
	Search       string
	Page         int
	Limit        int
	EntryType    EntryType
	IsReviewed   *bool
	VarianceFlag *bool
	From         *time.Time
	To           *time.Time
}

// Values encodes the query for the entries endpoint. Zero fields are left out.
func (q EntryQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.EntryType != "" {
		v.Set("entryType", string(q.EntryType))
	}
	if q.IsReviewed != nil {
		v.Set("isReviewed", strconv.FormatBool(*q.IsReviewed))
	}
	if q.VarianceFlag != nil {
		v.Set("varianceFlag", strconv.FormatBool(*q.VarianceFlag))
	}
	if q.From != nil {
		v.Set("from", q.From.UTC().Format(ISOLayout))
	}
	if q.To != nil {
		v.Set("to", q.To.UTC().Format(ISOLayout))
	}
	return v
}

// ISOLayout is the millisecond ISO-8601 form the entries service speaks.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// EntryPage is one page of the entries list.
type EntryPage struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}
