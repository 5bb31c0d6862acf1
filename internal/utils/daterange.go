package utils

import (
	"fmt"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// RangePreset names a dashboard date window.
type RangePreset string

const (
	Range24h    RangePreset = "24h"
	Range7d     RangePreset = "7d"
	Range30d    RangePreset = "30d"
	RangeCustom RangePreset = "custom"
)

// DateRange is a closed [From, To] window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// FromISO renders the lower bound as UTC ISO-8601.
func (r DateRange) FromISO() string { return r.From.UTC().Format(models.ISOLayout) }

// ToISO renders the upper bound as UTC ISO-8601.
func (r DateRange) ToISO() string { return r.To.UTC().Format(models.ISOLayout) }

var presetSpans = map[RangePreset]time.Duration{
	Range24h: 24 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
	Range30d: 30 * 24 * time.Hour,
}

// ResolveRange turns a preset into concrete UTC bounds ending at now.
// For RangeCustom the caller's bounds are returned untouched.
func ResolveRange(preset RangePreset, now time.Time, custom DateRange) (DateRange, error) {
	if preset == RangeCustom {
		return custom, nil
	}
	span, ok := presetSpans[preset]
	if !ok {
		return DateRange{}, fmt.Errorf("unknown date range preset %q", preset)
	}
	to := now.UTC()
	return DateRange{From: to.Add(-span), To: to}, nil
}
