package weighment

import (
	"sort"
	"strings"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// Filter narrows an in-memory entries list. Zero fields match everything.
type Filter struct {
	Search       string
	EntryType    models.EntryType
	Completed    *bool
	VarianceFlag *bool
}

// FilterEntries returns the entries that match f, in their original order.
func FilterEntries(entries []models.Entry, f Filter) []models.Entry {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if f.EntryType != "" && e.EntryType != f.EntryType {
			continue
		}
		if f.Completed != nil && e.HasExit() != *f.Completed {
			continue
		}
		if f.VarianceFlag != nil && e.VarianceFailed() != *f.VarianceFlag {
			continue
		}
		if needle != "" && !matches(e, needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matches(e models.Entry, needle string) bool {
	fields := []string{e.EntryNumber, e.DriverName, e.Vendor.Label(), e.Vehicle.Label()}
	if e.MaterialType != nil {
		fields = append(fields, e.MaterialType.Label())
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// SortKey names a sortable column.
type SortKey string

const (
	SortByEntryDate   SortKey = "entryDate"
	SortByEntryWeight SortKey = "entryWeight"
	SortByExitWeight  SortKey = "exitWeight"
	SortByNetWeight   SortKey = "netWeight"
	SortByVendor      SortKey = "vendor"
)

// SortEntries sorts entries in place. Ties keep their relative order.
func SortEntries(entries []models.Entry, key SortKey, desc bool) {
	less := func(a, b *models.Entry) bool {
		switch key {
		case SortByEntryWeight:
			return a.EntryWeight < b.EntryWeight
		case SortByExitWeight:
			return exitOrZero(a) < exitOrZero(b)
		case SortByNetWeight:
			return a.NetWeight() < b.NetWeight()
		case SortByVendor:
			return strings.ToLower(a.Vendor.Label()) < strings.ToLower(b.Vendor.Label())
		default:
			return a.EntryDate.Before(b.EntryDate)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(&entries[j], &entries[i])
		}
		return less(&entries[i], &entries[j])
	})
}

func exitOrZero(e *models.Entry) float64 {
	if e.ExitWeight == nil {
		return 0
	}
	return *e.ExitWeight
}

// Paginate returns the 1-based page of size limit and the number of pages.
// Out-of-range pages return an empty slice.
func Paginate(entries []models.Entry, page, limit int) ([]models.Entry, int) {
	if limit <= 0 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	pages := len(entries) / limit
	if len(entries)%limit != 0 {
		pages++
	}
	if page > pages {
		return []models.Entry{}, pages
	}
	start := (page - 1) * limit
	end := len(entries)
	if limit < end-start {
		end = start + limit
	}
	return entries[start:end], pages
}
