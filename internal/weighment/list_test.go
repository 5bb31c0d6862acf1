package weighment

import (
	"math"
	"testing"
	"time"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

func sampleEntries() []models.Entry {
	day := func(d int) time.Time { return time.Date(2026, 10, d, 8, 0, 0, 0, time.UTC) }
	material := models.Expanded("m1", map[string]string{"name": "Rice Husk"})
	return []models.Entry{
		{
			ID: "a", EntryNumber: "ENT-001", EntryType: models.EntryTypePurchase,
			Vendor:       models.Expanded("v1", map[string]string{"name": "Shakti Agro"}),
			Vehicle:      models.Expanded("vh1", map[string]string{"vehicleNumber": "MH12AB1234"}),
			MaterialType: &material,
			DriverName:   "Ramesh", EntryWeight: 1200, ExitWeight: f64(400), EntryDate: day(3),
			VarianceFlag: boolp(true),
		},
		{
			ID: "b", EntryNumber: "ENT-002", EntryType: models.EntryTypeSale,
			Vendor:     models.Expanded("v2", map[string]string{"name": "Bharat Fuels"}),
			Vehicle:    models.Reference("vh2"),
			DriverName: "Suresh", EntryWeight: 300, EntryDate: day(1),
		},
		{
			ID: "c", EntryNumber: "ENT-003", EntryType: models.EntryTypeSale,
			Vendor:     models.Expanded("v3", map[string]string{"name": "agni biomass"}),
			Vehicle:    models.Reference("vh3"),
			DriverName: "Mahesh", EntryWeight: 350, ExitWeight: f64(1350), EntryDate: day(2),
			VarianceFlag: boolp(false),
		},
	}
}

func ids(entries []models.Entry) string {
	s := ""
	for _, e := range entries {
		s += e.ID
	}
	return s
}

func TestFilterEntries(t *testing.T) {
	completed, open, flagged := true, false, true

	testCases := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"no filter", Filter{}, "abc"},
		{"by type", Filter{EntryType: models.EntryTypeSale}, "bc"},
		{"completed", Filter{Completed: &completed}, "ac"},
		{"open", Filter{Completed: &open}, "b"},
		{"variance flagged", Filter{VarianceFlag: &flagged}, "a"},
		{"search vehicle number", Filter{Search: "mh12"}, "a"},
		{"search material", Filter{Search: "husk"}, "a"},
		{"search vendor case-insensitive", Filter{Search: "AGNI"}, "c"},
		{"search entry number", Filter{Search: "ent-002"}, "b"},
		{"no match", Filter{Search: "nothing"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(FilterEntries(sampleEntries(), tc.filter)); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSortEntries(t *testing.T) {
	testCases := []struct {
		key  SortKey
		desc bool
		want string
	}{
		{SortByEntryDate, false, "bca"},
		{SortByEntryDate, true, "acb"},
		{SortByEntryWeight, false, "bca"},
		{SortByExitWeight, true, "cab"},
		{SortByNetWeight, true, "cab"},
		{SortByVendor, false, "cba"},
	}

	for _, tc := range testCases {
		entries := sampleEntries()
		SortEntries(entries, tc.key, tc.desc)
		if got := ids(entries); got != tc.want {
			t.Errorf("sort %s desc=%v: got %q, want %q", tc.key, tc.desc, got, tc.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	entries := sampleEntries()

	page, pages := Paginate(entries, 1, 2)
	if ids(page) != "ab" || pages != 2 {
		t.Errorf("page 1 = %q of %d", ids(page), pages)
	}
	page, _ = Paginate(entries, 2, 2)
	if ids(page) != "c" {
		t.Errorf("page 2 = %q", ids(page))
	}
	page, _ = Paginate(entries, 5, 2)
	if len(page) != 0 {
		t.Errorf("page 5 should be empty, got %q", ids(page))
	}
	page, _ = Paginate(entries, math.MaxInt, 2)
	if len(page) != 0 {
		t.Errorf("huge page should be empty, got %q", ids(page))
	}
	page, pages = Paginate(entries, 1, math.MaxInt)
	if ids(page) != "abc" || pages != 1 {
		t.Errorf("huge limit = %q of %d", ids(page), pages)
	}
	page, pages = Paginate(nil, 1, 10)
	if len(page) != 0 || pages != 0 {
		t.Errorf("empty list = %q of %d", ids(page), pages)
	}
}
