package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/options"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/export"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/services/printer"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/utils"
	"github.com/managedsolutions7/k2weighingfe-sub000/internal/weighment"
)

// exportPageSize is the page size used to walk the full list for a report.
const exportPageSize = 100

func newFlagSet(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// listFlags are the filters shared by list and export.
type listFlags struct {
	search, entryType, dateRange string
	variance, reviewed           string
	page, limit                  int
	sortBy                       string
	asc                          bool
}

func (lf *listFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&lf.search, "search", "", "search entry number, driver, vendor, vehicle or material")
	fs.StringVar(&lf.entryType, "type", "", "purchase or sale")
	fs.StringVar(&lf.dateRange, "range", "", "entry date window: 24h, 7d or 30d")
	fs.StringVar(&lf.variance, "variance", "", "true or false")
	fs.StringVar(&lf.reviewed, "reviewed", "", "true or false")
	fs.IntVar(&lf.page, "page", 1, "page number")
	fs.IntVar(&lf.limit, "limit", 10, "entries per page")
	fs.StringVar(&lf.sortBy, "sort", string(weighment.SortByEntryDate), "entryDate, entryWeight, exitWeight, netWeight or vendor")
	fs.BoolVar(&lf.asc, "asc", false, "sort ascending")
}

func (lf *listFlags) query(now time.Time) (models.EntryQuery, error) {
	q := models.EntryQuery{
		Search:    lf.search,
		Page:      lf.page,
		Limit:     lf.limit,
		EntryType: models.EntryType(lf.entryType),
	}
	if q.EntryType != "" && !q.EntryType.Valid() {
		return q, fmt.Errorf("--type must be purchase or sale")
	}
	var err error
	if q.VarianceFlag, err = optionalBool("variance", lf.variance); err != nil {
		return q, err
	}
	if q.IsReviewed, err = optionalBool("reviewed", lf.reviewed); err != nil {
		return q, err
	}
	if lf.dateRange != "" {
		r, err := utils.ResolveRange(utils.RangePreset(lf.dateRange), now, utils.DateRange{})
		if err != nil {
			return q, err
		}
		q.From, q.To = &r.From, &r.To
	}
	return q, nil
}

func optionalBool(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be true or false", name)
	}
	return &b, nil
}

func cmdEntriesList(ctx context.Context, a *app, args []string) error {
	var lf listFlags
	fs := newFlagSet(a, "entries list")
	lf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	q, err := lf.query(time.Now())
	if err != nil {
		return err
	}
	a.flow.SetQuery(q)
	if err := a.flow.Refresh(ctx); err != nil {
		return err
	}

	entries := a.flow.Entries()
	weighment.SortEntries(entries, weighment.SortKey(lf.sortBy), !lf.asc)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tTYPE\tVENDOR\tVEHICLE\tENTRY\tEXIT\tNET\tSTATUS\tRECEIPT")
	for _, e := range entries {
		receipt := "-"
		if weighment.CanDownloadReceipt(e) {
			receipt = "yes"
		}
		net := "-"
		if e.HasExit() {
			net = utils.FormatWeight(e.NetWeight())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.EntryNumber, e.EntryType, e.Vendor.Label(), e.Vehicle.Label(),
			utils.FormatWeight(e.EntryWeight), utils.FormatWeightPtr(e.ExitWeight), net,
			a.flow.ExitAction(e).Label, receipt)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	pages := (a.flow.Total() + q.Limit - 1) / max(q.Limit, 1)
	fmt.Fprintf(a.out, "page %d of %d, %d entries\n", q.Page, max(pages, 1), a.flow.Total())
	return nil
}

func cmdEntriesCreate(ctx context.Context, a *app, args []string) error {
	var d weighment.Draft
	fs := newFlagSet(a, "entries create")
	fs.StringVar(&d.EntryType, "type", "", "purchase or sale")
	fs.StringVar(&d.Vendor, "vendor", "", "vendor name or id")
	fs.StringVar(&d.Vehicle, "vehicle", "", "vehicle number or id")
	fs.StringVar(&d.DriverName, "driver", "", "driver name")
	fs.StringVar(&d.DriverPhone, "phone", "", "driver phone")
	fs.StringVar(&d.EntryWeight, "weight", "", "entry weight in kg")
	fs.StringVar(&d.MaterialType, "material", "", "material name or id (purchase only)")
	fs.BoolVar(&d.ManualWeight, "manual", false, "weight was keyed in by hand")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	if err := a.catalog.LoadAll(ctx); err != nil {
		a.log.Warn("options unavailable, sending values as typed", "err", err)
	} else {
		d.Vendor = resolve(options.Options(a.catalog.Vendors()), d.Vendor)
		d.Vehicle = resolve(options.Options(a.catalog.Vehicles()), d.Vehicle)
		if d.MaterialType != "" {
			d.MaterialType = resolve(options.Options(a.catalog.Materials()), d.MaterialType)
		}
	}

	e, err := a.flow.Create(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s (%s), entry weight %s\n", e.EntryNumber, e.ID, utils.FormatWeight(e.EntryWeight))
	return nil
}

func cmdEntriesExit(ctx context.Context, a *app, args []string) error {
	var in weighment.ExitInput
	fs := newFlagSet(a, "entries exit")
	fs.StringVar(&in.ExitWeight, "weight", "", "exit weight in kg")
	fs.StringVar(&in.Moisture, "moisture", "", "moisture % (purchase)")
	fs.StringVar(&in.Dust, "dust", "", "dust % (purchase)")
	fs.StringVar(&in.PalletteType, "pallette", "", "loose or packed (sale)")
	fs.StringVar(&in.NoOfBags, "bags", "", "number of bags (packed sale)")
	fs.StringVar(&in.WeightPerBag, "per-bag", "", "weight per bag in kg (packed sale)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("entries exit needs exactly one entry id or number")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	e, err := a.locate(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	prompt, err := a.flow.OpenExit(e.ID)
	if err != nil {
		return err
	}
	updated, err := prompt.Confirm(ctx, in)
	if err != nil {
		prompt.Cancel()
		return err
	}

	fmt.Fprintf(a.out, "Exit recorded for %s: net %s", updated.EntryNumber, utils.FormatWeight(updated.NetWeight()))
	if updated.FinalWeight != nil {
		fmt.Fprintf(a.out, ", final %s", utils.FormatWeight(*updated.FinalWeight))
	}
	if updated.VarianceFailed() {
		fmt.Fprint(a.out, ", variance FLAGGED")
	}
	fmt.Fprintln(a.out)
	return nil
}

func cmdEntriesReceipt(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "entries receipt")
	outPath := fs.String("out", "", "output file (default <receipt_dir>/receipt-<number>.pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("entries receipt needs exactly one entry id or number")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	e, err := a.locate(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	pdf, err := a.flow.DownloadReceipt(ctx, e.ID)
	if err != nil {
		return err
	}
	return a.writeFile(*outPath, "receipt", e, pdf)
}

func cmdEntriesSlip(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "entries slip")
	outPath := fs.String("out", "", "output file (default <receipt_dir>/slip-<number>.pdf)")
	plant := fs.String("plant", "", "plant name printed under the title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("entries slip needs exactly one entry id or number")
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	e, err := a.locate(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	pdf, err := printer.GenerateSlipPDF(e, printer.SlipOptions{Plant: *plant})
	if err != nil {
		return err
	}
	return a.writeFile(*outPath, "slip", e, pdf)
}

func cmdEntriesExport(ctx context.Context, a *app, args []string) error {
	var lf listFlags
	fs := newFlagSet(a, "entries export")
	lf.register(fs)
	outPath := fs.String("out", "entries.xlsx", "output workbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	q, err := lf.query(time.Now())
	if err != nil {
		return err
	}
	q.Limit = exportPageSize

	var all []models.Entry
	for q.Page = 1; ; q.Page++ {
		a.flow.SetQuery(q)
		if err := a.flow.Refresh(ctx); err != nil {
			return err
		}
		page := a.flow.Entries()
		all = append(all, page...)
		if len(page) == 0 || len(all) >= a.flow.Total() {
			break
		}
	}

	data, err := export.EntriesWorkbook(all, time.Local)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *outPath, err)
	}

	s := export.Summarize(all)
	fmt.Fprintf(a.out, "Wrote %s: %d entries (%d purchases, %d sales, %d open, %d flagged)\n",
		*outPath, s.Total, s.Purchases, s.Sales, s.Open, s.Flagged)
	return nil
}

func cmdEntriesJournal(_ context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "entries journal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	records, err := a.db.ExitRecords()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tEXIT WEIGHT\tRECORDED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.EntryID, utils.FormatWeight(r.Payload.ExitWeight),
			r.RecordedAt.Local().Format("02 Jan 2006 15:04"))
	}
	return tw.Flush()
}

func (a *app) writeFile(path, kind string, e models.Entry, data []byte) error {
	if path == "" {
		name := e.EntryNumber
		if name == "" {
			name = e.ID
		}
		path = filepath.Join(a.cfg.ReceiptDir, fmt.Sprintf("%s-%s.pdf", kind, strings.ToLower(name)))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Saved %s\n", path)
	return nil
}
