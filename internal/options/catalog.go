package options

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// Source is the options collaborator.
type Source interface {
	ListVendors(ctx context.Context, search string) ([]models.Vendor, error)
	ListVehicles(ctx context.Context, search string) ([]models.Vehicle, error)
	ListMaterials(ctx context.Context, search string) ([]models.Material, error)
	ListPlants(ctx context.Context, search string) ([]models.Plant, error)
}

// Catalog caches the reference lists used by selection fields. It is read-only
// for the workflow and is replaced wholesale by LoadAll.
type Catalog struct {
	src Source
	log *slog.Logger

	mu        sync.RWMutex
	vendors   []models.Vendor
	vehicles  []models.Vehicle
	materials []models.Material
	plants    []models.Plant
	loadedAt  time.Time
}

// NewCatalog creates an empty catalog backed by src.
func NewCatalog(src Source, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{src: src, log: log}
}

// LoadAll fetches the four lists concurrently. Nothing is replaced unless all succeed.
func (c *Catalog) LoadAll(ctx context.Context) error {
	var (
		vendors   []models.Vendor
		vehicles  []models.Vehicle
		materials []models.Material
		plants    []models.Plant
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vendors, err = c.src.ListVendors(ctx, "")
		return wrap("vendors", err)
	})
	g.Go(func() (err error) {
		vehicles, err = c.src.ListVehicles(ctx, "")
		return wrap("vehicles", err)
	})
	g.Go(func() (err error) {
		materials, err = c.src.ListMaterials(ctx, "")
		return wrap("materials", err)
	})
	g.Go(func() (err error) {
		plants, err = c.src.ListPlants(ctx, "")
		return wrap("plants", err)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.vendors, c.vehicles, c.materials, c.plants = vendors, vehicles, materials, plants
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.log.Debug("options loaded", "vendors", len(vendors), "vehicles", len(vehicles),
		"materials", len(materials), "plants", len(plants))
	return nil
}

func wrap(list string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load %s: %w", list, err)
}

// LoadedAt is when the lists were last replaced, zero before the first load.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Vendors returns a copy of the loaded vendor list.
func (c *Catalog) Vendors() []models.Vendor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Vendor(nil), c.vendors...)
}

// Vehicles returns a copy of the loaded vehicle list.
func (c *Catalog) Vehicles() []models.Vehicle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Vehicle(nil), c.vehicles...)
}

// Materials returns a copy of the loaded material list.
func (c *Catalog) Materials() []models.Material {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Material(nil), c.materials...)
}

// Plants returns a copy of the loaded plant list.
func (c *Catalog) Plants() []models.Plant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Plant(nil), c.plants...)
}

type optioner interface {
	Option() models.Option
}

// Options renders records for a selection field.
func Options[T optioner](items []T) []models.Option {
	out := make([]models.Option, 0, len(items))
	for _, it := range items {
		out = append(out, it.Option())
	}
	return out
}

// Resolve finds the option whose value or label equals key, ignoring case.
// Operators type vehicle numbers and vendor names; payloads need ids.
func Resolve(opts []models.Option, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	for _, o := range opts {
		if o.Value == key {
			return o.Value, true
		}
	}
	for _, o := range opts {
		if strings.EqualFold(o.Label, key) {
			return o.Value, true
		}
	}
	return "", false
}
