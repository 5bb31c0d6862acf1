package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

func searchQuery(search string) url.Values {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	return q
}

// ListVendors returns vendors matching search (all when empty).
func (c *Client) ListVendors(ctx context.Context, search string) ([]models.Vendor, error) {
	var out []models.Vendor
	err := c.call(ctx, "list_vendors", http.MethodGet, "/vendors", searchQuery(search), nil, &out)
	return out, err
}

// ListVehicles returns vehicles matching search.
func (c *Client) ListVehicles(ctx context.Context, search string) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := c.call(ctx, "list_vehicles", http.MethodGet, "/vehicles", searchQuery(search), nil, &out)
	return out, err
}

// ListMaterials returns materials matching search.
func (c *Client) ListMaterials(ctx context.Context, search string) ([]models.Material, error) {
	var out []models.Material
	err := c.call(ctx, "list_materials", http.MethodGet, "/materials", searchQuery(search), nil, &out)
	return out, err
}

// ListPlants returns plants matching search.
func (c *Client) ListPlants(ctx context.Context, search string) ([]models.Plant, error) {
	var out []models.Plant
	err := c.call(ctx, "list_plants", http.MethodGet, "/plants", searchQuery(search), nil, &out)
	return out, err
}
