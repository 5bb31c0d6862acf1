package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

// CreateEntry records phase 1 of a weighment.
func (c *Client) CreateEntry(ctx context.Context, p models.CreateEntryPayload) (*models.Entry, error) {
	var e models.Entry
	if err := c.call(ctx, "create_entry", http.MethodPost, "/entries", nil, p, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEntries returns one page of entries for q.
func (c *Client) GetEntries(ctx context.Context, q models.EntryQuery) (*models.EntryPage, error) {
	var page models.EntryPage
	if err := c.call(ctx, "get_entries", http.MethodGet, "/entries", q.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateEntryExit records phase 2. The service accepts it once per entry.
func (c *Client) UpdateEntryExit(ctx context.Context, id string, p models.ExitPayload) (*models.Entry, error) {
	var e models.Entry
	path := fmt.Sprintf("/entries/%s/exit", url.PathEscape(id))
	if err := c.call(ctx, "update_entry_exit", http.MethodPatch, path, nil, p, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DownloadEntryReceipt returns the PDF receipt of a completed entry.
func (c *Client) DownloadEntryReceipt(ctx context.Context, id string) ([]byte, error) {
	return c.download(ctx, "download_entry_receipt", fmt.Sprintf("/entries/%s/receipt", url.PathEscape(id)))
}
