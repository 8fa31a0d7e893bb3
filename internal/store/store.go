// Package store holds the tenant-scoped business records that sit behind the
// authorization gate. Every lookup is filtered by the caller's store id, so a
// record owned by another store is indistinguishable from one that does not
// exist.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound covers both absent rows and rows owned by another store.
var ErrNotFound = errors.New("store: not found")

// Partner is a customer, a vendor, or both.
type Partner struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Balance   float64   `json:"balance"`
	Notes     string    `json:"notes,omitempty"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Partner kinds.
const (
	PartnerCustomer = "customer"
	PartnerVendor   = "vendor"
	PartnerBoth     = "both"
)

// PartnerFilter is the optional, composable filter set for listing partners.
type PartnerFilter struct {
	Kind   string
	Search string
	Active *bool
	Limit  int
	Offset int
}

// PartnerStore manages partners. All operations are scoped by storeID.
type PartnerStore interface {
	List(ctx context.Context, storeID string, filter PartnerFilter) ([]Partner, int, error)
	Get(ctx context.Context, storeID, id string) (*Partner, error)
	Create(ctx context.Context, p *Partner) error
	Update(ctx context.Context, p *Partner) error
	Delete(ctx context.Context, storeID, id string) error
}

// Settings is the single per-store settings row.
type Settings struct {
	StoreID        string    `json:"store_id"`
	Currency       string    `json:"currency"`
	Locale         string    `json:"locale"`
	InvoicePrefix  string    `json:"invoice_prefix"`
	LowStockAlerts bool      `json:"low_stock_alerts"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SettingsStore manages per-store settings.
type SettingsStore interface {
	Get(ctx context.Context, storeID string) (*Settings, error)
	Put(ctx context.Context, s *Settings) error
}
