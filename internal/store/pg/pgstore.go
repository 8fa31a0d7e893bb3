// Package pg implements the business record stores on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"daftari.app/internal/ids"
	"daftari.app/internal/store"
)

var (
	_ store.PartnerStore  = (*PartnerStore)(nil)
	_ store.SettingsStore = (*SettingsStore)(nil)
)

// PartnerStore is the PostgreSQL partner store.
type PartnerStore struct {
	db *sql.DB
}

func NewPartnerStore(db *sql.DB) *PartnerStore {
	return &PartnerStore{db: db}
}

const partnerColumns = `id, store_id, name, kind, phone, email, address, balance, notes, is_active, created_at, updated_at`

// List returns a filtered page of partners plus the total match count.
// Filters compose into a WHERE clause with positional placeholders; values
// are never interpolated into the SQL text.
func (s *PartnerStore) List(ctx context.Context, storeID string, filter store.PartnerFilter) ([]store.Partner, int, error) {
	conds := []string{"store_id = $1"}
	args := []any{storeID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(name ilike $%d or phone ilike $%d or email ilike $%d)", n, n, n))
	}
	where := strings.Join(conds, " and ")

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from partners where `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`select %s from partners where %s order by name asc limit $%d offset $%d`,
		partnerColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var partners []store.Partner
	for rows.Next() {
		var p store.Partner
		if err := scanPartner(rows.Scan, &p); err != nil {
			return nil, 0, err
		}
		partners = append(partners, p)
	}
	return partners, total, rows.Err()
}

func (s *PartnerStore) Get(ctx context.Context, storeID, id string) (*store.Partner, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+partnerColumns+` from partners where store_id = $1 and id = $2`, storeID, id)
	var p store.Partner
	if err := scanPartner(row.Scan, &p); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PartnerStore) Create(ctx context.Context, p *store.Partner) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx,
		`insert into partners(id, store_id, name, kind, phone, email, address, balance, notes, is_active)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 returning created_at, updated_at`,
		p.ID, p.StoreID, p.Name, p.Kind, p.Phone, p.Email, p.Address, p.Balance, p.Notes, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *PartnerStore) Update(ctx context.Context, p *store.Partner) error {
	res, err := s.db.ExecContext(ctx,
		`update partners
		 set name=$3, kind=$4, phone=$5, email=$6, address=$7, balance=$8, notes=$9, is_active=$10, updated_at=now()
		 where store_id = $1 and id = $2`,
		p.StoreID, p.ID, p.Name, p.Kind, p.Phone, p.Email, p.Address, p.Balance, p.Notes, p.Active,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PartnerStore) Delete(ctx context.Context, storeID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from partners where store_id = $1 and id = $2`, storeID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanPartner(scan func(...any) error, p *store.Partner) error {
	return scan(
		&p.ID, &p.StoreID, &p.Name, &p.Kind, &p.Phone, &p.Email, &p.Address,
		&p.Balance, &p.Notes, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
}

// SettingsStore is the PostgreSQL settings store.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, storeID string) (*store.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		`select store_id, currency, locale, invoice_prefix, low_stock_alerts, updated_at
		 from store_settings where store_id = $1`, storeID)
	var set store.Settings
	if err := row.Scan(&set.StoreID, &set.Currency, &set.Locale, &set.InvoicePrefix, &set.LowStockAlerts, &set.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

func (s *SettingsStore) Put(ctx context.Context, set *store.Settings) error {
	return s.db.QueryRowContext(ctx,
		`insert into store_settings(store_id, currency, locale, invoice_prefix, low_stock_alerts, updated_at)
		 values($1,$2,$3,$4,$5,now())
		 on conflict (store_id) do update
		 set currency=excluded.currency, locale=excluded.locale,
		     invoice_prefix=excluded.invoice_prefix, low_stock_alerts=excluded.low_stock_alerts,
		     updated_at=now()
		 returning updated_at`,
		set.StoreID, set.Currency, set.Locale, set.InvoicePrefix, set.LowStockAlerts,
	).Scan(&set.UpdatedAt)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
