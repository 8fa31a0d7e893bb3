package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userJoinColumns = `u.id, u.store_id, u.username, u.password_hash, u.full_name, u.role,
	 u.permissions, u.is_active, u.subscription_expires_at, u.locale, u.dark_mode,
	 u.created_at, u.updated_at,
	 s.id, s.name, s.is_active, s.subscription_expires_at, s.created_at, s.updated_at`

func (r *PostgresRepository) FindActiveUserByUsername(ctx context.Context, username string) (*User, *Store, error) {
	row := r.db.QueryRowContext(ctx,
		`select `+userJoinColumns+`
		 from users u join stores s on s.id = u.store_id
		 where u.username = $1 and u.is_active = true`, username)
	return scanUserWithStore(row)
}

func (r *PostgresRepository) FindActiveUserByID(ctx context.Context, id string) (*User, *Store, error) {
	row := r.db.QueryRowContext(ctx,
		`select `+userJoinColumns+`
		 from users u join stores s on s.id = u.store_id
		 where u.id = $1 and u.is_active = true`, id)
	return scanUserWithStore(row)
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, rev *RevokedToken) error {
	_, err := r.db.ExecContext(ctx,
		`insert into revoked_tokens(jti, user_id, expires_at, revoked_at)
		 values($1,$2,$3,$4) on conflict (jti) do nothing`,
		rev.JTI, rev.UserID, rev.ExpiresAt, rev.RevokedAt,
	)
	return err
}

func (r *PostgresRepository) RefreshTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx,
		`select exists(select 1 from revoked_tokens where jti = $1)`, jti,
	).Scan(&revoked)
	return revoked, err
}

func (r *PostgresRepository) PurgeRevokedTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `delete from revoked_tokens where expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanUserWithStore(row *sql.Row) (*User, *Store, error) {
	var (
		u           User
		s           Store
		permissions []byte
	)
	err := row.Scan(
		&u.ID, &u.StoreID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role,
		&permissions, &u.Active, &u.SubscriptionExpiresAt, &u.Locale, &u.DarkMode,
		&u.CreatedAt, &u.UpdatedAt,
		&s.ID, &s.Name, &s.Active, &s.SubscriptionExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if len(permissions) > 0 {
		_ = json.Unmarshal(permissions, &u.Permissions)
	}
	return &u, &s, nil
}
