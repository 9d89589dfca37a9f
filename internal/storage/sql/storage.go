package sqlstorage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	uniqueViolation = "23505"
	slotIndexSuffix = "_slot_uidx"
)

const (
	bannerColumns = `id, title, image_url, link_url, is_active, layout_position, created_at`
	couponColumns = `id, store_id, title, code, description, discount_type, discount_value, max_uses,
		expiry_date, url, is_popular, is_latest, is_verified, is_exclusive, layout_position,
		latest_layout_position, created_at`
	storeColumns = `id, name, slug, description, website_url, logo_url, cashback, is_trending,
		layout_position, created_at`

	insertBannerQuery = `INSERT INTO banners (id, title, image_url, link_url, is_active, layout_position)
		VALUES (:id, :title, :image_url, :link_url, :is_active, :layout_position)`
	insertCouponQuery = `INSERT INTO coupons (id, store_id, title, code, description, discount_type,
		discount_value, max_uses, expiry_date, url, is_popular, is_latest, is_verified, is_exclusive,
		layout_position, latest_layout_position)
		VALUES (:id, :store_id, :title, :code, :description, :discount_type, :discount_value, :max_uses,
		:expiry_date, :url, :is_popular, :is_latest, :is_verified, :is_exclusive, :layout_position,
		:latest_layout_position)`
	insertStoreQuery = `INSERT INTO stores (id, name, slug, description, website_url, logo_url, cashback,
		is_trending, layout_position)
		VALUES (:id, :name, :slug, :description, :website_url, :logo_url, :cashback, :is_trending,
		:layout_position)`
)

type Storage struct {
	db *sqlx.DB
}

func New(ctx context.Context, connectionString string) (*Storage, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("cannot open db, %w", err)
	}

	return &Storage{db}, nil
}

// NewWithDB wraps an already opened connection.
func NewWithDB(db *sqlx.DB) *Storage {
	return &Storage{db}
}

func (s *Storage) Connect(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot connect to db, %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate() (uint, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("cannot read migrations, %w", err)
	}

	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("cannot create migration driver, %w", err)
	}

	// m.Close is not called: it would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("cannot create migrator, %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("cannot apply migrations, %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("cannot read migration version, %w", err)
	}

	return version, nil
}

func (s *Storage) CreateBanner(ctx context.Context, banner storage.Banner) (string, error) {
	banner.ID = newID(banner.ID)

	if _, err := s.db.NamedExecContext(ctx, insertBannerQuery, banner); err != nil {
		return "", fmt.Errorf("cannot create banner, %w", mapError(err))
	}

	return banner.ID, nil
}

func (s *Storage) GetBanner(ctx context.Context, id string) (storage.Banner, error) {
	var banner storage.Banner

	err := s.db.GetContext(ctx, &banner, `SELECT `+bannerColumns+` FROM banners WHERE id=$1`, id)
	if err != nil {
		return banner, fmt.Errorf("cannot get banner %s, %w", id, mapError(err))
	}

	return banner, nil
}

func (s *Storage) ListBanners(ctx context.Context) ([]storage.Banner, error) {
	banners := []storage.Banner{}

	err := s.db.SelectContext(ctx, &banners, `SELECT `+bannerColumns+` FROM banners ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("cannot list banners, %w", err)
	}

	return banners, nil
}

func (s *Storage) UpdateBanner(ctx context.Context, banner storage.Banner) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE banners SET title=:title, image_url=:image_url, link_url=:link_url WHERE id=:id`, banner)

	return affected("update banner", res, err)
}

func (s *Storage) UpdateBannerSlot(ctx context.Context, id string, position *int, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE banners SET layout_position=$1, is_active=$2 WHERE id=$3`, position, active, id)

	return affected("update banner slot", res, err)
}

func (s *Storage) CreateCoupon(ctx context.Context, coupon storage.Coupon) (string, error) {
	coupon.ID = newID(coupon.ID)

	if _, err := s.db.NamedExecContext(ctx, insertCouponQuery, coupon); err != nil {
		return "", fmt.Errorf("cannot create coupon, %w", mapError(err))
	}

	return coupon.ID, nil
}

func (s *Storage) GetCoupon(ctx context.Context, id string) (storage.Coupon, error) {
	var coupon storage.Coupon

	err := s.db.GetContext(ctx, &coupon, `SELECT `+couponColumns+` FROM coupons WHERE id=$1`, id)
	if err != nil {
		return coupon, fmt.Errorf("cannot get coupon %s, %w", id, mapError(err))
	}

	return coupon, nil
}

func (s *Storage) ListCoupons(ctx context.Context) ([]storage.Coupon, error) {
	coupons := []storage.Coupon{}

	err := s.db.SelectContext(ctx, &coupons, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("cannot list coupons, %w", err)
	}

	return coupons, nil
}

func (s *Storage) UpdateCoupon(ctx context.Context, coupon storage.Coupon) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE coupons SET store_id=:store_id, title=:title, code=:code,
		description=:description, discount_type=:discount_type, discount_value=:discount_value,
		max_uses=:max_uses, expiry_date=:expiry_date, url=:url, is_verified=:is_verified,
		is_exclusive=:is_exclusive WHERE id=:id`, coupon)

	return affected("update coupon", res, err)
}

func (s *Storage) UpdateCouponPopularSlot(ctx context.Context, id string, position *int, popular bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE coupons SET layout_position=$1, is_popular=$2 WHERE id=$3`, position, popular, id)

	return affected("update coupon popular slot", res, err)
}

func (s *Storage) UpdateCouponLatestSlot(ctx context.Context, id string, position *int, latest bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE coupons SET latest_layout_position=$1, is_latest=$2 WHERE id=$3`, position, latest, id)

	return affected("update coupon latest slot", res, err)
}

// BulkInsertCoupons inserts the batch in one transaction.
func (s *Storage) BulkInsertCoupons(ctx context.Context, coupons []storage.Coupon) ([]string, error) {
	ids := make([]string, 0, len(coupons))

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, c := range coupons {
			c.ID = newID(c.ID)

			if _, err := tx.NamedExecContext(ctx, insertCouponQuery, c); err != nil {
				return fmt.Errorf("cannot insert coupon %q, %w", c.Title, mapError(err))
			}

			ids = append(ids, c.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (s *Storage) CreateStore(ctx context.Context, store storage.Store) (string, error) {
	store.ID = newID(store.ID)

	if _, err := s.db.NamedExecContext(ctx, insertStoreQuery, store); err != nil {
		return "", fmt.Errorf("cannot create store, %w", mapError(err))
	}

	return store.ID, nil
}

func (s *Storage) GetStore(ctx context.Context, id string) (storage.Store, error) {
	var store storage.Store

	err := s.db.GetContext(ctx, &store, `SELECT `+storeColumns+` FROM stores WHERE id=$1`, id)
	if err != nil {
		return store, fmt.Errorf("cannot get store %s, %w", id, mapError(err))
	}

	return store, nil
}

func (s *Storage) ListStores(ctx context.Context) ([]storage.Store, error) {
	stores := []storage.Store{}

	err := s.db.SelectContext(ctx, &stores, `SELECT `+storeColumns+` FROM stores ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("cannot list stores, %w", err)
	}

	return stores, nil
}

func (s *Storage) UpdateStore(ctx context.Context, store storage.Store) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE stores SET name=:name, slug=:slug, description=:description,
		website_url=:website_url, logo_url=:logo_url, cashback=:cashback WHERE id=:id`, store)

	return affected("update store", res, err)
}

func (s *Storage) UpdateStoreSlot(ctx context.Context, id string, position *int, trending bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stores SET layout_position=$1, is_trending=$2 WHERE id=$3`, position, trending, id)

	return affected("update store slot", res, err)
}

func (s *Storage) BulkInsertStores(ctx context.Context, stores []storage.Store) ([]string, error) {
	ids := make([]string, 0, len(stores))

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, st := range stores {
			st.ID = newID(st.ID)

			if _, err := tx.NamedExecContext(ctx, insertStoreQuery, st); err != nil {
				return fmt.Errorf("cannot insert store %q, %w", st.Name, mapError(err))
			}

			ids = append(ids, st.ID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (s *Storage) FindStoreIDByName(ctx context.Context, name string) (string, error) {
	var id string

	err := s.db.GetContext(ctx, &id,
		`SELECT id FROM stores WHERE LOWER(name)=LOWER($1) ORDER BY created_at, id LIMIT 1`, name)
	if err != nil {
		return "", fmt.Errorf("cannot find store %q, %w", name, mapError(err))
	}

	return id, nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction, %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit transaction, %w", err)
	}

	return nil
}

func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("cannot %s, %w", op, mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cannot %s, %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("cannot %s, %w", op, storage.ErrNotFound)
	}

	return nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.HasSuffix(pqErr.Constraint, slotIndexSuffix) {
		return fmt.Errorf("%w (%s)", storage.ErrSlotTaken, pqErr.Constraint)
	}

	return err
}

func newID(id string) string {
	if id != "" {
		return id
	}

	return uuid.NewString()
}
