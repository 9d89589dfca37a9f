package storage

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrSlotTaken = errors.New("layout position already taken")
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"

	DefaultMaxUses = 100
)

type Banner struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	ImageURL       string    `db:"image_url" json:"image_url"`
	LinkURL        string    `db:"link_url" json:"link_url"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	LayoutPosition *int      `db:"layout_position" json:"layout_position"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Coupon carries two independent slot families: popular (LayoutPosition,
// IsPopular) and latest (LatestLayoutPosition, IsLatest).
type Coupon struct {
	ID                   string          `db:"id" json:"id"`
	StoreID              string          `db:"store_id" json:"store_id"`
	Title                string          `db:"title" json:"title"`
	Code                 string          `db:"code" json:"code"`
	Description          string          `db:"description" json:"description"`
	DiscountType         string          `db:"discount_type" json:"discount_type"`
	DiscountValue        decimal.Decimal `db:"discount_value" json:"discount_value"`
	MaxUses              int             `db:"max_uses" json:"max_uses"`
	ExpiryDate           *time.Time      `db:"expiry_date" json:"expiry_date"`
	URL                  string          `db:"url" json:"url"`
	IsPopular            bool            `db:"is_popular" json:"is_popular"`
	IsLatest             bool            `db:"is_latest" json:"is_latest"`
	IsVerified           bool            `db:"is_verified" json:"is_verified"`
	IsExclusive          bool            `db:"is_exclusive" json:"is_exclusive"`
	LayoutPosition       *int            `db:"layout_position" json:"layout_position"`
	LatestLayoutPosition *int            `db:"latest_layout_position" json:"latest_layout_position"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// Label is what admins see when asked to replace a pinned coupon.
func (c Coupon) Label() string {
	if c.Title != "" {
		return c.Title
	}

	return c.Code
}

type Store struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Slug           string          `db:"slug" json:"slug"`
	Description    string          `db:"description" json:"description"`
	WebsiteURL     string          `db:"website_url" json:"website_url"`
	LogoURL        string          `db:"logo_url" json:"logo_url"`
	Cashback       decimal.Decimal `db:"cashback" json:"cashback"`
	IsTrending     bool            `db:"is_trending" json:"is_trending"`
	LayoutPosition *int            `db:"layout_position" json:"layout_position"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
