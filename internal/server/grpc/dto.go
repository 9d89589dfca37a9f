package internalgrpc

import (
	"time"

	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/shopspring/decimal"
)

type BannerRequest struct {
	Title          string `json:"title" validate:"required"`
	ImageURL       string `json:"image_url" validate:"omitempty,url"`
	LinkURL        string `json:"link_url" validate:"omitempty,url"`
	IsActive       bool   `json:"is_active"`
	LayoutPosition *int   `json:"layout_position"`
	ConfirmReplace bool   `json:"confirm_replace"`
}

func (r BannerRequest) toBanner(id string) storage.Banner {
	return storage.Banner{
		ID:             id,
		Title:          r.Title,
		ImageURL:       r.ImageURL,
		LinkURL:        r.LinkURL,
		IsActive:       r.IsActive,
		LayoutPosition: r.LayoutPosition,
	}
}

type CouponRequest struct {
	StoreID              string          `json:"store_id" validate:"required"`
	Title                string          `json:"title" validate:"required_without=Code"`
	Code                 string          `json:"code"`
	Description          string          `json:"description"`
	DiscountType         string          `json:"discount_type" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue        decimal.Decimal `json:"discount_value"`
	MaxUses              *int            `json:"max_uses" validate:"omitempty,min=0"`
	ExpiryDate           *time.Time      `json:"expiry_date"`
	URL                  string          `json:"url" validate:"omitempty,url"`
	IsPopular            bool            `json:"is_popular"`
	IsLatest             bool            `json:"is_latest"`
	IsVerified           bool            `json:"is_verified"`
	IsExclusive          bool            `json:"is_exclusive"`
	LayoutPosition       *int            `json:"layout_position"`
	LatestLayoutPosition *int            `json:"latest_layout_position"`
	ConfirmReplace       bool            `json:"confirm_replace"`
}

func (r CouponRequest) toCoupon(id string) storage.Coupon {
	c := storage.Coupon{
		ID:                   id,
		StoreID:              r.StoreID,
		Title:                r.Title,
		Code:                 r.Code,
		Description:          r.Description,
		DiscountType:         r.DiscountType,
		DiscountValue:        r.DiscountValue,
		MaxUses:              storage.DefaultMaxUses,
		ExpiryDate:           r.ExpiryDate,
		URL:                  r.URL,
		IsPopular:            r.IsPopular,
		IsLatest:             r.IsLatest,
		IsVerified:           r.IsVerified,
		IsExclusive:          r.IsExclusive,
		LayoutPosition:       r.LayoutPosition,
		LatestLayoutPosition: r.LatestLayoutPosition,
	}

	if c.Title == "" {
		c.Title = c.Code
	}

	if c.DiscountType == "" {
		c.DiscountType = storage.DiscountPercentage
	}

	if r.MaxUses != nil {
		c.MaxUses = *r.MaxUses
	}

	return c
}

type StoreRequest struct {
	Name           string          `json:"name" validate:"required"`
	Slug           string          `json:"slug"`
	Description    string          `json:"description"`
	WebsiteURL     string          `json:"website_url" validate:"omitempty,url"`
	LogoURL        string          `json:"logo_url" validate:"omitempty,url"`
	Cashback       decimal.Decimal `json:"cashback"`
	IsTrending     bool            `json:"is_trending"`
	LayoutPosition *int            `json:"layout_position"`
	ConfirmReplace bool            `json:"confirm_replace"`
}

func (r StoreRequest) toStore(id string) storage.Store {
	return storage.Store{
		ID:             id,
		Name:           r.Name,
		Slug:           r.Slug,
		Description:    r.Description,
		WebsiteURL:     r.WebsiteURL,
		LogoURL:        r.LogoURL,
		Cashback:       r.Cashback,
		IsTrending:     r.IsTrending,
		LayoutPosition: r.LayoutPosition,
	}
}

type AssignRequest struct {
	ID             string `json:"id" validate:"required"`
	Position       *int   `json:"position"`
	ConfirmReplace bool   `json:"confirm_replace"`
}

type FlagRequest struct {
	ID      string `json:"id" validate:"required"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ConflictResponse struct {
	Message  string          `json:"message"`
	Context  string          `json:"context"`
	Occupant layout.Occupant `json:"occupant"`
}

type BoardResponse struct {
	Context   string            `json:"context"`
	Slots     int               `json:"slots"`
	Occupants []layout.Occupant `json:"occupants"`
}
