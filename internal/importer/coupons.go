package importer

import (
	"strings"
	"time"

	"github.com/Fuchsoria/couponslots/internal/ingest"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	couponStoreID       = ingest.Field{Name: "store_id", Aliases: []string{"store id", "storeid"}}
	couponStoreName     = ingest.Field{Name: "Store Name", Aliases: []string{"store_name", "store"}}
	couponTitle         = ingest.Field{Name: "title", Aliases: []string{"name", "coupon title"}}
	couponCode          = ingest.Field{Name: "code", Aliases: []string{"coupon code", "coupon_code"}}
	couponDescription   = ingest.Field{Name: "description", Aliases: []string{"details"}}
	couponDiscountType  = ingest.Field{Name: "discount_type", Aliases: []string{"discount type"}}
	couponDiscountValue = ingest.Field{Name: "discount_value", Aliases: []string{"discount value", "discount"}}
	couponMaxUses       = ingest.Field{Name: "max_uses", Aliases: []string{"max uses", "maxuses"}}
	couponExpiry        = ingest.Field{Name: "expiry_date", Aliases: []string{"expirydate", "expiry"}}
	couponURL           = ingest.Field{Name: "url", Aliases: []string{"tracking link", "coupon url"}}
	couponPopular       = ingest.Field{Name: "is_popular", Aliases: []string{"popular"}}
	couponLatest        = ingest.Field{Name: "is_latest", Aliases: []string{"latest"}}
	couponVerified      = ingest.Field{Name: "is_verified", Aliases: []string{"verified"}}
	couponExclusive     = ingest.Field{Name: "is_exclusive", Aliases: []string{"exclusive"}}

	couponFields = []ingest.Field{
		couponStoreID, couponStoreName, couponTitle, couponCode, couponDescription, couponDiscountType,
		couponDiscountValue, couponMaxUses, couponExpiry, couponURL, couponPopular, couponLatest,
		couponVerified, couponExclusive,
	}
)

var expiryLayouts = []string{"2006-01-02", "01/02/2006", time.RFC3339, "2006-01-02 15:04:05"}

// StoreIndex resolves the store a coupon row belongs to, by id or by name.
type StoreIndex struct {
	ids   map[string]struct{}
	names map[string]string
}

func NewStoreIndex(stores []storage.Store) StoreIndex {
	idx := StoreIndex{ids: make(map[string]struct{}, len(stores)), names: make(map[string]string, len(stores))}

	for _, s := range stores {
		idx.ids[s.ID] = struct{}{}

		name := strings.ToLower(strings.TrimSpace(s.Name))
		if _, taken := idx.names[name]; !taken {
			idx.names[name] = s.ID
		}
	}

	return idx
}

// Resolve prefers a known, non-zero id and falls back to a case-insensitive name match.
func (i StoreIndex) Resolve(id, name string) (string, bool) {
	if id != "" && id != "0" {
		if _, ok := i.ids[id]; ok {
			return id, true
		}
	}

	if name == "" {
		return "", false
	}

	found, ok := i.names[strings.ToLower(name)]

	return found, ok
}

func CouponColumns() []Column {
	return []Column{
		{Name: couponStoreID.Name, Aliases: couponStoreID.Aliases, Required: true, Note: `either "store_id" or "Store Name" is required`},
		{Name: couponStoreName.Name, Aliases: couponStoreName.Aliases, Required: true, Note: "used when store_id is empty or unknown"},
		{Name: couponTitle.Name, Aliases: couponTitle.Aliases, Default: "code"},
		{Name: couponCode.Name, Aliases: couponCode.Aliases},
		{Name: couponDescription.Name, Aliases: couponDescription.Aliases},
		{Name: couponDiscountType.Name, Aliases: couponDiscountType.Aliases, Default: storage.DiscountPercentage},
		{Name: couponDiscountValue.Name, Aliases: couponDiscountValue.Aliases, Default: "0"},
		{Name: couponMaxUses.Name, Aliases: couponMaxUses.Aliases, Default: "100"},
		{Name: couponExpiry.Name, Aliases: couponExpiry.Aliases, Note: "YYYY-MM-DD or MM/DD/YYYY"},
		{Name: couponURL.Name, Aliases: couponURL.Aliases},
		{Name: couponPopular.Name, Aliases: couponPopular.Aliases, Default: "false", Note: "true/1/yes/y/t"},
		{Name: couponLatest.Name, Aliases: couponLatest.Aliases, Default: "false", Note: "true/1/yes/y/t"},
		{Name: couponVerified.Name, Aliases: couponVerified.Aliases, Default: "false"},
		{Name: couponExclusive.Name, Aliases: couponExclusive.Aliases, Default: "false"},
	}
}

// MapCoupons turns table rows into coupon insert records. The header must
// name a store column; rows whose store cannot be resolved are dropped.
// Layout positions are never imported: slots are pinned by explicit
// assignment only.
func MapCoupons(t ingest.Table, stores StoreIndex) (Result[storage.Coupon], error) {
	result := Result[storage.Coupon]{Total: len(t.Rows)}

	if err := requireAny(t, couponStoreID, couponStoreName); err != nil {
		return result, err
	}

	cols := resolve(t, couponFields...)
	result.Records = make([]storage.Coupon, 0, len(t.Rows))

	for _, row := range t.Rows {
		storeID, ok := stores.Resolve(cols.get(row, couponStoreID), cols.get(row, couponStoreName))
		if !ok {
			result.Dropped++

			continue
		}

		coupon := storage.Coupon{
			StoreID:       storeID,
			Title:         cols.get(row, couponTitle),
			Code:          cols.get(row, couponCode),
			Description:   cols.get(row, couponDescription),
			DiscountType:  discountType(cols.get(row, couponDiscountType)),
			DiscountValue: ingest.ParseDecimal(cols.get(row, couponDiscountValue), decimal.Zero),
			MaxUses:       ingest.ParseInt(cols.get(row, couponMaxUses), storage.DefaultMaxUses),
			ExpiryDate:    parseExpiry(cols.get(row, couponExpiry)),
			URL:           cols.get(row, couponURL),
			IsPopular:     ingest.NormalizeBoolean(cols.get(row, couponPopular)),
			IsLatest:      ingest.NormalizeBoolean(cols.get(row, couponLatest)),
			IsVerified:    ingest.NormalizeBoolean(cols.get(row, couponVerified)),
			IsExclusive:   ingest.NormalizeBoolean(cols.get(row, couponExclusive)),
		}

		if coupon.Title == "" {
			coupon.Title = coupon.Code
		}

		result.Records = append(result.Records, coupon)
	}

	return result, nil
}

func discountType(s string) string {
	switch strings.ToLower(s) {
	case storage.DiscountFixed, "amount", "flat":
		return storage.DiscountFixed
	default:
		return storage.DiscountPercentage
	}
}

func parseExpiry(s string) *time.Time {
	if s == "" {
		return nil
	}

	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()

			return &t
		}
	}

	return nil
}
