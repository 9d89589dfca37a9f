package importer

import (
	"github.com/Fuchsoria/couponslots/internal/ingest"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/shopspring/decimal"
)

var (
	storeName        = ingest.Field{Name: "name", Aliases: []string{"store name", "store_name", "title"}}
	storeSlug        = ingest.Field{Name: "slug"}
	storeDescription = ingest.Field{Name: "description", Aliases: []string{"about"}}
	storeWebsite     = ingest.Field{Name: "website", Aliases: []string{"url", "website url", "website_url"}}
	storeLogo        = ingest.Field{Name: "logo", Aliases: []string{"logo_url", "logo url", "image"}}
	storeTrending    = ingest.Field{Name: "is_trending", Aliases: []string{"trending"}}
	storeCashback    = ingest.Field{Name: "cashback", Aliases: []string{"cashback_rate", "cashback rate"}}

	storeFields = []ingest.Field{
		storeName, storeSlug, storeDescription, storeWebsite, storeLogo, storeTrending, storeCashback,
	}
)

func StoreColumns() []Column {
	return []Column{
		{Name: storeName.Name, Aliases: storeName.Aliases, Required: true},
		{Name: storeSlug.Name, Default: "derived from name"},
		{Name: storeDescription.Name, Aliases: storeDescription.Aliases},
		{Name: storeWebsite.Name, Aliases: storeWebsite.Aliases},
		{Name: storeLogo.Name, Aliases: storeLogo.Aliases},
		{Name: storeTrending.Name, Aliases: storeTrending.Aliases, Default: "false", Note: "true/1/yes/y/t"},
		{Name: storeCashback.Name, Aliases: storeCashback.Aliases, Default: "0"},
	}
}

// MapStores turns table rows into store insert records, dropping rows
// without a name.
func MapStores(t ingest.Table) (Result[storage.Store], error) {
	result := Result[storage.Store]{Total: len(t.Rows)}

	if err := requireAny(t, storeName); err != nil {
		return result, err
	}

	cols := resolve(t, storeFields...)
	result.Records = make([]storage.Store, 0, len(t.Rows))

	for _, row := range t.Rows {
		name := cols.get(row, storeName)
		if name == "" {
			result.Dropped++

			continue
		}

		slug := cols.get(row, storeSlug)
		if slug == "" {
			slug = Slugify(name)
		}

		result.Records = append(result.Records, storage.Store{
			Name:        name,
			Slug:        slug,
			Description: cols.get(row, storeDescription),
			WebsiteURL:  cols.get(row, storeWebsite),
			LogoURL:     cols.get(row, storeLogo),
			IsTrending:  ingest.NormalizeBoolean(cols.get(row, storeTrending)),
			Cashback:    ingest.ParseDecimal(cols.get(row, storeCashback), decimal.Zero),
		})
	}

	return result, nil
}

// Template returns a CSV file holding only the header row of the given columns.
func Template(cols []Column) string {
	header := make([]string, 0, len(cols))
	for _, c := range cols {
		header = append(header, c.Name)
	}

	return ingest.Serialize([][]string{header}) + "\n"
}
