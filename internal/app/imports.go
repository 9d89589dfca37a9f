package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Fuchsoria/couponslots/internal/importer"
	"github.com/Fuchsoria/couponslots/internal/ingest"
	"github.com/Fuchsoria/couponslots/internal/storage"
)

const (
	EntityCoupons = "coupons"
	EntityStores  = "stores"
)

// Preview is what an operator sees before submitting an upload.
type Preview[T any] struct {
	Format  string `json:"format"`
	Total   int    `json:"total"`
	Dropped int    `json:"dropped"`
	Records []T    `json:"records"`
}

type ImportReport struct {
	Entity   string `json:"entity"`
	Format   string `json:"format"`
	Total    int    `json:"total"`
	Inserted int    `json:"inserted"`
	Dropped  int    `json:"dropped"`
}

func newPreview[T any](filename string, res importer.Result[T]) Preview[T] {
	return Preview[T]{
		Format:  ingest.DetectFormat(filename).String(),
		Total:   res.Total,
		Dropped: res.Dropped,
		Records: res.Preview(ingest.DefaultPreviewRows),
	}
}

func (a *App) mapCoupons(ctx context.Context, filename string, data []byte) (importer.Result[storage.Coupon], error) {
	table, err := ingest.Decode(filename, data)
	if err != nil {
		return importer.Result[storage.Coupon]{}, err
	}

	stores, err := a.storage.ListStores(ctx)
	if err != nil {
		return importer.Result[storage.Coupon]{}, fmt.Errorf("cannot load stores, %w", err)
	}

	return importer.MapCoupons(table, importer.NewStoreIndex(stores))
}

func (a *App) mapStores(filename string, data []byte) (importer.Result[storage.Store], error) {
	table, err := ingest.Decode(filename, data)
	if err != nil {
		return importer.Result[storage.Store]{}, err
	}

	return importer.MapStores(table)
}

func (a *App) PreviewCoupons(ctx context.Context, filename string, data []byte) (Preview[storage.Coupon], error) {
	res, err := a.mapCoupons(ctx, filename, data)
	if err != nil {
		return Preview[storage.Coupon]{}, err
	}

	return newPreview(filename, res), nil
}

func (a *App) PreviewStores(filename string, data []byte) (Preview[storage.Store], error) {
	res, err := a.mapStores(filename, data)
	if err != nil {
		return Preview[storage.Store]{}, err
	}

	return newPreview(filename, res), nil
}

// ImportCoupons maps the upload and inserts every surviving row in one batch.
func (a *App) ImportCoupons(ctx context.Context, filename string, data []byte) (ImportReport, error) {
	report := ImportReport{Entity: EntityCoupons, Format: ingest.DetectFormat(filename).String()}

	res, err := a.mapCoupons(ctx, filename, data)
	if err != nil {
		return report, err
	}

	report.Total, report.Dropped = res.Total, res.Dropped

	if len(res.Records) > 0 {
		ids, err := a.storage.BulkInsertCoupons(ctx, res.Records)
		if err != nil {
			return report, fmt.Errorf("cannot insert coupons, %w", err)
		}

		report.Inserted = len(ids)
	}

	a.imported(ctx, report)

	return report, nil
}

func (a *App) ImportStores(ctx context.Context, filename string, data []byte) (ImportReport, error) {
	report := ImportReport{Entity: EntityStores, Format: ingest.DetectFormat(filename).String()}

	res, err := a.mapStores(filename, data)
	if err != nil {
		return report, err
	}

	report.Total, report.Dropped = res.Total, res.Dropped

	if len(res.Records) > 0 {
		ids, err := a.storage.BulkInsertStores(ctx, res.Records)
		if err != nil {
			return report, fmt.Errorf("cannot insert stores, %w", err)
		}

		report.Inserted = len(ids)
	}

	a.imported(ctx, report)

	return report, nil
}

func (a *App) imported(ctx context.Context, report ImportReport) {
	a.logger.Info("import completed",
		"entity", report.Entity, "total", report.Total, "inserted", report.Inserted, "dropped", report.Dropped)

	a.publish(ctx, EventImportCompleted, ImportEvent{
		Entity:   report.Entity,
		Total:    report.Total,
		Inserted: report.Inserted,
		Dropped:  report.Dropped,
		Date:     time.Now().UTC(),
	})
}

func (a *App) ImportColumns(entity string) ([]importer.Column, error) {
	return Columns(entity)
}

func (a *App) ImportTemplate(entity string) (string, error) {
	return Template(entity)
}

// Columns lists the upload columns accepted for entity.
func Columns(entity string) ([]importer.Column, error) {
	switch entity {
	case EntityCoupons:
		return importer.CouponColumns(), nil
	case EntityStores:
		return importer.StoreColumns(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
}

// Template is a header-only CSV file for entity.
func Template(entity string) (string, error) {
	cols, err := Columns(entity)
	if err != nil {
		return "", err
	}

	return importer.Template(cols), nil
}
