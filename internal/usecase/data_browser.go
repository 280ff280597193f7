package usecase

import (
	"context"
	"fmt"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
)

// DataBrowser serves the read-only views over stored records and factors.
type DataBrowser struct {
	records domrepo.RecordStore
	factors domrepo.FactorStore
}

func NewDataBrowser(records domrepo.RecordStore, factors domrepo.FactorStore) *DataBrowser {
	return &DataBrowser{records: records, factors: factors}
}

func (b *DataBrowser) Stats(ctx context.Context) (*models.DatabaseStats, error) {
	st, err := b.records.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("database stats: %w", err)
	}
	return st, nil
}

// Options lists every distinct product, customer and location.
func (b *DataBrowser) Options(ctx context.Context) (*models.DimensionOptions, error) {
	return b.FilteredOptions(ctx, models.FilteredOptionsRequest{})
}

// FilteredOptions lists the dimension values that co-occur with the
// selected ones.
func (b *DataBrowser) FilteredOptions(ctx context.Context, req models.FilteredOptionsRequest) (*models.DimensionOptions, error) {
	opts, err := b.records.Options(ctx, models.RecordFilter{
		Products:  req.SelectedProducts,
		Customers: req.SelectedCustomers,
		Locations: req.SelectedLocations,
	})
	if err != nil {
		return nil, fmt.Errorf("dimension options: %w", err)
	}
	return opts, nil
}

// View returns one page of records. Page and size are clamped to sane values.
func (b *DataBrowser) View(ctx context.Context, req models.DataViewRequest) (*models.DataViewResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 50
	}
	if req.StartDate != "" && req.EndDate != "" && req.StartDate > req.EndDate {
		return nil, models.NewDomainError(models.ErrInvalidSelection, "start_date must not be after end_date")
	}
	res, err := b.records.View(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("view records: %w", err)
	}
	return res, nil
}

func (b *DataBrowser) ExternalFactors(ctx context.Context) (*models.ExternalFactorsResponse, error) {
	names, err := b.factors.FactorNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("factor names: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return &models.ExternalFactorsResponse{ExternalFactors: names}, nil
}

// Health pings the record store.
func (b *DataBrowser) Health(ctx context.Context) error {
	return b.records.Health(ctx)
}
