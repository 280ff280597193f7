package models

import (
	"fmt"
	"strings"
	"time"
)

// Dimension names one of the categorical business axes a record carries.
type Dimension string

const (
	DimProduct  Dimension = "product"
	DimCustomer Dimension = "customer"
	DimLocation Dimension = "location"
)

// IsValid reports whether d is one of the three supported dimensions.
func (d Dimension) IsValid() bool {
	switch d {
	case DimProduct, DimCustomer, DimLocation:
		return true
	default:
		return false
	}
}

// RawRecord is one transactional observation as stored in the records table.
type RawRecord struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Product  string    `json:"product"`
	Customer string    `json:"customer"`
	Location string    `json:"location"`

	// descriptive attributes, only surfaced by the data view
	ProductGroup   string   `json:"product_group,omitempty"`
	CustomerGroup  string   `json:"customer_group,omitempty"`
	LocationRegion string   `json:"location_region,omitempty"`
	UOM            string   `json:"uom,omitempty"`
	UnitPrice      *float64 `json:"unit_price,omitempty"`
}

// Value returns the record's value for the given dimension.
func (r RawRecord) Value(d Dimension) string {
	switch d {
	case DimProduct:
		return r.Product
	case DimCustomer:
		return r.Customer
	case DimLocation:
		return r.Location
	default:
		return ""
	}
}

// ExternalFactor is a dated numeric observation of a named exogenous series.
type ExternalFactor struct {
	Date        time.Time `json:"date"`
	FactorName  string    `json:"factor_name"`
	FactorValue float64   `json:"factor_value"`
}

// RecordFilter narrows a record query. Empty slices mean "no constraint".
type RecordFilter struct {
	Products  []string
	Customers []string
	Locations []string
	From      *time.Time
	To        *time.Time
}

// IsEmpty reports whether the filter constrains nothing.
func (f RecordFilter) IsEmpty() bool {
	return len(f.Products) == 0 && len(f.Customers) == 0 && len(f.Locations) == 0 && f.From == nil && f.To == nil
}

// IngestRecord is the wire shape accepted on the ingest topic.
type IngestRecord struct {
	Date           string   `json:"date"`
	Quantity       float64  `json:"quantity"`
	Product        string   `json:"product"`
	Customer       string   `json:"customer"`
	Location       string   `json:"location"`
	ProductGroup   string   `json:"product_group,omitempty"`
	CustomerGroup  string   `json:"customer_group,omitempty"`
	LocationRegion string   `json:"location_region,omitempty"`
	UOM            string   `json:"uom,omitempty"`
	UnitPrice      *float64 `json:"unit_price,omitempty"`
}

// ToRawRecord validates the message and converts it into a RawRecord.
func (m IngestRecord) ToRawRecord() (*RawRecord, error) {
	if strings.TrimSpace(m.Product) == "" || strings.TrimSpace(m.Customer) == "" || strings.TrimSpace(m.Location) == "" {
		return nil, fmt.Errorf("record dimensions must be non-empty")
	}
	if m.Quantity < 0 {
		return nil, fmt.Errorf("record quantity must be >= 0, got %v", m.Quantity)
	}
	d, err := ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	return &RawRecord{
		Date:           d,
		Quantity:       m.Quantity,
		Product:        m.Product,
		Customer:       m.Customer,
		Location:       m.Location,
		ProductGroup:   m.ProductGroup,
		CustomerGroup:  m.CustomerGroup,
		LocationRegion: m.LocationRegion,
		UOM:            m.UOM,
		UnitPrice:      m.UnitPrice,
	}, nil
}

// IngestFactor is the wire shape accepted on the factor ingest topic.
type IngestFactor struct {
	Date        string  `json:"date"`
	FactorName  string  `json:"factor_name"`
	FactorValue float64 `json:"factor_value"`
}

// ToExternalFactor validates the message and converts it.
func (m IngestFactor) ToExternalFactor() (*ExternalFactor, error) {
	if strings.TrimSpace(m.FactorName) == "" {
		return nil, fmt.Errorf("factor name must be non-empty")
	}
	d, err := ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	return &ExternalFactor{Date: d, FactorName: m.FactorName, FactorValue: m.FactorValue}, nil
}

// DateLayout is the calendar date format used on every API boundary.
const DateLayout = "2006-01-02"

// ParseDate accepts a bare calendar date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}
