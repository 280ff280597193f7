package models

// ForecastConfig describes one forecast request. It doubles as the HTTP body.
type ForecastConfig struct {
	ForecastBy        string   `json:"forecastBy" default:"product" validate:"oneof=product customer location"`
	SelectedItem      string   `json:"selectedItem,omitempty"`
	SelectedProduct   string   `json:"selectedProduct,omitempty"`
	SelectedCustomer  string   `json:"selectedCustomer,omitempty"`
	SelectedLocation  string   `json:"selectedLocation,omitempty"`
	SelectedProducts  []string `json:"selectedProducts,omitempty"`
	SelectedCustomers []string `json:"selectedCustomers,omitempty"`
	SelectedLocations []string `json:"selectedLocations,omitempty"`
	SelectedItems     []string `json:"selectedItems,omitempty"`
	Algorithm         string   `json:"algorithm" default:"linear_regression" validate:"required"`
	Interval          string   `json:"interval" default:"month"`
	HistoricPeriod    int      `json:"historicPeriod" default:"12" validate:"gte=1,lte=520"`
	ForecastPeriod    int      `json:"forecastPeriod" default:"6" validate:"gte=1,lte=260"`
	MultiSelect       bool     `json:"multiSelect"`
	AdvancedMode      bool     `json:"advancedMode"`
	ExternalFactors   []string `json:"externalFactors,omitempty"`
}

// WithDefaults fills zero values the way the HTTP layer would.
func (c ForecastConfig) WithDefaults() ForecastConfig {
	if c.ForecastBy == "" {
		c.ForecastBy = string(DimProduct)
	}
	if c.Algorithm == "" {
		c.Algorithm = "linear_regression"
	}
	if c.Interval == "" {
		c.Interval = string(DefaultInterval())
	}
	if c.HistoricPeriod <= 0 {
		c.HistoricPeriod = 12
	}
	if c.ForecastPeriod <= 0 {
		c.ForecastPeriod = 6
	}
	return c
}

// IntervalValue returns the normalised interval.
func (c ForecastConfig) IntervalValue() Interval { return NormalizeInterval(c.Interval) }

// Dimension returns forecastBy as a Dimension.
func (c ForecastConfig) Dimension() Dimension { return Dimension(c.ForecastBy) }

// SelectedDimensions lists the dimensions with a non-empty multi selection,
// always in product, customer, location order.
func (c ForecastConfig) SelectedDimensions() []Dimension {
	var out []Dimension
	if len(c.SelectedProducts) > 0 {
		out = append(out, DimProduct)
	}
	if len(c.SelectedCustomers) > 0 {
		out = append(out, DimCustomer)
	}
	if len(c.SelectedLocations) > 0 {
		out = append(out, DimLocation)
	}
	return out
}

// SelectedValues returns the multi selection for d.
func (c ForecastConfig) SelectedValues(d Dimension) []string {
	switch d {
	case DimProduct:
		return c.SelectedProducts
	case DimCustomer:
		return c.SelectedCustomers
	case DimLocation:
		return c.SelectedLocations
	default:
		return nil
	}
}

// ForItem narrows c to a single value of forecastBy.
func (c ForecastConfig) ForItem(item string) ForecastConfig {
	return ForecastConfig{
		ForecastBy:      c.ForecastBy,
		SelectedItem:    item,
		Algorithm:       c.Algorithm,
		Interval:        c.Interval,
		HistoricPeriod:  c.HistoricPeriod,
		ForecastPeriod:  c.ForecastPeriod,
		ExternalFactors: c.ExternalFactors,
	}
}

// Narrowed drops every selection, keeping only the run parameters. It is the
// view each combination of a multi-dimension sweep runs under.
func (c ForecastConfig) Narrowed() ForecastConfig {
	return ForecastConfig{
		ForecastBy:      c.ForecastBy,
		Algorithm:       c.Algorithm,
		Interval:        c.Interval,
		HistoricPeriod:  c.HistoricPeriod,
		ForecastPeriod:  c.ForecastPeriod,
		ExternalFactors: c.ExternalFactors,
	}
}

// WithAlgorithm returns a copy of c running a different algorithm.
func (c ForecastConfig) WithAlgorithm(id string) ForecastConfig {
	c.Algorithm = id
	return c
}

// LoadFilter is the record filter of a single-series request: the multi
// selection of forecastBy when multiSelect is on, else the selected value of
// forecastBy, else selectedItem.
func (c ForecastConfig) LoadFilter() RecordFilter {
	d := c.Dimension()
	var vals []string
	switch {
	case c.MultiSelect && len(c.SelectedValues(d)) > 0:
		vals = c.SelectedValues(d)
	case c.selectedSingle(d) != "":
		vals = []string{c.selectedSingle(d)}
	case c.SelectedItem != "":
		vals = []string{c.SelectedItem}
	}
	var f RecordFilter
	switch d {
	case DimProduct:
		f.Products = vals
	case DimCustomer:
		f.Customers = vals
	case DimLocation:
		f.Locations = vals
	}
	return f
}

func (c ForecastConfig) selectedSingle(d Dimension) string {
	switch d {
	case DimProduct:
		return c.SelectedProduct
	case DimCustomer:
		return c.SelectedCustomer
	case DimLocation:
		return c.SelectedLocation
	default:
		return ""
	}
}
