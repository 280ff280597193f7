package models

import (
	"bytes"
	"encoding/json"
)

// Requests and responses for the data browsing endpoints.

type DatabaseStats struct {
	TotalRecords    int64             `json:"totalRecords"`
	DateRange       map[string]string `json:"dateRange"`
	UniqueProducts  int64             `json:"uniqueProducts"`
	UniqueCustomers int64             `json:"uniqueCustomers"`
	UniqueLocations int64             `json:"uniqueLocations"`
}

type DimensionOptions struct {
	Products  []string `json:"products"`
	Customers []string `json:"customers"`
	Locations []string `json:"locations"`
}

type FilteredOptionsRequest struct {
	SelectedProducts  []string `json:"selectedProducts"`
	SelectedCustomers []string `json:"selectedCustomers"`
	SelectedLocations []string `json:"selectedLocations"`
}

type DataViewRequest struct {
	Product   string `json:"product"`
	Customer  string `json:"customer"`
	Location  string `json:"location"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Page      int    `json:"page" default:"1" validate:"gte=1"`
	PageSize  int    `json:"page_size" default:"50" validate:"gte=1,lte=1000"`
}

type DataViewRow struct {
	ID             uint64   `json:"id"`
	Product        string   `json:"product"`
	Quantity       float64  `json:"quantity"`
	ProductGroup   string   `json:"product_group"`
	Location       string   `json:"location"`
	LocationRegion string   `json:"location_region"`
	Customer       string   `json:"customer"`
	CustomerGroup  string   `json:"customer_group"`
	UOM            string   `json:"uom"`
	Date           string   `json:"date"`
	UnitPrice      *float64 `json:"unit_price"`
	CreatedAt      string   `json:"created_at"`
}

type DataViewResponse struct {
	Data         []DataViewRow `json:"data"`
	TotalRecords int64         `json:"total_records"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
	TotalPages   int64         `json:"total_pages"`
}

type AccuracyHistoryRequest struct {
	ConfigHash string `param:"config_hash" validate:"required,hexadecimal"`
	DaysBack   int    `query:"days_back" default:"30" validate:"gte=1,lte=3650"`
}

type ExternalFactorsResponse struct {
	ExternalFactors []string `json:"external_factors"`
}

type AlgorithmsResponse struct {
	Algorithms AlgorithmCatalog `json:"algorithms"`
}

type AlgorithmInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AlgorithmCatalog marshals as a JSON object {id: name} keeping slice order.
type AlgorithmCatalog []AlgorithmInfo

func (c AlgorithmCatalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type JobAccepted struct {
	JobID      string `json:"job_id"`
	ConfigHash string `json:"config_hash"`
}

// StreamMessage is one frame of the forecast progress websocket.
type StreamMessage struct {
	Type     string         `json:"type"` // progress, result or error
	Progress *ProgressEvent `json:"progress,omitempty"`
	Result   interface{}    `json:"result,omitempty"`
	Error    interface{}    `json:"error,omitempty"`
}
