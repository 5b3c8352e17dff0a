package models

import "github.com/flowbit/nl2sql/internal/rowconv"

// ChatResponse is returned by POST /query
type ChatResponse struct {
	Query        string           `json:"query"`
	GeneratedSQL string           `json:"generated_sql"`
	Results      []rowconv.Record `json:"results"`
	RowCount     int              `json:"row_count"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ServiceInfo is returned by GET /
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
