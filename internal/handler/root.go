package handler

import (
	"net/http"

	"github.com/flowbit/nl2sql/internal/models"
)

// Root handles GET /
func Root(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.ServiceInfo{
		Service: "nl2sql",
		Version: version,
		Endpoints: map[string]string{
			"POST /query":         "Convert natural language to SQL and run it",
			"GET /health":         "Health check",
			"GET /metrics":        "Prometheus metrics",
			"GET /stats":          "Invoice totals and averages",
			"GET /invoice-trends": "Monthly invoice aggregates",
			"GET /vendors/top10":  "Vendors ranked by invoiced total",
			"GET /category-spend": "Line item spend by ledger account",
			"GET /cash-outflow":   "Monthly outflow per vendor for invoices with payments",
			"GET /invoices":       "Paginated invoice search",
		},
	})
}
