package models

import "github.com/flowbit/nl2sql/internal/rowconv"

// DashboardStats is returned by GET /stats
type DashboardStats struct {
	TotalInvoices     int64   `json:"total_invoices"`
	DocumentsUploaded int64   `json:"documents_uploaded"`
	TotalSpend        float64 `json:"total_spend"`
	TotalSubtotal     float64 `json:"total_subtotal"`
	TotalTax          float64 `json:"total_tax"`
	AvgInvoiceValue   float64 `json:"avg_invoice_value"`
	// AvgTaxRate is total tax over subtotal in percent, two decimals
	AvgTaxRate     float64 `json:"avg_tax_rate"`
	TotalLineItems int64   `json:"total_line_items"`
}

// InvoiceFilter selects one page of GET /invoices
type InvoiceFilter struct {
	Search   string
	Page     int
	PageSize int
}

// InvoicePage is returned by GET /invoices
type InvoicePage struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Data     []rowconv.Record `json:"data"`
}
