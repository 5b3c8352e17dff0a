package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/models"
	"github.com/flowbit/nl2sql/internal/rowconv"
)

const (
	DefaultInvoicePageSize = 49
	MaxInvoicePageSize     = 1000
)

// ReadOnlyQuerier runs parameterized SQL read-only. *PostgresService implements it.
type ReadOnlyQuerier interface {
	QueryReadOnly(ctx context.Context, sql string, args ...any) (*QueryResult, error)
}

// AnalyticsService answers the fixed dashboard queries. Every statement is
// written here; user input only ever reaches the database as a bind parameter.
type AnalyticsService struct {
	db ReadOnlyQuerier
}

func NewAnalyticsService(db ReadOnlyQuerier) *AnalyticsService {
	return &AnalyticsService{db: db}
}

const statsSQL = `SELECT
	COUNT(*) AS total_invoices,
	COALESCE(SUM("totalAmount"), 0) AS total_spend,
	COALESCE(SUM("subTotal"), 0) AS total_subtotal,
	COALESCE(SUM("totalTax"), 0) AS total_tax,
	COALESCE(AVG("totalAmount"), 0) AS avg_invoice_value,
	(SELECT COUNT(*) FROM "LineItem") AS total_line_items
FROM "Invoice"`

const invoiceTrendsSQL = `SELECT
	DATE_TRUNC('month', "invoiceDate") AS month,
	COUNT(*) AS count,
	SUM("subTotal") AS subtotal_sum,
	SUM("totalTax") AS tax_sum,
	SUM("totalAmount") AS total_sum
FROM "Invoice"
WHERE "invoiceDate" IS NOT NULL
GROUP BY month
ORDER BY month`

const topVendorsSQL = `SELECT
	COALESCE(v.name, 'Unknown') AS vendor_name,
	COALESCE(v.address, 'Unknown') AS vendor_address,
	COALESCE(SUM(i."totalAmount"), 0) AS total_spend
FROM "Invoice" i
LEFT JOIN "Vendor" v ON v.id = i."vendorId"
GROUP BY i."vendorId", v.name, v.address
ORDER BY SUM(i."totalAmount") DESC NULLS LAST
LIMIT 10`

const categorySpendSQL = `SELECT
	sachkonto AS category,
	SUM("totalPrice") AS total_spend
FROM "LineItem"
WHERE sachkonto IS NOT NULL
GROUP BY sachkonto
ORDER BY total_spend DESC NULLS LAST`

const cashOutflowSQL = `SELECT
	DATE_TRUNC('month', i."invoiceDate") AS month,
	v.name AS vendor_name,
	SUM(i."totalAmount") AS total_outflow
FROM "Invoice" i
JOIN "Vendor" v ON i."vendorId" = v.id
JOIN "Payment" p ON p."invoiceId" = i.id
WHERE i."totalAmount" IS NOT NULL
	AND p."dueDate" IS NOT NULL
GROUP BY DATE_TRUNC('month', i."invoiceDate"), v.name
ORDER BY month, total_outflow DESC`

const invoiceFromSQL = ` FROM "Invoice" i
LEFT JOIN "Vendor" v ON v.id = i."vendorId"
LEFT JOIN "Customer" c ON c.id = i."customerId"`

const invoiceColumns = `i.id, i."invoiceCode", i."invoiceDate", i."deliveryDate", i."documentType",
	i."totalAmount", i."subTotal", i."totalTax", i.currency,
	i."vendorId", v.name AS vendor_name, v.address AS vendor_address,
	i."customerId", c.name AS customer_name`

// Stats summarizes all invoices
func (s *AnalyticsService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	res, err := s.db.QueryReadOnly(ctx, statsSQL)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if len(res.Rows) != 1 {
		return nil, fmt.Errorf("stats: got %d rows, want 1", len(res.Rows))
	}
	rec := rowconv.Normalize(res.Rows[0])

	st := &models.DashboardStats{
		TotalInvoices:   recordInt(rec, "total_invoices"),
		TotalSpend:      recordFloat(rec, "total_spend"),
		TotalSubtotal:   recordFloat(rec, "total_subtotal"),
		TotalTax:        recordFloat(rec, "total_tax"),
		AvgInvoiceValue: recordFloat(rec, "avg_invoice_value"),
		TotalLineItems:  recordInt(rec, "total_line_items"),
	}
	st.DocumentsUploaded = st.TotalInvoices
	if st.TotalSubtotal > 0 {
		st.AvgTaxRate = math.Round(st.TotalTax/st.TotalSubtotal*100*100) / 100
	}
	return st, nil
}

// InvoiceTrends aggregates invoices per calendar month
func (s *AnalyticsService) InvoiceTrends(ctx context.Context) ([]rowconv.Record, error) {
	return s.records(ctx, "invoice trends", invoiceTrendsSQL)
}

// TopVendors ranks the ten vendors with the highest invoiced total
func (s *AnalyticsService) TopVendors(ctx context.Context) ([]rowconv.Record, error) {
	return s.records(ctx, "top vendors", topVendorsSQL)
}

// CategorySpend sums line items per ledger account (sachkonto)
func (s *AnalyticsService) CategorySpend(ctx context.Context) ([]rowconv.Record, error) {
	return s.records(ctx, "category spend", categorySpendSQL)
}

// CashOutflow sums invoices with a scheduled payment per month and vendor
func (s *AnalyticsService) CashOutflow(ctx context.Context) ([]rowconv.Record, error) {
	return s.records(ctx, "cash outflow", cashOutflowSQL)
}

// Invoices returns one page of invoices, newest first. A non-empty search
// matches the invoice code or vendor name (case-insensitive substring), the
// total amount within 5% when the search is a number, and the invoice day
// when it is a date.
func (s *AnalyticsService) Invoices(ctx context.Context, f models.InvoiceFilter) (*models.InvoicePage, error) {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultInvoicePageSize
	}
	if f.Page < 1 {
		return nil, apperr.UserInput("page must be a positive integer")
	}
	if f.PageSize < 1 || f.PageSize > MaxInvoicePageSize {
		return nil, apperr.UserInput(fmt.Sprintf("pageSize must be between 1 and %d", MaxInvoicePageSize))
	}

	where, args := invoiceWhere(f.Search)

	countRes, err := s.db.QueryReadOnly(ctx, `SELECT COUNT(*) AS total`+invoiceFromSQL+where, args...)
	if err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}
	var total int64
	if len(countRes.Rows) == 1 {
		total = recordInt(rowconv.Normalize(countRes.Rows[0]), "total")
	}

	n := len(args)
	listSQL := `SELECT ` + invoiceColumns + invoiceFromSQL + where +
		fmt.Sprintf(` ORDER BY i."invoiceDate" DESC NULLS LAST, i.id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	listArgs := append(append([]any(nil), args...), f.PageSize, (f.Page-1)*f.PageSize)

	res, err := s.db.QueryReadOnly(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	return &models.InvoicePage{
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
		Data:     normalizeAll(res),
	}, nil
}

func (s *AnalyticsService) records(ctx context.Context, name, sql string) ([]rowconv.Record, error) {
	res, err := s.db.QueryReadOnly(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return normalizeAll(res), nil
}

func normalizeAll(res *QueryResult) []rowconv.Record {
	out := make([]rowconv.Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, rowconv.Normalize(row))
	}
	return out
}

// invoiceWhere builds the search predicate and its bind parameters
func invoiceWhere(search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}

	args := []any{likePattern(search)}
	conds := []string{`i."invoiceCode" ILIKE $1`, `v.name ILIKE $1`}

	if amount, ok := parseAmount(search); ok {
		args = append(args, amount)
		n := len(args)
		conds = append(conds, fmt.Sprintf(`i."totalAmount" BETWEEN $%d::float8 * 0.95 AND $%d::float8 * 1.05`, n, n))
	}
	if day, ok := parseDay(search); ok {
		args = append(args, day)
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(i."invoiceDate" >= $%d::date AND i."invoiceDate" < $%d::date + 1)`, n, n))
	}

	return "\nWHERE " + strings.Join(conds, " OR "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches s literally anywhere in the column
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

var amountCleaner = strings.NewReplacer("€", "", ",", "")

// parseAmount accepts "1,250.00", "€ 99" and plain numbers
func parseAmount(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(amountCleaner.Replace(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var dayLayouts = []string{"2006-01-02", time.RFC3339, "02.01.2006"}

// parseDay returns the UTC calendar day named by s
func parseDay(s string) (time.Time, bool) {
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func recordInt(rec rowconv.Record, key string) int64 {
	v, _ := rec.Get(key)
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		return int64(x)
	}
	return 0
}

func recordFloat(rec rowconv.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	}
	return 0
}
