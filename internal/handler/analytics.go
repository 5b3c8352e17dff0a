package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/models"
	"github.com/flowbit/nl2sql/internal/rowconv"
	"github.com/rs/zerolog"
)

// Analytics answers the fixed dashboard queries. *service.AnalyticsService implements it.
type Analytics interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	InvoiceTrends(ctx context.Context) ([]rowconv.Record, error)
	TopVendors(ctx context.Context) ([]rowconv.Record, error)
	CategorySpend(ctx context.Context) ([]rowconv.Record, error)
	CashOutflow(ctx context.Context) ([]rowconv.Record, error)
	Invoices(ctx context.Context, f models.InvoiceFilter) (*models.InvoicePage, error)
}

// AnalyticsHandler serves the dashboard endpoints
type AnalyticsHandler struct {
	svc Analytics
}

func NewAnalyticsHandler(svc Analytics) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Stats handles GET /stats
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeAnalyticsError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, st)
}

// InvoiceTrends handles GET /invoice-trends
func (h *AnalyticsHandler) InvoiceTrends(w http.ResponseWriter, r *http.Request) {
	h.writeRecords(w, r, h.svc.InvoiceTrends)
}

// TopVendors handles GET /vendors/top10
func (h *AnalyticsHandler) TopVendors(w http.ResponseWriter, r *http.Request) {
	h.writeRecords(w, r, h.svc.TopVendors)
}

// CategorySpend handles GET /category-spend
func (h *AnalyticsHandler) CategorySpend(w http.ResponseWriter, r *http.Request) {
	h.writeRecords(w, r, h.svc.CategorySpend)
}

// CashOutflow handles GET /cash-outflow
func (h *AnalyticsHandler) CashOutflow(w http.ResponseWriter, r *http.Request) {
	h.writeRecords(w, r, h.svc.CashOutflow)
}

// Invoices handles GET /invoices?search=&page=&pageSize=
func (h *AnalyticsHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.InvoiceFilter{Search: q.Get("search")}

	var err error
	if f.Page, err = queryInt(q.Get("page")); err != nil {
		models.WriteError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if f.PageSize, err = queryInt(q.Get("pageSize")); err != nil {
		models.WriteError(w, http.StatusBadRequest, "pageSize must be an integer")
		return
	}

	page, err := h.svc.Invoices(r.Context(), f)
	if err != nil {
		writeAnalyticsError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, page)
}

func (h *AnalyticsHandler) writeRecords(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]rowconv.Record, error)) {
	recs, err := fetch(r.Context())
	if err != nil {
		writeAnalyticsError(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, recs)
}

// queryInt treats an absent parameter as zero, the service default
func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeAnalyticsError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.As(err)
	status := apperr.HTTPStatus(appErr.Kind)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("analytics query failed")
	}
	models.WriteError(w, status, appErr.Message)
}
