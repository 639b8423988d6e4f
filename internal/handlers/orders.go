package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/agrilot/api/internal/domain"
	"github.com/agrilot/api/internal/platform/httpx"
	"github.com/agrilot/api/internal/platform/pagination"
	"github.com/agrilot/api/internal/services"
)

const (
	defaultOrderPageSize  = 20
	maxOrderPageSize      = 100
	maxOrderBodySize      = 64 * 1024
	maxTransitionBodySize = 4 * 1024
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

type createOrderRequest struct {
	OrderNumber           string             `json:"order_number"`
	ClientName            string             `json:"client_name"`
	RequestedDeliveryDate string             `json:"requested_delivery_date"`
	Priority              string             `json:"priority"`
	Items                 []orderItemRequest `json:"items"`
	Notes                 string             `json:"notes"`
}

type orderItemRequest struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	ProcessingTime int     `json:"processing_time"`
}

type transitionStatusRequest struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status"`
}

// OrderHandlers exposes order intake, reads, status transitions, and the
// provisioning retry surface.
type OrderHandlers struct {
	orders      services.OrderService
	provisioner services.ProvisioningService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, provisioner services.ProvisioningService) *OrderHandlers {
	return &OrderHandlers{
		orders:      orders,
		provisioner: provisioner,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/status", h.transitionStatus)
	r.Get("/{orderID}/provisioning", h.provisioningStatus)
	r.Post("/{orderID}/provisioning:retry", h.retryProvisioning)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	cmd := services.CreateOrderCommand{
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		ClientName:  req.ClientName,
		Priority:    strings.TrimSpace(req.Priority),
		Notes:       req.Notes,
	}
	if raw := strings.TrimSpace(req.RequestedDeliveryDate); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "requested_delivery_date must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.RequestedDeliveryDate = &ts
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.OrderItemInput{
			Name:           item.Name,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			ProcessingTime: item.ProcessingTime,
		})
	}

	order, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()

	var statuses []domain.OrderStatus
	for _, raw := range parseFilterValues(query["status"]) {
		status := domain.OrderStatus(raw)
		if !domain.ValidOrderStatus(status) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("unknown order status %q", raw), http.StatusBadRequest))
			return
		}
		statuses = append(statuses, status)
	}

	filter := services.OrderListQuery{
		Status:     statuses,
		ClientName: strings.TrimSpace(query.Get("client_name")),
	}

	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.To = &ts
	}

	pageParams, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		switch {
		case errors.Is(err, pagination.ErrInvalidPageSize):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
		case errors.Is(err, pagination.ErrInvalidPageToken):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_token is not valid", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}
	filter.Pagination = domain.Pagination{
		PageSize:  pageParams.PageSize,
		PageToken: pageParams.PageToken,
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) transitionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxTransitionBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req transitionStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	target := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !domain.ValidOrderStatus(target) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	cmd := services.OrderStatusTransitionCommand{
		OrderID:      orderID,
		TargetStatus: target,
	}
	if raw := strings.ToLower(strings.TrimSpace(req.ExpectedStatus)); raw != "" {
		expected := domain.OrderStatus(raw)
		if !domain.ValidOrderStatus(expected) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expected_status must be a valid order status", http.StatusBadRequest))
			return
		}
		cmd.ExpectedStatus = &expected
	}

	order, err := h.orders.TransitionStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) provisioningStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.provisioner == nil {
		httpx.WriteError(ctx, w, httpx.NewError("provisioning_unavailable", "provisioning service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	log, err := h.provisioner.Status(ctx, orderID)
	if err != nil {
		writeProvisionError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProvisionLogPayload(log))
}

func (h *OrderHandlers) retryProvisioning(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.provisioner == nil {
		httpx.WriteError(ctx, w, httpx.NewError("provisioning_unavailable", "provisioning service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	result, err := h.provisioner.Retry(ctx, orderID)
	if err != nil {
		writeProvisionError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildProvisionResultPayload(result))
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	ClientName  string `json:"client_name"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Progress    int    `json:"progress"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID                    string             `json:"id"`
	OrderNumber           string             `json:"order_number"`
	ClientName            string             `json:"client_name"`
	RequestedDeliveryDate string             `json:"requested_delivery_date"`
	Priority              string             `json:"priority"`
	Status                string             `json:"status"`
	Items                 []orderItemPayload `json:"items"`
	Notes                 string             `json:"notes,omitempty"`
	Progress              int                `json:"progress"`
	TotalProcessingTime   int                `json:"total_processing_time"`
	Links                 orderLinksPayload  `json:"links"`
	CreatedAt             string             `json:"created_at"`
	UpdatedAt             string             `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit,omitempty"`
	ProcessingTime int     `json:"processing_time,omitempty"`
}

type orderLinksPayload struct {
	ProductionLotID    *string `json:"production_lot_id,omitempty"`
	QualitySharedLotID *string `json:"quality_shared_lot_id,omitempty"`
	QualityLotID       *string `json:"quality_lot_id,omitempty"`
	WasteTrackingLotID *string `json:"waste_tracking_lot_id,omitempty"`
	NewEntryLotID      *string `json:"new_entry_lot_id,omitempty"`
}

type provisionStepPayload struct {
	Variant  string `json:"variant"`
	Status   string `json:"status"`
	ResultID string `json:"result_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type provisionLogPayload struct {
	OrderID      string                 `json:"order_id"`
	OrderNumber  string                 `json:"order_number"`
	Steps        []provisionStepPayload `json:"steps"`
	LinkbackDone bool                   `json:"linkback_done"`
	FallbackDone bool                   `json:"fallback_done"`
	Attempts     int                    `json:"attempts"`
	LastError    string                 `json:"last_error,omitempty"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at,omitempty"`
}

type provisionResultPayload struct {
	OrderID      string            `json:"order_id"`
	OrderNumber  string            `json:"order_number"`
	LotIDs       map[string]string `json:"lot_ids"`
	Errors       map[string]string `json:"errors,omitempty"`
	LinkbackDone bool              `json:"linkback_done"`
	FallbackDone bool              `json:"fallback_done"`
	Complete     bool              `json:"complete"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		ClientName:  order.ClientName,
		Status:      string(order.Status),
		Priority:    string(order.Priority),
		Progress:    order.Progress,
		CreatedAt:   formatTimestamp(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			Name:           item.Name,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			ProcessingTime: item.ProcessingTime,
		})
	}

	return orderPayload{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		ClientName:            order.ClientName,
		RequestedDeliveryDate: formatTimestamp(order.RequestedDeliveryDate),
		Priority:              string(order.Priority),
		Status:                string(order.Status),
		Items:                 items,
		Notes:                 order.Notes,
		Progress:              order.Progress,
		TotalProcessingTime:   order.TotalProcessingTime,
		Links: orderLinksPayload{
			ProductionLotID:    order.LinkedProductionLotID,
			QualitySharedLotID: order.LinkedQualitySharedLotID,
			QualityLotID:       order.LinkedQualityLotID,
			WasteTrackingLotID: order.LinkedWasteTrackingLotID,
			NewEntryLotID:      order.LinkedNewEntryLotID,
		},
		CreatedAt: formatTimestamp(order.CreatedAt),
		UpdatedAt: formatTimestamp(order.UpdatedAt),
	}
}

func buildProvisionLogPayload(log domain.ProvisionLog) provisionLogPayload {
	steps := make([]provisionStepPayload, 0, len(log.Steps))
	for _, step := range log.Steps {
		steps = append(steps, provisionStepPayload{
			Variant:  string(step.Variant),
			Status:   string(step.Status),
			ResultID: step.ResultID,
			Error:    step.Error,
		})
	}

	return provisionLogPayload{
		OrderID:      log.OrderID,
		OrderNumber:  log.OrderNumber,
		Steps:        steps,
		LinkbackDone: log.LinkbackDone,
		FallbackDone: log.FallbackDone,
		Attempts:     log.Attempts,
		LastError:    log.LastError,
		CreatedAt:    formatTimestamp(log.CreatedAt),
		UpdatedAt:    formatTimestamp(log.UpdatedAt),
	}
}

func buildProvisionResultPayload(result services.ProvisionResult) provisionResultPayload {
	ids := make(map[string]string, len(result.IDs))
	for variant, id := range result.IDs {
		ids[string(variant)] = id
	}

	var failures map[string]string
	if len(result.Errors) > 0 {
		failures = make(map[string]string, len(result.Errors))
		for variant, err := range result.Errors {
			failures[string(variant)] = err.Error()
		}
	}

	return provisionResultPayload{
		OrderID:      result.OrderID,
		OrderNumber:  result.OrderNumber,
		LotIDs:       ids,
		Errors:       failures,
		LinkbackDone: result.LinkbackDone,
		FallbackDone: result.FallbackDone,
		Complete:     result.Complete(),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writeProvisionError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProvisionInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProvisionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("provision_log_not_found", "no provisioning record for order", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("provision_error", "failed to process provisioning request", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxOrderBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func parseFilterValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	filters := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.ToLower(strings.TrimSpace(part))
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			filters = append(filters, trimmed)
		}
	}
	return filters
}

func parseTimeParam(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("must be RFC3339 timestamp")
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
