// Package api exposes the order store over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	gootel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"orderqueue/pkg/logger"
	"orderqueue/pkg/metrics"
	"orderqueue/pkg/order"
	"orderqueue/pkg/otel"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	repo   order.Repository
	log    *logger.Logger
	tracer trace.Tracer
}

// New creates a Server. tracer may be nil, in which case handlers run untraced.
func New(repo order.Repository, log *logger.Logger, tracer trace.Tracer) *Server {
	return &Server{repo: repo, log: log, tracer: tracer}
}

// Router returns the /api routes with tracing and metrics middleware attached.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware, metricsMiddleware)

	// Full paths on the root router: a subrouter's copied prefix matcher
	// clears mux's method mismatch and turns a 405 into a 404.
	r.HandleFunc("/api/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/orders", s.listOrdersHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/reset", s.resetOrdersHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/orders/sync", s.syncOrdersHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/orders/{orderId}/items/{itemIndex}/status", s.setItemStatusHandler).Methods(http.MethodPost)
	return r
}

// MessageResponse is the body of every successful write.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusRequest carries the new status of one item.
type StatusRequest struct {
	Status order.Status `json:"status"`
}

// SyncRequest carries a client's full order list.
type SyncRequest struct {
	Orders []order.Order `json:"orders"`
}

// listOrdersHandler lists orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} order.Order
// @Router /api/orders [get]
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()

	orders, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error(ctx, "list orders", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// setItemStatusHandler overwrites the status of one item.
// @Summary Update item status
// @Accept json
// @Produce json
// @Param orderId path int true "Order ID"
// @Param itemIndex path int true "Item index within the order"
// @Param status body StatusRequest true "New status"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/orders/{orderId}/items/{itemIndex}/status [post]
func (s *Server) setItemStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "setItemStatusHandler")
	defer span.End()

	vars := mux.Vars(r)
	orderID, ok := leadingInt(vars["orderId"])
	if !ok {
		metrics.StatusUpdates.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Order not found"})
		return
	}
	itemIndex, ok := leadingInt(vars["itemIndex"])
	if !ok {
		// never matches; the repository still decides which 404 applies
		itemIndex = -1
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("order_id", orderID), attribute.Int("item_index", itemIndex), attribute.String("status", string(req.Status)))

	switch err := s.repo.SetItemStatus(ctx, orderID, itemIndex, req.Status); {
	case errors.Is(err, order.ErrOrderNotFound):
		metrics.StatusUpdates.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Order not found"})
	case errors.Is(err, order.ErrItemNotFound):
		metrics.StatusUpdates.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Item not found"})
	case err != nil:
		metrics.StatusUpdates.WithLabelValues("error").Inc()
		s.log.Error(ctx, "set item status", "order_id", orderID, "item_index", itemIndex, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		metrics.StatusUpdates.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Status updated successfully"})
	}
}

// resetOrdersHandler restores the seed orders.
// @Summary Reset orders
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/orders/reset [post]
func (s *Server) resetOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "resetOrdersHandler")
	defer span.End()

	if err := s.repo.Reset(ctx); err != nil {
		s.log.Error(ctx, "reset orders", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	metrics.Resets.Inc()
	s.log.Info(ctx, "orders reset")
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Orders reset successfully"})
}

// syncOrdersHandler replaces every order with the client's list.
// @Summary Sync orders
// @Accept json
// @Produce json
// @Param orders body SyncRequest true "Full order list"
// @Success 200 {object} MessageResponse
// @Router /api/orders/sync [post]
func (s *Server) syncOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "syncOrdersHandler")
	defer span.End()

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("orders", len(req.Orders)))

	if err := s.repo.Replace(ctx, req.Orders); err != nil {
		s.log.Error(ctx, "sync orders", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	metrics.Syncs.Inc()
	s.log.Debug(ctx, "orders synchronized", "orders", len(req.Orders))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Orders synchronized successfully"})
}

// healthHandler is a constant liveness probe.
// @Summary Health check
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/health [get]
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Server is healthy"})
}

// leadingInt reads the optional sign and decimal digits at the start of s,
// after leading spaces, and ignores the rest: "12abc" and "1.5" parse as 12
// and 1. It fails when no digit is found.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := gootel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if s.tracer != nil {
			ctx = otel.InjectTracing(ctx, s.tracer)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}
