package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"futurebot/internal/portfolio"
	"futurebot/internal/services"
	"futurebot/internal/trading"
)

// handleCreateOrder handles POST /api/orders
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := s.trading.CreateOrder(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, order)
}

// handleListOrders handles GET /api/orders
func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	symbol := r.URL.Query().Get("symbol")
	status := trading.OrderStatus(r.URL.Query().Get("status"))

	orders, total, err := s.trading.GetOrders(skip, limit, symbol, status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []trading.Order{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"skip":   skip,
		"limit":  limit,
	})
}

// handleGetOrder handles GET /api/orders/{id}
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := s.trading.GetOrder(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

// handleCancelOrder handles DELETE /api/orders/{id}
func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := s.trading.CancelOrder(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

// handleOpenPositions handles GET /api/positions
func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.trading.GetOpenPositions()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []portfolio.Position{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	})
}

// handlePositionHistory handles GET /api/positions/history
func (s *Server) handlePositionHistory(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	positions, err := s.trading.GetPositionHistory(skip, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if positions == nil {
		positions = []portfolio.Position{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": positions,
		"skip":      skip,
		"limit":     limit,
	})
}

// handlePortfolioStats handles GET /api/portfolio/stats
func (s *Server) handlePortfolioStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.trading.GetPortfolioStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// writeServiceError maps service-layer errors onto HTTP status codes
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *trading.ValidationError
	var notFoundErr *trading.NotFoundError
	var stateErr *trading.InvalidStateError

	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &notFoundErr):
		s.writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &stateErr):
		s.writeError(w, http.StatusConflict, stateErr.Error())
	default:
		s.log.Error().Err(err).Msg("Request failed")
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
