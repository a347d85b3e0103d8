package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/vidcrafter/internal/service"
	"github.com/digkill/vidcrafter/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string) {
	s.writeMessage(w, http.StatusBadRequest, msg)
}

// writeError maps error kinds to statuses. Anything unclassified is logged and
// reported as a generic internal error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrCouponAlreadyUsed):
		s.writeMessage(w, http.StatusConflict, "Coupon has already been used")
	case errors.Is(err, service.ErrCouponCodeRequired):
		s.badRequest(w, "Coupon code is required")
	case errors.Is(err, service.ErrInvalidCouponValue):
		s.badRequest(w, "Invalid coupon value")
	case errors.Is(err, service.ErrCouponNotFound):
		s.writeMessage(w, http.StatusNotFound, "Coupon not found")
	case errors.Is(err, service.ErrUnauthorized):
		s.writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, service.ErrForbidden):
		s.writeMessage(w, http.StatusForbidden, "Admin access required")
	case errors.Is(err, service.ErrInvalidInput):
		s.badRequest(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		s.writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		s.writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrInvalidType):
		s.badRequest(w, "Invalid file type")
	case errors.Is(err, storage.ErrInvalidFilename):
		s.badRequest(w, "Invalid filename")
	case errors.Is(err, storage.ErrNotFound):
		s.writeMessage(w, http.StatusNotFound, "File not found")
	default:
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		s.writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
