package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/vidcrafter/internal/auth"
	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/service"
)

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"user": auth.UserFromContext(r.Context())})
}

func (s *Server) handleCheckLimit(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	decision, err := s.deps.Gate.Check(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

type generationLogRequest struct {
	VideoType    models.VideoType        `json:"video_type"`
	Status       models.GenerationStatus `json:"status"`
	Reason       *string                 `json:"reason"`
	Prompt       *string                 `json:"prompt"`
	Orientation  *string                 `json:"orientation"`
	StoryScript  *string                 `json:"story_script"`
	Characters   *string                 `json:"characters"`
	ResponseData json.RawMessage         `json:"response_data"`
}

// responseData keeps strings as-is and stores any other JSON value verbatim.
func (req generationLogRequest) responseData() *string {
	raw := strings.TrimSpace(string(req.ResponseData))
	if raw == "" || raw == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(req.ResponseData, &str); err == nil {
		return &str
	}
	return &raw
}

func (s *Server) handleLogGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}

	user := auth.UserFromContext(r.Context())
	entry, err := s.deps.Generations.Log(r.Context(), user.ID, service.GenerationEntry{
		VideoType:    req.VideoType,
		Status:       req.Status,
		Reason:       req.Reason,
		Prompt:       req.Prompt,
		Orientation:  req.Orientation,
		StoryScript:  req.StoryScript,
		Characters:   req.Characters,
		ResponseData: req.responseData(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "log": entry})
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	logs, err := s.deps.Generations.History(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "invalid json")
		return
	}

	res, err := s.deps.Coupons.Redeem(r.Context(), auth.UserFromContext(r.Context()), req.Code)
	if errors.Is(err, service.ErrCouponNotFound) {
		s.writeMessage(w, http.StatusNotFound, "Invalid coupon code")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Coupon redeemed successfully",
		"newBalance":  res.NewBalance,
		"couponValue": res.CouponValue,
	})
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.deps.Coupons.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"coupons": coupons})
}

type createCouponRequest struct {
	Value int `json:"value"`
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, "Invalid coupon value")
		return
	}

	admin := auth.UserFromContext(r.Context())
	coupon, err := s.deps.Coupons.Create(r.Context(), req.Value, admin.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Coupon created successfully",
		"coupon":  coupon,
	})
}

func (s *Server) handleGetCoupon(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Coupons.Detail(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if err := s.deps.Coupons.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Coupon deleted successfully"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.Generations.Recent(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
