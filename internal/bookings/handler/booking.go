package handler

import (
	"encoding/json"
	"net/http"

	"roost/internal/bookings/service"
	apperrors "roost/pkg/errors"
	httputil "roost/pkg/http"
	"roost/pkg/logger"
	"roost/pkg/middleware"
	"roost/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, auth *middleware.Authenticator, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var input model.BookingCreate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	booking, err := h.service.Create(r.Context(), actor, &input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, booking)
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	bookings, err := h.service.GetAll(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, bookings)
}

func (h *BookingHandler) GetForUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	bookings, err := h.service.GetForUser(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, bookings)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	booking, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var input model.BookingStatusUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), actor, ps.ByName("id"), &input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	booking, err := h.service.Cancel(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	stats, err := h.service.Stats(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, stats)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/bookings", h.auth.RequireUser(h.Create))
	router.GET("/api/bookings", h.auth.RequireUser(h.GetAll))
	router.GET("/api/bookings/user", h.auth.RequireUser(h.GetForUser))
	router.GET("/api/bookings/stats", h.auth.RequireUser(h.Stats))
	router.GET("/api/bookings/id/:id", h.auth.RequireUser(h.GetByID))
	router.PUT("/api/bookings/id/:id/status", h.auth.RequireUser(h.UpdateStatus))
	router.PUT("/api/bookings/id/:id/cancel", h.auth.RequireUser(h.Cancel))
}
