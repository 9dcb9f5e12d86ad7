package handler

import (
	"encoding/json"
	"net/http"

	"roost/internal/users/service"
	apperrors "roost/pkg/errors"
	httputil "roost/pkg/http"
	"roost/pkg/logger"
	"roost/pkg/middleware"
	"roost/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type UserHandler struct {
	service service.UserService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, auth *middleware.Authenticator, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var updates model.ProfileUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&updates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), actor, &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	users, err := h.service.List(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, users)
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/users/me", h.auth.RequireUser(h.Me))
	router.PUT("/api/users/profile", h.auth.RequireUser(h.UpdateProfile))
	router.GET("/api/users", h.auth.RequireUser(h.List))
}
