package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"roost/internal/hotels/service"
	apperrors "roost/pkg/errors"
	httputil "roost/pkg/http"
	"roost/pkg/logger"
	"roost/pkg/middleware"
	"roost/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type HotelHandler struct {
	service service.HotelService
	auth    *middleware.Authenticator
	log     *logger.Logger
}

func NewHotelHandler(service service.HotelService, auth *middleware.Authenticator, log *logger.Logger) *HotelHandler {
	return &HotelHandler{
		service: service,
		auth:    auth,
		log:     log,
	}
}

// List is public: browsing the catalog requires no account.
func (h *HotelHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter, err := parseCatalogFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	hotels, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, hotels)
}

func (h *HotelHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	hotel, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, hotel)
}

func (h *HotelHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var hotel model.Hotel
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&hotel); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if err := h.service.Create(r.Context(), actor, &hotel); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, hotel)
}

func (h *HotelHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	var updates model.HotelUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&updates); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	hotel, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, hotel)
}

func (h *HotelHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *HotelHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

func parseCatalogFilter(r *http.Request) (*model.HotelFilter, error) {
	query := r.URL.Query()
	filter := &model.HotelFilter{
		Location: query.Get("location"),
	}

	parseFloat := func(key string) (*float64, error) {
		raw := query.Get(key)
		if raw == "" {
			return nil, nil
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", key, raw))
		}
		return &value, nil
	}

	var err error
	if filter.PriceMin, err = parseFloat("price_min"); err != nil {
		return nil, err
	}
	if filter.PriceMax, err = parseFloat("price_max"); err != nil {
		return nil, err
	}
	if filter.MinRating, err = parseFloat("min_rating"); err != nil {
		return nil, err
	}

	if amenities := query.Get("amenities"); amenities != "" {
		for _, a := range strings.Split(amenities, ",") {
			if a = strings.TrimSpace(a); a != "" {
				filter.Amenities = append(filter.Amenities, a)
			}
		}
	}

	return filter, nil
}

func (h *HotelHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/hotels", h.List)
	router.GET("/api/hotels/id/:id", h.GetByID)
	router.GET("/api/hotels/stats", h.auth.RequireUser(h.Stats))
	router.POST("/api/hotels", h.auth.RequireUser(h.Create))
	router.PUT("/api/hotels/id/:id", h.auth.RequireUser(h.Update))
	router.DELETE("/api/hotels/id/:id", h.auth.RequireUser(h.Delete))
}
