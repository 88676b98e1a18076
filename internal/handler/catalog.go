package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/groupbuy-service/internal/catalog"
)

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service, validate: newValidator()}
}

func (h *CatalogHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/campaigns", h.handleListCampaigns)
	router.Get("/campaigns/{id}", h.handleGetCampaign)
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Get("/premium-campaigns", h.handleListPremiumCampaigns)
	router.Get("/premium-campaigns/{id}", h.handleGetPremiumCampaign)
}

func (h *CatalogHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/campaigns", h.handleCreateCampaign)
	router.Put("/campaigns/{id}", h.handleUpdateCampaign)
	router.Delete("/campaigns/{id}", h.handleDeleteCampaign)
	router.Post("/products", h.handleCreateProduct)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
	router.Post("/premium-campaigns", h.handleCreatePremiumCampaign)
	router.Put("/premium-campaigns/{id}", h.handleUpdatePremiumCampaign)
	router.Delete("/premium-campaigns/{id}", h.handleDeletePremiumCampaign)
}

// activeOnly reads the ?active query flag; lists show only active items
// unless it is explicitly false.
func activeOnly(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("active")
	if raw == "" {
		return true, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid active parameter")
		return false, false
	}
	return v, true
}

func (h *CatalogHandler) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	active, ok := activeOnly(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListCampaigns(r.Context(), active)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list campaigns")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.GetCampaign(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get campaign")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in catalog.CampaignInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	c, err := h.service.CreateCampaign(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create campaign")
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.CampaignInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	c, err := h.service.UpdateCampaign(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update campaign")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCampaign(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	active, ok := activeOnly(w, r)
	if !ok {
		return
	}
	filter := catalog.ProductFilter{ActiveOnly: active}
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		campaignID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid campaign_id parameter")
			return
		}
		filter.CampaignID = &campaignID
	}

	list, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.ProductInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleListPremiumCampaigns(w http.ResponseWriter, r *http.Request) {
	active, ok := activeOnly(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListPremiumCampaigns(r.Context(), active)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list premium campaigns")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) handleGetPremiumCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.service.GetPremiumCampaign(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get premium campaign")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) handleCreatePremiumCampaign(w http.ResponseWriter, r *http.Request) {
	var in catalog.PremiumCampaignInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	c, err := h.service.CreatePremiumCampaign(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create premium campaign")
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) handleUpdatePremiumCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var in catalog.PremiumCampaignInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	c, err := h.service.UpdatePremiumCampaign(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update premium campaign")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) handleDeletePremiumCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePremiumCampaign(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete premium campaign")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
