package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/groupbuy-service/internal/content"
)

type PageHandler struct {
	service  content.Service
	validate *validator.Validate
}

func NewPageHandler(service content.Service) *PageHandler {
	return &PageHandler{service: service, validate: newValidator()}
}

func (h *PageHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/pages/{slug}", h.handleGetPublished)
}

func (h *PageHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/pages", h.handleList)
	router.Post("/pages", h.handleCreate)
	router.Put("/pages/{slug}", h.handleUpdate)
	router.Delete("/pages/{slug}", h.handleDelete)
}

func (h *PageHandler) handleGetPublished(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Published(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to get page")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PageHandler) handleList(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list pages")
		return
	}
	respondWithJSON(w, http.StatusOK, pages)
}

func (h *PageHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in content.PageInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create page")
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (h *PageHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in content.PageInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "slug"), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update page")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *PageHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		respondWithServiceError(w, err, "Failed to delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
