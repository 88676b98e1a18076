package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/groupbuy-service/internal/user"
)

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{service: service, validate: newValidator()}
}

func (h *UserHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
}

func (h *UserHandler) RegisterUserRoutes(router chi.Router) {
	router.Get("/me", h.handleMe)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}

	session, err := h.service.Register(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to register user")
		return
	}
	respondWithJSON(w, http.StatusCreated, session)
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in user.LoginInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}

	session, err := h.service.Login(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetByID(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get user")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}
