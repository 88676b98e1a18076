package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/order"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

type SubmitPaymentRequest struct {
	SenderName     string    `json:"sender_name" validate:"max=200"`
	Method         string    `json:"method" validate:"max=100"`
	TransactionRef string    `json:"transaction_ref" validate:"max=2000"`
	PaymentDate    time.Time `json:"payment_date"`
	Screenshot     string    `json:"screenshot" validate:"max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RevokeRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type TransactionRefResponse struct {
	Used bool `json:"used"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service, validate: newValidator()}
}

func (h *OrderHandler) RegisterUserRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Post("/premium-orders", h.handleCreatePremiumOrder)
	router.Get("/orders/mine", h.handleListMine)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/payments/{round}", h.handleSubmitPayment)
	router.Get("/orders/{id}/payments/{round}/qr", h.handleTransferQR)
	router.Get("/payments/transaction-refs/check", h.handleCheckTransactionRef)
}

func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/orders", h.handleListAll)
	router.Patch("/orders/{id}/status", h.handleUpdateStatus)
	router.Patch("/orders/{id}/shipment", h.handleUpdateShipment)
	router.Delete("/orders/{id}", h.handleDeleteOrder)
	router.Post("/orders/{id}/payments/{round}/review", h.handleReviewPayment)
	router.Post("/orders/{id}/payments/revoke", h.handleRevokeVerification)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var in order.CreateInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}

	o, err := h.service.CreateOrder(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleCreatePremiumOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var in order.CreatePremiumInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}

	o, err := h.service.CreatePremiumOrder(r.Context(), id, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create premium order")
		return
	}
	respondWithJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListMine(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), id, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func parseRound(w http.ResponseWriter, r *http.Request) (payment.RoundName, bool) {
	round, err := payment.ParseRoundName(chi.URLParam(r, "round"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid round parameter")
		return "", false
	}
	return round, true
}

func (h *OrderHandler) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	round, ok := parseRound(w, r)
	if !ok {
		return
	}
	var req SubmitPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.SubmitPayment(r.Context(), id, orderID, round, payment.Submission{
		SenderName:     req.SenderName,
		Method:         req.Method,
		TransactionRef: req.TransactionRef,
		PaymentDate:    req.PaymentDate,
		Screenshot:     req.Screenshot,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to submit payment")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleTransferQR(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	round, ok := parseRound(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), id, orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	amount := o.AmountDue(round)
	if !amount.IsPositive() {
		respondWithError(w, http.StatusNotFound, "Nothing to pay for this round")
		return
	}

	png, err := payment.TransferQR(payment.TransferMemo(o.ID, round, amount), 256)
	if err != nil {
		respondWithServiceError(w, err, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code")
	}
}

func (h *OrderHandler) handleCheckTransactionRef(w http.ResponseWriter, r *http.Request) {
	used, err := h.service.CheckTransactionRef(r.Context(), r.URL.Query().Get("ref"))
	if err != nil {
		respondWithServiceError(w, err, "Failed to check transaction reference")
		return
	}
	respondWithJSON(w, http.StatusOK, TransactionRefResponse{Used: used})
}

func (h *OrderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter order.Filter

	switch kind := order.Kind(q.Get("kind")); kind {
	case "", order.KindRegular, order.KindPremium:
		filter.Kind = kind
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid kind parameter")
		return
	}
	if raw := q.Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid status parameter")
			return
		}
		filter.Status = status
	}
	switch overall := payment.OverallStatus(q.Get("overall_payment_status")); overall {
	case "", payment.OverallPending, payment.OverallPartial, payment.OverallCompleted, payment.OverallOverdue:
		filter.Overall = overall
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid overall_payment_status parameter")
		return
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid user_id parameter")
			return
		}
		filter.UserID = &userID
	}

	list, err := h.service.ListAll(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		respondWithServiceError(w, err, "Invalid status")
		return
	}

	if err := h.service.UpdateOrderStatus(r.Context(), orderID, status); err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleUpdateShipment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req order.Shipment
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.UpdateShipment(r.Context(), orderID, req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update shipment")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), orderID); err != nil {
		respondWithServiceError(w, err, "Failed to delete order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleReviewPayment(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	round, ok := parseRound(w, r)
	if !ok {
		return
	}
	var in order.ReviewInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}

	o, err := h.service.ReviewPayment(r.Context(), admin, orderID, round, in)
	if err != nil {
		respondWithServiceError(w, err, "Failed to review payment")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleRevokeVerification(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	orderID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	var req RevokeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	o, err := h.service.RevokeVerification(r.Context(), admin, orderID, req.Notes)
	if err != nil {
		respondWithServiceError(w, err, "Failed to revoke verification")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
