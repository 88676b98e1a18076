package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
	"github.com/vasiliy-maslov/groupbuy-service/internal/catalog"
	"github.com/vasiliy-maslov/groupbuy-service/internal/notification"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusPaymentPending: true,
		StatusConfirmed:      true,
		StatusCancelled:      true,
	},
	StatusPaymentPending: {
		StatusPaymentRejected: true,
		StatusConfirmed:       true,
		StatusCancelled:       true,
	},
	StatusPaymentRejected: {
		StatusPaymentPending: true,
		StatusCancelled:      true,
	},
	StatusConfirmed: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Catalog is the read side of the catalog the order flow prices against.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*catalog.PremiumCampaign, error)
}

type Notifier interface {
	Send(ctx context.Context, n notification.Notification)
}

type CreateInput struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
	PaymentPlan string    `json:"payment_plan" validate:"required,oneof=full installment"`
}

type CreatePremiumInput struct {
	PremiumCampaignID uuid.UUID `json:"premium_campaign_id" validate:"required"`
	Quantity          int       `json:"quantity" validate:"required,gt=0"`
	PaymentPlan       string    `json:"payment_plan" validate:"required,oneof=full installment"`
}

type ReviewInput struct {
	Status payment.RoundStatus `json:"status" validate:"required,oneof=verified rejected"`
	Notes  string              `json:"notes" validate:"max=1000"`
}

type Service interface {
	CreateOrder(ctx context.Context, caller auth.Identity, in CreateInput) (*Order, error)
	CreatePremiumOrder(ctx context.Context, caller auth.Identity, in CreatePremiumInput) (*Order, error)
	GetOrder(ctx context.Context, caller auth.Identity, id uuid.UUID) (*Order, error)
	ListMine(ctx context.Context, caller auth.Identity) ([]Order, error)
	ListAll(ctx context.Context, filter Filter) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus Status) error
	UpdateShipment(ctx context.Context, id uuid.UUID, s Shipment) (*Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	SubmitPayment(ctx context.Context, caller auth.Identity, id uuid.UUID, round payment.RoundName, sub payment.Submission) (*Order, error)
	ReviewPayment(ctx context.Context, admin auth.Identity, id uuid.UUID, round payment.RoundName, in ReviewInput) (*Order, error)
	RevokeVerification(ctx context.Context, admin auth.Identity, id uuid.UUID, notes string) (*Order, error)
	CheckTransactionRef(ctx context.Context, raw string) (bool, error)
	FlagOverdue(ctx context.Context) (int, error)
}

type service struct {
	orderRepo Repository
	catalog   Catalog
	notifier  Notifier
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(orderRepo Repository, items Catalog, notifier Notifier) Service {
	return &service{
		orderRepo: orderRepo,
		catalog:   items,
		notifier:  notifier,
		validate:  validator.New(),
		now:       time.Now,
	}
}

func (s *service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrValidation, err)
	}
	return nil
}

func checkOpen(active bool, deadline *time.Time, now time.Time) error {
	if !active {
		return fmt.Errorf("%w: item is not open for orders", apperror.ErrValidation)
	}
	if deadline != nil && deadline.Before(now) {
		return fmt.Errorf("%w: ordering closed at %s", apperror.ErrValidation, deadline.Format(time.RFC3339))
	}
	return nil
}

func newOrder(kind Kind, userID uuid.UUID, q payment.Quote, sched payment.Schedule) *Order {
	return &Order{
		Kind:                 kind,
		UserID:               userID,
		Quantity:             q.Quantity,
		UnitPrice:            q.UnitPrice,
		TotalPrice:           sched.Total,
		Status:               StatusPending,
		PaymentPlan:          sched.Plan,
		OverallPaymentStatus: payment.Overall(sched.Plan, sched.First.Status, sched.Second.Status),
		FirstPayment:         sched.First,
		SecondPayment:        sched.Second,
	}
}

func (s *service) CreateOrder(ctx context.Context, caller auth.Identity, in CreateInput) (*Order, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	plan, err := payment.ParsePlan(in.PaymentPlan)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		log.Warn().Err(err).Stringer("product_id", in.ProductID).Msg("service: product lookup failed for new order")
		return nil, err
	}
	now := s.now()
	if err := checkOpen(product.Active, product.Deadline, now); err != nil {
		return nil, err
	}

	quote := payment.Quote{
		UnitPrice: product.Price,
		Quantity:  in.Quantity,
		Available: product.Available(),
		Plan:      plan,
		Terms:     payment.RegularTerms(),
	}
	sched, err := payment.Calculate(quote, now)
	if err != nil {
		log.Warn().Err(err).Stringer("product_id", product.ID).Int("quantity", in.Quantity).Msg("service: order rejected by calculator")
		return nil, err
	}

	o := newOrder(KindRegular, caller.UserID, quote, sched)
	o.ProductID = &product.ID
	return s.create(ctx, o)
}

func (s *service) CreatePremiumOrder(ctx context.Context, caller auth.Identity, in CreatePremiumInput) (*Order, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	plan, err := payment.ParsePlan(in.PaymentPlan)
	if err != nil {
		return nil, err
	}

	campaign, err := s.catalog.GetPremiumCampaign(ctx, in.PremiumCampaignID)
	if err != nil {
		log.Warn().Err(err).Stringer("premium_campaign_id", in.PremiumCampaignID).Msg("service: premium campaign lookup failed for new order")
		return nil, err
	}
	now := s.now()
	if err := checkOpen(campaign.Active, campaign.Deadline, now); err != nil {
		return nil, err
	}

	quote := payment.Quote{
		UnitPrice: campaign.Price,
		Quantity:  in.Quantity,
		Available: campaign.Available(),
		Plan:      plan,
		Terms:     payment.PremiumTerms(campaign.AirCargoCost),
	}
	sched, err := payment.Calculate(quote, now)
	if err != nil {
		log.Warn().Err(err).Stringer("premium_campaign_id", campaign.ID).Int("quantity", in.Quantity).Msg("service: premium order rejected by calculator")
		return nil, err
	}

	o := newOrder(KindPremium, caller.UserID, quote, sched)
	o.PremiumCampaignID = &campaign.ID
	o.AirCargoCost = campaign.AirCargoCost
	o.EstimatedDelivery = campaign.EstimatedDelivery
	return s.create(ctx, o)
}

func (s *service) create(ctx context.Context, o *Order) (*Order, error) {
	if err := s.orderRepo.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("user_id", o.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("user_id", o.UserID).Stringer("kind", o.Kind).
		Str("total", o.TotalPrice.String()).Msg("service: order created")

	s.notify(ctx, o, notification.CategoryOrder, notification.SeverityInfo, "Order placed",
		fmt.Sprintf("Your order for %d item(s) was placed. First payment due: %s.", o.Quantity, o.FirstPayment.Amount.StringFixed(2)), "")

	o.Project(s.now())
	return o, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order not found by id")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func authorize(caller auth.Identity, o *Order) error {
	if caller.IsAdmin || caller.UserID == o.UserID {
		return nil
	}
	log.Warn().Stringer("user_id", caller.UserID).Stringer("order_id", o.ID).Msg("service: caller does not own order")
	return fmt.Errorf("%w: order %s belongs to another user", apperror.ErrAuthorization, o.ID)
}

func (s *service) GetOrder(ctx context.Context, caller auth.Identity, id uuid.UUID) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, o); err != nil {
		return nil, err
	}
	o.Project(s.now())
	return o, nil
}

func (s *service) list(ctx context.Context, filter Filter) ([]Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders in repository")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	now := s.now()
	for i := range orders {
		orders[i].Project(now)
	}
	return orders, nil
}

func (s *service) ListMine(ctx context.Context, caller auth.Identity) ([]Order, error) {
	return s.list(ctx, Filter{UserID: &caller.UserID})
}

func (s *service) ListAll(ctx context.Context, filter Filter) ([]Order, error) {
	return s.list(ctx, filter)
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error {
	current, err := s.load(ctx, orderID)
	if err != nil {
		return err
	}

	if current.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return nil
	}

	next, ok := allowedTransitions[current.Status]
	if !ok || !next[newStatus] {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: order status %s cannot move to %s", apperror.ErrInvalidTransition, current.Status, newStatus)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, current.Status, newStatus); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
	s.notify(ctx, current, notification.CategoryOrder, notification.SeverityInfo, "Order status updated",
		fmt.Sprintf("Your order is now %s.", newStatus), "")
	return nil
}

func (s *service) UpdateShipment(ctx context.Context, id uuid.UUID, sh Shipment) (*Order, error) {
	if sh.ShippingCost != nil && sh.ShippingCost.IsNegative() {
		return nil, fmt.Errorf("%w: shipping cost must not be negative", apperror.ErrValidation)
	}
	if err := s.orderRepo.UpdateShipment(ctx, id, sh); err != nil {
		log.Warn().Err(err).Stringer("order_id", id).Msg("service: failed to update shipment")
		return nil, fmt.Errorf("service: failed to update shipment: %w", err)
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Project(s.now())
	return o, nil
}

// DeleteOrder removes an order outright. It never touches inventory.
func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Stringer("order_id", id).Msg("service: failed to delete order")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}
	log.Info().Stringer("order_id", id).Msg("service: order deleted")
	return nil
}

// commits reports whether the addressed record is the one whose
// verification commits inventory.
func commits(o *Order, round payment.RoundName) bool {
	return o.Legacy || round == payment.FirstRound
}

func (s *service) SubmitPayment(ctx context.Context, caller auth.Identity, id uuid.UUID, round payment.RoundName, sub payment.Submission) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, o); err != nil {
		return nil, err
	}
	record, err := o.Record(round)
	if err != nil {
		return nil, err
	}
	outcome, err := record.Submit()
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", id).Stringer("round", round).Msg("service: payment submission refused")
		return nil, err
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}
	ref := payment.CanonicalRef(sub.TransactionRef)
	if ref == "" {
		return nil, fmt.Errorf("%w: transaction reference is blank", apperror.ErrValidation)
	}

	details := o.Details(round)
	paidAt := sub.PaymentDate
	details.SenderName = sub.SenderName
	details.Method = sub.Method
	details.TransactionRef = sub.TransactionRef
	details.PaymentDate = &paidAt
	details.Screenshot = sub.Screenshot

	w := PaymentWrite{
		OrderID: id,
		Legacy:  o.Legacy,
		Outcome: outcome,
		Details: details,
		Ref:     ref,
	}
	if commits(o, round) {
		w.Status = &StatusChange{From: []Status{StatusPending, StatusPaymentRejected}, To: StatusPaymentPending}
	}

	if err := s.orderRepo.SubmitPayment(ctx, w); err != nil {
		return nil, s.writeFailed(err, id, round, "submit")
	}

	log.Info().Stringer("order_id", id).Stringer("round", round).Str("ref", ref).Msg("service: payment submitted")
	return s.reload(ctx, id)
}

func (s *service) ReviewPayment(ctx context.Context, admin auth.Identity, id uuid.UUID, round payment.RoundName, in ReviewInput) (*Order, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	record, err := o.Record(round)
	if err != nil {
		return nil, err
	}

	outcome, err := record.Review(in.Status)
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", id).Stringer("round", round).Stringer("target", in.Status).Msg("service: payment review refused")
		return nil, err
	}
	if !outcome.Changed {
		log.Info().Stringer("order_id", id).Stringer("round", round).Stringer("status", in.Status).Msg("service: payment already in requested status, no update needed")
		o.Project(s.now())
		return o, nil
	}

	w := PaymentWrite{
		OrderID:   id,
		Legacy:    o.Legacy,
		Outcome:   outcome,
		Details:   s.stamp(o.Details(round), admin, in.Notes),
		Inventory: o.Inventory(),
	}
	if commits(o, round) {
		to := StatusConfirmed
		if in.Status == payment.RoundRejected {
			to = StatusPaymentRejected
		}
		w.Status = &StatusChange{From: []Status{StatusPending, StatusPaymentPending}, To: to}
	}

	if err := s.orderRepo.ReviewPayment(ctx, w); err != nil {
		return nil, s.writeFailed(err, id, round, "review")
	}

	log.Info().Stringer("order_id", id).Stringer("round", round).Stringer("from", outcome.From).Stringer("to", outcome.To).
		Stringer("overall", outcome.Overall).Msg("service: payment reviewed")

	if in.Status == payment.RoundVerified {
		s.notify(ctx, o, notification.CategoryPayment, notification.SeveritySuccess, "Payment verified",
			fmt.Sprintf("Your %s payment was verified.", round), round.String())
	} else {
		msg := fmt.Sprintf("Your %s payment was rejected.", round)
		if in.Notes != "" {
			msg += " Reason: " + in.Notes
		}
		s.notify(ctx, o, notification.CategoryPayment, notification.SeverityError, "Payment rejected", msg, round.String())
	}
	return s.reload(ctx, id)
}

// RevokeVerification rejects a verified first (or legacy) payment and
// releases the inventory its verification committed.
func (s *service) RevokeVerification(ctx context.Context, admin auth.Identity, id uuid.UUID, notes string) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	record, err := o.Record(payment.FirstRound)
	if err != nil {
		return nil, err
	}
	outcome, err := record.Revoke()
	if err != nil {
		log.Warn().Err(err).Stringer("order_id", id).Msg("service: revoke refused")
		return nil, err
	}

	w := PaymentWrite{
		OrderID:   id,
		Legacy:    o.Legacy,
		Outcome:   outcome,
		Details:   s.stamp(o.Details(payment.FirstRound), admin, notes),
		Inventory: o.Inventory(),
		Status: &StatusChange{
			From: []Status{StatusPending, StatusPaymentPending, StatusConfirmed},
			To:   StatusPaymentRejected,
		},
	}
	if err := s.orderRepo.ReviewPayment(ctx, w); err != nil {
		return nil, s.writeFailed(err, id, payment.FirstRound, "revoke")
	}

	log.Info().Stringer("order_id", id).Stringer("admin_id", admin.UserID).Msg("service: payment verification revoked")
	msg := "Verification of your first payment was withdrawn."
	if notes != "" {
		msg += " Reason: " + notes
	}
	s.notify(ctx, o, notification.CategoryPayment, notification.SeverityWarning, "Payment verification revoked", msg, payment.FirstRound.String())
	return s.reload(ctx, id)
}

func (s *service) stamp(d payment.Details, admin auth.Identity, notes string) payment.Details {
	at := s.now().UTC()
	by := admin.UserID
	d.VerifiedBy = &by
	d.VerifiedAt = &at
	d.Notes = notes
	return d
}

func (s *service) writeFailed(err error, id uuid.UUID, round payment.RoundName, op string) error {
	switch {
	case errors.Is(err, apperror.ErrConflict),
		errors.Is(err, apperror.ErrDuplicateTransaction),
		errors.Is(err, apperror.ErrNotFound),
		errors.Is(err, apperror.ErrValidation):
		log.Warn().Err(err).Stringer("order_id", id).Stringer("round", round).Str("op", op).Msg("service: payment write refused by store")
		return err
	}
	log.Error().Err(err).Stringer("order_id", id).Stringer("round", round).Str("op", op).Msg("service: failed to persist payment write")
	return fmt.Errorf("service: failed to %s payment: %w", op, err)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Project(s.now())
	return o, nil
}

func (s *service) CheckTransactionRef(ctx context.Context, raw string) (bool, error) {
	ref := payment.CanonicalRef(raw)
	if ref == "" {
		return false, fmt.Errorf("%w: transaction reference is blank", apperror.ErrValidation)
	}
	used, err := s.orderRepo.TransactionRefExists(ctx, ref)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to check transaction ref")
		return false, fmt.Errorf("service: failed to check transaction ref: %w", err)
	}
	return used, nil
}

// FlagOverdue caches the overdue status on orders with a round past due and
// reminds their buyers. It returns how many orders were flagged.
func (s *service) FlagOverdue(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.orderRepo.ListOverdue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list overdue candidates")
		return 0, fmt.Errorf("service: failed to list overdue orders: %w", err)
	}

	flagged := 0
	for i := range candidates {
		o := &candidates[i]
		stored := o.OverallPaymentStatus
		if payment.OverallAt(o.PaymentPlan, o.FirstPayment, o.SecondPayment, now) != payment.OverallOverdue {
			continue
		}
		marked, err := s.orderRepo.MarkOverdue(ctx, o.ID, stored)
		if err != nil {
			log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to mark order overdue")
			continue
		}
		if !marked {
			continue
		}
		flagged++

		round := payment.FirstRound
		if o.FirstPayment.Status == payment.RoundVerified {
			round = payment.SecondRound
		}
		s.notify(ctx, o, notification.CategoryPayment, notification.SeverityWarning, "Payment overdue",
			fmt.Sprintf("Your %s payment is past its due date.", round), round.String())
	}

	if flagged > 0 {
		log.Info().Int("flagged", flagged).Msg("service: overdue orders flagged")
	}
	return flagged, nil
}

func (s *service) notify(ctx context.Context, o *Order, category notification.Category, severity notification.Severity, title, message, round string) {
	if s.notifier == nil {
		return
	}
	data := map[string]any{"order_id": o.ID.String(), "kind": o.Kind.String()}
	if round != "" {
		data["round"] = round
	}
	s.notifier.Send(ctx, notification.Notification{
		UserID:   o.UserID,
		Category: category,
		Title:    title,
		Message:  message,
		Severity: severity,
		Data:     data,
	})
}
