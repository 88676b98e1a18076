package order_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/catalog"
	"github.com/vasiliy-maslov/groupbuy-service/internal/order"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

type refClaim struct {
	orderID uuid.UUID
	round   string
}

// memoryStore is an in-memory order repository and catalog that applies the
// same guards as the postgres implementation.
type memoryStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]order.Order
	products map[uuid.UUID]catalog.Product
	premium  map[uuid.UUID]catalog.PremiumCampaign
	refs     map[string]refClaim
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orders:   map[uuid.UUID]order.Order{},
		products: map[uuid.UUID]catalog.Product{},
		premium:  map[uuid.UUID]catalog.PremiumCampaign{},
		refs:     map[string]refClaim{},
	}
}

func cloneOrder(o order.Order) order.Order {
	if o.Payment != nil {
		p := *o.Payment
		o.Payment = &p
	}
	return o
}

func (m *memoryStore) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", apperror.ErrNotFound, id)
	}
	return &p, nil
}

func (m *memoryStore) GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*catalog.PremiumCampaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.premium[id]
	if !ok {
		return nil, fmt.Errorf("%w: premium campaign %s", apperror.ErrNotFound, id)
	}
	return &c, nil
}

func (m *memoryStore) Create(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.Must(uuid.NewV4())
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	m.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (m *memoryStore) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", apperror.ErrNotFound, id)
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *memoryStore) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		switch {
		case filter.Kind != "" && o.Kind != filter.Kind:
		case filter.Status != "" && o.Status != filter.Status:
		case filter.Overall != "" && o.OverallPaymentStatus != filter.Overall:
		case filter.UserID != nil && o.UserID != *filter.UserID:
		default:
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return fmt.Errorf("%w: order %s is no longer %s", apperror.ErrConflict, id, from)
	}
	o.Status = to
	m.orders[id] = o
	return nil
}

func (m *memoryStore) UpdateShipment(ctx context.Context, id uuid.UUID, s order.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Kind != order.KindPremium {
		return fmt.Errorf("%w: premium order %s", apperror.ErrNotFound, id)
	}
	if s.TrackingNumber != nil {
		o.TrackingNumber = *s.TrackingNumber
	}
	if s.ShippingCost != nil {
		o.ShippingCost = *s.ShippingCost
	}
	if s.EstimatedDelivery != nil {
		o.EstimatedDelivery = s.EstimatedDelivery
	}
	if s.ActualDelivery != nil {
		o.ActualDelivery = s.ActualDelivery
	}
	m.orders[id] = o
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: order %s", apperror.ErrNotFound, id)
	}
	delete(m.orders, id)
	return nil
}

func claimRound(w order.PaymentWrite) string {
	if w.Legacy {
		return "legacy"
	}
	return w.Outcome.Round.String()
}

// applyWrite returns the order with w applied, or ErrConflict if the
// addressed round moved since it was read.
func (m *memoryStore) applyWrite(w order.PaymentWrite) (order.Order, error) {
	o, ok := m.orders[w.OrderID]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: order %s", apperror.ErrConflict, w.OrderID)
	}
	o = cloneOrder(o)

	var current *payment.RoundStatus
	var details *payment.Details
	switch {
	case w.Legacy:
		current, details = &o.Payment.Status, &o.Payment.Details
	case w.Outcome.Round == payment.SecondRound:
		current, details = &o.SecondPayment.Status, &o.SecondPayment.Details
	default:
		current, details = &o.FirstPayment.Status, &o.FirstPayment.Details
	}
	if *current != w.Outcome.From {
		return order.Order{}, fmt.Errorf("%w: payment is no longer %s", apperror.ErrConflict, w.Outcome.From)
	}
	if g := w.Outcome.Guard; g != nil && !w.Legacy && !g.Holds(o.Ledger()) {
		return order.Order{}, fmt.Errorf("%w: %s payment changed since it was read", apperror.ErrConflict, g.Round)
	}
	*current = w.Outcome.To
	*details = w.Details

	o.OverallPaymentStatus = w.Outcome.Overall
	if !w.Legacy {
		o.OverallPaymentStatus = payment.Overall(o.PaymentPlan, o.FirstPayment.Status, o.SecondPayment.Status)
	}
	if w.Status != nil && slices.Contains(w.Status.From, o.Status) {
		o.Status = w.Status.To
	}
	return o, nil
}

func (m *memoryStore) SubmitPayment(ctx context.Context, w order.PaymentWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	round := claimRound(w)
	if _, taken := m.refs[w.Ref]; taken {
		return fmt.Errorf("%w: %s", apperror.ErrDuplicateTransaction, w.Ref)
	}
	o, err := m.applyWrite(w)
	if err != nil {
		return err
	}

	for ref, claim := range m.refs {
		if claim.orderID == w.OrderID && claim.round == round {
			delete(m.refs, ref)
		}
	}
	m.refs[w.Ref] = refClaim{orderID: w.OrderID, round: round}
	m.orders[o.ID] = o
	return nil
}

func (m *memoryStore) ReviewPayment(ctx context.Context, w order.PaymentWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, err := m.applyWrite(w)
	if err != nil {
		return err
	}
	if err := m.applyEffect(w.Outcome.Effect, w.Inventory); err != nil {
		return err
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memoryStore) applyEffect(effect payment.Effect, inv order.Inventory) error {
	if effect == payment.EffectNone {
		return nil
	}
	if inv.ID == nil {
		return fmt.Errorf("%w: inventory removed", apperror.ErrNotFound)
	}

	delta, participants := inv.Quantity, 1
	if effect == payment.EffectRelease {
		delta, participants = -inv.Quantity, -1
	}

	if inv.Kind == order.KindPremium {
		c, ok := m.premium[*inv.ID]
		if !ok {
			return fmt.Errorf("%w: premium campaign %s", apperror.ErrNotFound, *inv.ID)
		}
		if c.OrderedQuantity+delta > c.TotalQuantity {
			return fmt.Errorf("%w: oversell", apperror.ErrValidation)
		}
		c.OrderedQuantity = max(c.OrderedQuantity+delta, 0)
		c.CurrentParticipants = max(c.CurrentParticipants+participants, 0)
		m.premium[c.ID] = c
		return nil
	}

	p, ok := m.products[*inv.ID]
	if !ok {
		return fmt.Errorf("%w: product %s", apperror.ErrNotFound, *inv.ID)
	}
	if p.OrderedQuantity+delta > p.TotalQuantity {
		return fmt.Errorf("%w: oversell", apperror.ErrValidation)
	}
	p.OrderedQuantity = max(p.OrderedQuantity+delta, 0)
	m.products[p.ID] = p
	return nil
}

func (m *memoryStore) TransactionRefExists(ctx context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.refs[ref]
	return ok, nil
}

func (m *memoryStore) ListOverdue(ctx context.Context, now time.Time) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.Legacy || (o.OverallPaymentStatus != payment.OverallPending && o.OverallPaymentStatus != payment.OverallPartial) {
			continue
		}
		if payment.OverallAt(o.PaymentPlan, o.FirstPayment, o.SecondPayment, now) == payment.OverallOverdue {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memoryStore) MarkOverdue(ctx context.Context, id uuid.UUID, from payment.OverallStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.OverallPaymentStatus != from {
		return false, nil
	}
	o.OverallPaymentStatus = payment.OverallOverdue
	m.orders[id] = o
	return true, nil
}

func (m *memoryStore) product(id uuid.UUID) catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memoryStore) premiumCampaign(id uuid.UUID) catalog.PremiumCampaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.premium[id]
}
