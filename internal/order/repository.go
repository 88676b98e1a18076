package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

const legacyRefRound = "legacy"

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
	UpdateShipment(ctx context.Context, id uuid.UUID, s Shipment) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SubmitPayment claims w.Ref and writes the round in one transaction.
	SubmitPayment(ctx context.Context, w PaymentWrite) error
	// ReviewPayment writes the round and applies w.Outcome.Effect to the
	// inventory in one transaction.
	ReviewPayment(ctx context.Context, w PaymentWrite) error
	TransactionRefExists(ctx context.Context, ref string) (bool, error)

	ListOverdue(ctx context.Context, now time.Time) ([]Order, error)
	MarkOverdue(ctx context.Context, id uuid.UUID, from payment.OverallStatus) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, kind, user_id, product_id, premium_campaign_id, quantity, unit_price, total_price, status,
	payment_plan, legacy, overall_payment_status,
	first_amount, first_status, first_due_date, first_sender_name, first_method, first_transaction_ref,
	first_payment_date, first_screenshot, first_verified_by, first_verified_at, first_notes,
	second_amount, second_status, second_due_date, second_sender_name, second_method, second_transaction_ref,
	second_payment_date, second_screenshot, second_verified_by, second_verified_at, second_notes,
	air_cargo_cost, shipping_cost, tracking_number, estimated_delivery, actual_delivery,
	created_at, updated_at`

func roundTargets(r *payment.Round) []any {
	d := &r.Details
	return []any{&r.Amount, &r.Status, &r.DueDate, &d.SenderName, &d.Method, &d.TransactionRef,
		&d.PaymentDate, &d.Screenshot, &d.VerifiedBy, &d.VerifiedAt, &d.Notes}
}

func roundValues(r payment.Round) []any {
	d := r.Details
	return []any{r.Amount, r.Status, r.DueDate, d.SenderName, d.Method, d.TransactionRef,
		d.PaymentDate, d.Screenshot, d.VerifiedBy, d.VerifiedAt, d.Notes}
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	targets := []any{&o.ID, &o.Kind, &o.UserID, &o.ProductID, &o.PremiumCampaignID, &o.Quantity, &o.UnitPrice,
		&o.TotalPrice, &o.Status, &o.PaymentPlan, &o.Legacy, &o.OverallPaymentStatus}
	targets = append(targets, roundTargets(&o.FirstPayment)...)
	targets = append(targets, roundTargets(&o.SecondPayment)...)
	targets = append(targets, &o.AirCargoCost, &o.ShippingCost, &o.TrackingNumber, &o.EstimatedDelivery,
		&o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &o, nil
}

func placeholders(from, n int) string {
	var b strings.Builder
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", from+i)
	}
	return b.String()
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	id, err := uuid.NewV4()
	if err != nil {
		log.Error().Err(err).Msg("repository: failed to generate order id")
		return fmt.Errorf("repository: failed to generate order id: %w", err)
	}
	now := time.Now().UTC()
	o.ID, o.CreatedAt, o.UpdatedAt = id, now, now

	args := []any{o.ID, o.Kind, o.UserID, o.ProductID, o.PremiumCampaignID, o.Quantity, o.UnitPrice,
		o.TotalPrice, o.Status, o.PaymentPlan, o.Legacy, o.OverallPaymentStatus}
	args = append(args, roundValues(o.FirstPayment)...)
	args = append(args, roundValues(o.SecondPayment)...)
	args = append(args, o.AirCargoCost, o.ShippingCost, o.TrackingNumber, o.EstimatedDelivery,
		o.ActualDelivery, o.CreatedAt, o.UpdatedAt)

	query := `INSERT INTO orders (` + orderColumns + `) VALUES (` + placeholders(1, len(args)) + `)`
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: order references a missing %s", apperror.ErrNotFound, pgErr.ConstraintName)
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", apperror.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}
	if err := r.attachPayments(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepository) List(ctx context.Context, filter Filter) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3 = '' OR overall_payment_status = $3)
		  AND ($4::uuid IS NULL OR user_id = $4)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, string(filter.Kind), string(filter.Status), string(filter.Overall), filter.UserID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	return r.collect(ctx, rows)
}

func (r *postgresRepository) collect(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	var ptrs []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}
	rows.Close()

	if err := r.attachPayments(ctx, ptrs); err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

// attachPayments loads the payment document of every legacy order.
func (r *postgresRepository) attachPayments(ctx context.Context, orders []*Order) error {
	byID := make(map[uuid.UUID]*Order)
	var ids []uuid.UUID
	for _, o := range orders {
		if o.Legacy {
			byID[o.ID] = o
			ids = append(ids, o.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, amount, status, sender_name, method, transaction_ref, payment_date, screenshot,
		       verified_by, verified_at, notes, created_at, updated_at
		FROM payments WHERE order_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query legacy payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Payment
		d := &p.Details
		err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &d.SenderName, &d.Method, &d.TransactionRef,
			&d.PaymentDate, &d.Screenshot, &d.VerifiedBy, &d.VerifiedAt, &d.Notes, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to scan legacy payment: %w", err)
		}
		byID[p.OrderID].Payment = &p
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating legacy payments: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", apperror.ErrConflict, id, from)
	}
	return nil
}

func (r *postgresRepository) UpdateShipment(ctx context.Context, id uuid.UUID, s Shipment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET tracking_number    = COALESCE($2, tracking_number),
		    shipping_cost      = COALESCE($3, shipping_cost),
		    estimated_delivery = COALESCE($4, estimated_delivery),
		    actual_delivery    = COALESCE($5, actual_delivery),
		    updated_at         = $6
		WHERE id = $1 AND kind = 'premium'
	`, id, s.TrackingNumber, s.ShippingCost, s.EstimatedDelivery, s.ActualDelivery, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update shipment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: premium order %s", apperror.ErrNotFound, id)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s", apperror.ErrNotFound, id)
	}
	return nil
}

func refRound(w PaymentWrite) string {
	if w.Legacy {
		return legacyRefRound
	}
	return w.Outcome.Round.String()
}

func (r *postgresRepository) SubmitPayment(ctx context.Context, w PaymentWrite) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO transaction_refs (ref, order_id, round, created_at) VALUES ($1, $2, $3, $4)`,
			w.Ref, w.OrderID, refRound(w), time.Now().UTC())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", apperror.ErrDuplicateTransaction, w.Ref)
			}
			return fmt.Errorf("repository: failed to claim transaction ref: %w", err)
		}

		if err := writePayment(ctx, tx, w); err != nil {
			return err
		}

		// The round's earlier receipt is no longer on record once replaced.
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_refs WHERE order_id = $1 AND round = $2 AND ref <> $3`,
			w.OrderID, refRound(w), w.Ref); err != nil {
			return fmt.Errorf("repository: failed to release replaced transaction ref: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) ReviewPayment(ctx context.Context, w PaymentWrite) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := writePayment(ctx, tx, w); err != nil {
			return err
		}
		return applyEffect(ctx, tx, w.Outcome.Effect, w.Inventory)
	})
}

// writePayment updates the round (or legacy payment) conditionally on its
// previous status and the outcome's guard on the other round, then rewrites
// the order's overall status and, if asked, its fulfillment status.
func writePayment(ctx context.Context, tx pgx.Tx, w PaymentWrite) error {
	now := time.Now().UTC()
	d := w.Details
	o := w.Outcome

	var tag pgconn.CommandTag
	var err error
	if w.Legacy {
		tag, err = tx.Exec(ctx, `
			UPDATE payments
			SET status = $3, sender_name = $4, method = $5, transaction_ref = $6, payment_date = $7,
			    screenshot = $8, verified_by = $9, verified_at = $10, notes = $11, updated_at = $12
			WHERE order_id = $1 AND status = $2
		`, w.OrderID, o.From, o.To, d.SenderName, d.Method, d.TransactionRef, d.PaymentDate,
			d.Screenshot, d.VerifiedBy, d.VerifiedAt, d.Notes, now)
	} else {
		args := []any{w.OrderID, o.From, o.To, d.SenderName, d.Method, d.TransactionRef, d.PaymentDate,
			d.Screenshot, d.VerifiedBy, d.VerifiedAt, d.Notes, now}
		guard := ""
		if g := o.Guard; g != nil {
			op := "="
			if g.Not {
				op = "<>"
			}
			guard = fmt.Sprintf(" AND %s_status %s $13", g.Round, op)
			args = append(args, g.Status)
		}
		tag, err = tx.Exec(ctx, fmt.Sprintf(`
			UPDATE orders
			SET %[1]s_status = $3, %[1]s_sender_name = $4, %[1]s_method = $5, %[1]s_transaction_ref = $6,
			    %[1]s_payment_date = $7, %[1]s_screenshot = $8, %[1]s_verified_by = $9, %[1]s_verified_at = $10,
			    %[1]s_notes = $11, updated_at = $12
			WHERE id = $1 AND %[1]s_status = $2%[2]s
		`, o.Round, guard), args...)
	}
	if err != nil {
		return fmt.Errorf("repository: failed to update %s payment: %w", o.Round, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s payment of order %s changed since it was read as %s", apperror.ErrConflict, o.Round, w.OrderID, o.From)
	}

	var from []string
	to := ""
	if w.Status != nil {
		for _, s := range w.Status.From {
			from = append(from, string(s))
		}
		to = string(w.Status.To)
	}
	// Legacy orders keep their single status in payments; round orders derive
	// the overall status from the row as it stands after the round update.
	args := []any{w.OrderID, from, to, now}
	overall := `CASE
			WHEN first_status <> 'verified' THEN 'pending'
			WHEN payment_plan = 'full' OR second_status = 'verified' THEN 'completed'
			ELSE 'partial'
		END`
	if w.Legacy {
		overall = `$5`
		args = append(args, o.Overall)
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET overall_payment_status = `+overall+`,
		    status = CASE WHEN status = ANY($2::text[]) THEN $3 ELSE status END,
		    updated_at = $4
		WHERE id = $1
	`, args...)
	if err != nil {
		return fmt.Errorf("repository: failed to update order after payment: %w", err)
	}
	return nil
}

// applyEffect moves the inventory counter linked to the order. A commit never
// pushes ordered_quantity past total_quantity; a release never takes it below
// zero.
func applyEffect(ctx context.Context, tx pgx.Tx, effect payment.Effect, inv Inventory) error {
	if effect == payment.EffectNone {
		return nil
	}
	if inv.ID == nil {
		return fmt.Errorf("%w: %s inventory for this order no longer exists", apperror.ErrNotFound, inv.Kind)
	}

	table, participants := "products", ""
	if inv.Kind == KindPremium {
		table = "premium_campaigns"
	}

	var query string
	switch effect {
	case payment.EffectCommit:
		if inv.Kind == KindPremium {
			participants = ", current_participants = current_participants + 1"
		}
		query = `UPDATE ` + table + ` SET ordered_quantity = ordered_quantity + $2` + participants + `, updated_at = $3
			WHERE id = $1 AND ordered_quantity + $2 <= total_quantity`
	case payment.EffectRelease:
		if inv.Kind == KindPremium {
			participants = ", current_participants = GREATEST(current_participants - 1, 0)"
		}
		query = `UPDATE ` + table + ` SET ordered_quantity = GREATEST(ordered_quantity - $2, 0)` + participants + `, updated_at = $3
			WHERE id = $1`
	}

	tag, err := tx.Exec(ctx, query, *inv.ID, inv.Quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to adjust %s inventory: %w", inv.Kind, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, *inv.ID).Scan(&exists); err != nil {
		return fmt.Errorf("repository: failed to check %s inventory: %w", inv.Kind, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s inventory %s", apperror.ErrNotFound, inv.Kind, *inv.ID)
	}
	return fmt.Errorf("%w: verifying %d more units would exceed total quantity", apperror.ErrValidation, inv.Quantity)
}

func (r *postgresRepository) TransactionRefExists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transaction_refs WHERE ref = $1)`, ref).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check transaction ref: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ListOverdue(ctx context.Context, now time.Time) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE NOT legacy
		  AND overall_payment_status IN ('pending', 'partial')
		  AND (
		    (first_status <> 'verified' AND first_amount > 0 AND first_due_date < $1) OR
		    (payment_plan = 'installment' AND second_status <> 'verified' AND second_amount > 0 AND second_due_date < $1)
		  )
		ORDER BY created_at
	`, now)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query overdue orders: %w", err)
	}
	return r.collect(ctx, rows)
}

func (r *postgresRepository) MarkOverdue(ctx context.Context, id uuid.UUID, from payment.OverallStatus) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET overall_payment_status = 'overdue', updated_at = $3
		WHERE id = $1 AND overall_payment_status = $2
	`, id, from, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("repository: failed to mark order %s overdue: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
