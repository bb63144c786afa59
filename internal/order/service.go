// Package order owns placed orders: persistence and the status/payment
// state machine. Orders are mutated only through Service operations; the
// creation-time snapshots never change.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventOrderCreated    = "order_created"
	EventOrderCancelled  = "order_cancelled"
	EventOrderPayment    = "order_payment"
	EventRefundRequested = "order_refund_requested"
)

// Caller identifies who is acting on an order. Privileged callers
// (administrative tooling) may reach any order; everyone else only their
// own.
type Caller struct {
	UserID     string
	Privileged bool
}

type Service struct {
	repo    Repository
	catalog catalog.Catalog
	log     *zap.Logger
}

func NewService(repo Repository, cat catalog.Catalog, log *zap.Logger) *Service {
	return &Service{repo: repo, catalog: cat, log: log}
}

// Get resolves ref as an order id or an order number, then enforces
// ownership.
func (s *Service) Get(ctx context.Context, caller Caller, ref string) (*domain.Order, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !caller.Privileged && o.UserID != caller.UserID {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Cancel stops an order that has not shipped, restoring stock for every
// tracked line.
func (s *Service) Cancel(ctx context.Context, caller Caller, ref, reason string) (*domain.Order, error) {
	o, err := s.Get(ctx, caller, ref)
	if err != nil {
		return nil, err
	}

	if !o.Status.Cancellable() {
		return nil, domain.ErrNotCancellable
	}

	now := time.Now()
	o.Status = domain.OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason

	event, err := s.event(EventOrderCancelled, o, map[string]any{"reason": reason})
	if err != nil {
		return nil, err
	}
	// The cancelled status commits before stock moves; restoring first would
	// leave restored stock against a still-active order if the write failed.
	if err := s.repo.Update(ctx, o, event); err != nil {
		return nil, err
	}

	s.restoreInventory(ctx, o)
	return o, nil
}

// RequestRefund flags a delivered/shipped, paid order for manual refund
// processing. It does not change the order status itself.
func (s *Service) RequestRefund(ctx context.Context, caller Caller, ref, reason string) (*domain.Order, error) {
	o, err := s.Get(ctx, caller, ref)
	if err != nil {
		return nil, err
	}

	refundable := o.Status == domain.OrderStatusShipped || o.Status == domain.OrderStatusDelivered
	if !refundable || o.Payment.Status != domain.PaymentStatusPaid {
		return nil, domain.ErrNotRefundable
	}
	if o.RefundRequested {
		return nil, domain.ErrRefundAlreadyRequested
	}

	o.RefundRequested = true
	o.RefundReason = reason

	event, err := s.event(EventRefundRequested, o, map[string]any{"reason": reason})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o, event); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus moves the order along the status machine, stamping
// delivered/cancelled metadata where the target status calls for it.
func (s *Service) UpdateStatus(ctx context.Context, ref string, newStatus domain.OrderStatus, reason string) (*domain.Order, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransitionTo(newStatus) {
		return nil, domain.ErrIllegalTransition
	}

	now := time.Now()
	switch newStatus {
	case domain.OrderStatusDelivered:
		o.DeliveredAt = &now
		for i := range o.Items {
			o.Items[i].Status = domain.FulfillmentDelivered
		}
	case domain.OrderStatusCancelled:
		o.CancelledAt = &now
		o.CancelReason = reason
	case domain.OrderStatusShipped:
		for i := range o.Items {
			o.Items[i].Status = domain.FulfillmentShipped
		}
	}
	o.Status = newStatus

	if err := s.repo.Update(ctx, o, nil); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdatePaymentStatus records a payment outcome. A successful payment on a
// still-pending order auto-advances the order to confirmed.
func (s *Service) UpdatePaymentStatus(ctx context.Context, ref string, newStatus domain.PaymentStatus, transactionID string) (*domain.Order, error) {
	o, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !o.Payment.Status.CanTransitionTo(newStatus) {
		return nil, domain.ErrIllegalTransition
	}

	now := time.Now()
	o.Payment.Status = newStatus
	if transactionID != "" {
		o.Payment.TransactionID = transactionID
	}

	switch newStatus {
	case domain.PaymentStatusPaid:
		o.Payment.PaidAt = &now
		if o.Status == domain.OrderStatusPending {
			o.Status = domain.OrderStatusConfirmed
		}
	case domain.PaymentStatusFailed:
		o.Payment.FailedAt = &now
	case domain.PaymentStatusRefunded, domain.PaymentStatusPartiallyRefunded:
		o.Payment.RefundedAt = &now
	}

	event, err := s.event(EventOrderPayment, o, map[string]any{
		"payment_status": newStatus,
		"transaction_id": transactionID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o, event); err != nil {
		return nil, err
	}
	return o, nil
}

// restoreInventory is the reverse of checkout's decrement. Failures are
// logged and skipped: cancellation must not be blocked by one bad counter.
func (s *Service) restoreInventory(ctx context.Context, o *domain.Order) {
	for _, item := range o.Items {
		if !item.TrackQuantity {
			continue
		}
		if err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Warn("failed to restore stock on cancellation",
				zap.String("order_id", o.ID.String()),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

func (s *Service) resolve(ctx context.Context, ref string) (*domain.Order, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByNumber(ctx, ref)
}

func (s *Service) event(eventType string, o *domain.Order, extra map[string]any) (*OutboxEvent, error) {
	payload := map[string]any{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"status":       o.Status,
		"occurred_at":  time.Now(),
	}
	for k, v := range extra {
		payload[k] = v
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New("failed to marshal order event payload")
	}

	return &OutboxEvent{
		AggregateID: o.ID.String(),
		EventType:   eventType,
		Payload:     data,
	}, nil
}
