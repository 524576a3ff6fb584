package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"
)

const orderNumberAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderNumber builds ORD-<epoch-millis>-<9-char-random-base36>.
// Nothing enforces uniqueness: two calls within the same millisecond collide
// when the random suffixes match.
func NewOrderNumber(now time.Time, rnd *rand.Rand) string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rnd.Intn(len(orderNumberAlphabet))]
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// OrderStore is the persistence contract the order workflow needs.
// repository.OrderRepository implements it against Postgres and
// repository.MemoryOrderStore in memory.
type OrderStore interface {
	Search(ctx context.Context, stationID *int64, q repository.OrderQuery) ([]domain.Order, int64, error)
	GetByID(ctx context.Context, stationID *int64, id int64) (*domain.Order, error)
	CreateForCitizen(ctx context.Context, o domain.Order) (*domain.Order, error)
	Delete(ctx context.Context, stationID *int64, id, registrarID int64) error
	SetStatus(ctx context.Context, stationID *int64, id int64, status domain.Status) (*domain.Order, error)
	SetPrint(ctx context.Context, stationID *int64, id int64, status domain.Status, printerID *int64) (*domain.Order, error)
	SetAccepted(ctx context.Context, stationID *int64, id int64) (*domain.Order, error)
	TrackByPhone(ctx context.Context, stationID *int64, phone string) ([]domain.Order, error)
}

type OrderService struct {
	Orders   OrderStore
	Audit    AuditSink
	Logger   *slog.Logger
	Currency string

	// Now and Rand are swappable for deterministic order numbers in tests.
	Now  func() time.Time
	Rand *rand.Rand

	randMu sync.Mutex
}

type CreateOrderInput struct {
	CitizenID        int64
	OrderType        string
	PaymentMethod    string
	PaymentReference string
	Amount           int64
}

// BulkResult reports a per-id batch outcome. Transitions already applied
// stay applied when a later id fails; there is no batch transaction.
type BulkResult struct {
	Updated int
	Failed  []BulkFailure
}

type BulkFailure struct {
	ID     int64
	Reason string
}

func (s *OrderService) orderNumber() string {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	s.randMu.Lock()
	defer s.randMu.Unlock()
	rnd := s.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(now.UnixNano()))
		s.Rand = rnd
	}
	return NewOrderNumber(now, rnd)
}

func (s *OrderService) Search(ctx context.Context, user authctx.CurrentUser, q repository.OrderQuery) ([]domain.Order, int64, error) {
	scope, err := user.StationScope()
	if err != nil {
		return nil, 0, err
	}
	return s.Orders.Search(ctx, scope, q)
}

func (s *OrderService) GetByID(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Order, error) {
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	return s.Orders.GetByID(ctx, scope, id)
}

// Create places an order for an already-APPROVED citizen in the registrar's
// station. The store re-checks citizen state and station inside one
// transaction.
func (s *OrderService) Create(ctx context.Context, user authctx.CurrentUser, in CreateOrderInput) (*domain.Order, error) {
	if !user.Is(domain.RoleRegistrar) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	if in.OrderType == "" {
		in.OrderType = domain.OrderTypeNew
	}
	if in.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: paymentMethod is required", ErrValidation)
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}

	created, err := s.Orders.CreateForCitizen(ctx, domain.Order{
		StationID:        *scope,
		CitizenID:        in.CitizenID,
		RegistrarID:      user.ID,
		OrderNumber:      s.orderNumber(),
		OrderType:        in.OrderType,
		OrderStatus:      domain.StatusPending,
		IsPrinted:        domain.StatusPending,
		IsAccepted:       domain.StatusPending,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
		Amount:           domain.Money{Amount: in.Amount, Currency: s.Currency},
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "order.create", created.ID, created.OrderNumber)
	return created, nil
}

// Delete removes an order while it is still PENDING and only for the
// registrar who created it.
func (s *OrderService) Delete(ctx context.Context, user authctx.CurrentUser, id int64) error {
	if !user.Is(domain.RoleRegistrar) {
		return ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return err
	}
	if err := s.Orders.Delete(ctx, scope, id, user.ID); err != nil {
		return err
	}
	s.record(ctx, user, "order.delete", id, "")
	return nil
}

// UpdateStatus assigns the approval state. Admin-only.
func (s *OrderService) UpdateStatus(ctx context.Context, user authctx.CurrentUser, id int64, status domain.Status) (*domain.Order, error) {
	if !user.Is(domain.RoleStationAdmin, domain.RoleSuperAdmin, domain.RoleDeveloper) {
		return nil, ErrRoleDenied
	}
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: invalid order status %q", ErrValidation, status)
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	updated, err := s.Orders.SetStatus(ctx, scope, id, status)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "order.status."+string(status), id, updated.OrderNumber)
	return updated, nil
}

// ApprovePrint marks the card as printed and binds the printer identity.
func (s *OrderService) ApprovePrint(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Order, error) {
	if !user.Is(domain.RolePrinter) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	printerID := user.ID
	updated, err := s.Orders.SetPrint(ctx, scope, id, domain.StatusApproved, &printerID)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "order.print.approve", id, updated.OrderNumber)
	return updated, nil
}

// RejectPrint marks the print as rejected and clears any assigned printer.
func (s *OrderService) RejectPrint(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Order, error) {
	if !user.Is(domain.RolePrinter) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	updated, err := s.Orders.SetPrint(ctx, scope, id, domain.StatusRejected, nil)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "order.print.reject", id, updated.OrderNumber)
	return updated, nil
}

// Accept marks the physical card as handed over to the citizen.
func (s *OrderService) Accept(ctx context.Context, user authctx.CurrentUser, id int64) (*domain.Order, error) {
	if !user.Is(domain.RolePrinter) {
		return nil, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	updated, err := s.Orders.SetAccepted(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user, "order.accept", id, updated.OrderNumber)
	return updated, nil
}

// TrackByPhone looks up a citizen's orders for the tracking desk.
func (s *OrderService) TrackByPhone(ctx context.Context, user authctx.CurrentUser, phone string) ([]domain.Order, error) {
	scope, err := user.StationScope()
	if err != nil {
		return nil, err
	}
	return s.Orders.TrackByPhone(ctx, scope, phone)
}

// BulkApprove applies APPROVED to each id in turn.
func (s *OrderService) BulkApprove(ctx context.Context, user authctx.CurrentUser, ids []int64) (BulkResult, error) {
	return s.bulkStatus(ctx, user, ids, domain.StatusApproved)
}

// BulkReject applies REJECTED to each id in turn.
func (s *OrderService) BulkReject(ctx context.Context, user authctx.CurrentUser, ids []int64) (BulkResult, error) {
	return s.bulkStatus(ctx, user, ids, domain.StatusRejected)
}

func (s *OrderService) bulkStatus(ctx context.Context, user authctx.CurrentUser, ids []int64, status domain.Status) (BulkResult, error) {
	if !user.Is(domain.RoleStationAdmin, domain.RoleSuperAdmin, domain.RoleDeveloper) {
		return BulkResult{}, ErrRoleDenied
	}
	scope, err := user.StationScope()
	if err != nil {
		return BulkResult{}, err
	}
	var res BulkResult
	for _, id := range ids {
		if _, err := s.Orders.SetStatus(ctx, scope, id, status); err != nil {
			res.Failed = append(res.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		res.Updated++
		s.record(ctx, user, "order.status."+string(status), id, "bulk")
	}
	return res, nil
}

func (s *OrderService) record(ctx context.Context, user authctx.CurrentUser, action string, entityID int64, detail string) {
	if s.Audit == nil {
		return
	}
	_, err := s.Audit.Create(ctx, repository.CreateAuditInput{
		StationID: user.StationID,
		Actor:     user.Username,
		Action:    action,
		Entity:    "order",
		EntityID:  entityID,
		Detail:    detail,
		Type:      domain.AuditInfo,
		Timestamp: time.Now(),
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("audit write failed", "action", action, "err", err)
	}
}
