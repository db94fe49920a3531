// Package ordering runs the order lifecycle: creation, line updates, confirmation and
// the cascade from dish lines up to the order.
package ordering

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"restaurant-backend/internal/audit"
	"restaurant-backend/internal/domain"
	"restaurant-backend/internal/lock"
	"restaurant-backend/internal/logging"
	"restaurant-backend/internal/models"
	"restaurant-backend/internal/notify"
	"restaurant-backend/internal/report"
	"restaurant-backend/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Repository interface {
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)
	FindByReference(ctx context.Context, reference string) (*domain.Order, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	Save(ctx context.Context, o *domain.Order) (*domain.Order, error)
	FindByStatus(ctx context.Context, st domain.Status) ([]*domain.Order, error)
	LineTimestamps(ctx context.Context, page, size int) ([]store.LineTimestamp, error)
}

type DishCatalog interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Dish, error)
}

type Auditor interface {
	Write(ctx context.Context, opts audit.LogOptions) error
}

type Options struct {
	// EnforceStock refuses confirmation when a dish cannot be produced in the ordered amount.
	EnforceStock bool
	Rounding     domain.Rounding
}

type LineRequest struct {
	DishID   uint
	Quantity int
}

type Service struct {
	orders    Repository
	dishes    DishCatalog
	locker    lock.Locker
	publisher notify.Publisher
	audit     Auditor
	logger    logrus.FieldLogger
	opts      Options
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(
	orders Repository,
	dishes DishCatalog,
	locker lock.Locker,
	publisher notify.Publisher,
	auditor Auditor,
	logger logrus.FieldLogger,
	opts Options,
) *Service {
	if opts.Rounding == "" {
		opts.Rounding = domain.RoundCeil
	}
	return &Service{
		orders:    orders,
		dishes:    dishes,
		locker:    locker,
		publisher: publisher,
		audit:     auditor,
		logger:    logger,
		opts:      opts,
		tracer:    otel.Tracer("restaurant-backend/ordering"),
		now:       time.Now,
	}
}

func lockKey(reference string) string {
	return "order:" + reference
}

func (s *Service) startSpan(ctx context.Context, op, reference string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "ordering."+op, trace.WithAttributes(attribute.String("order.reference", reference)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// CreateOrder stores a new CREATED order. Every line and the order share the creation time.
func (s *Service) CreateOrder(ctx context.Context, reference string, reqs []LineRequest) (o *domain.Order, err error) {
	reference = strings.TrimSpace(reference)
	ctx, span := s.startSpan(ctx, "CreateOrder", reference)
	defer func() { endSpan(span, err) }()

	if reference == "" {
		return nil, domain.NewValidationError("reference", "order reference is required")
	}
	release, err := s.locker.Lock(ctx, lockKey(reference))
	if err != nil {
		return nil, fmt.Errorf("create order %s: %w", reference, err)
	}
	defer release()

	exists, err := s.orders.ExistsByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &domain.DuplicateReferenceError{Entity: "order", Reference: reference}
	}

	at := s.now()
	lines, err := s.buildLines(ctx, reqs, at)
	if err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(reference, at, lines)
	if err != nil {
		return nil, err
	}
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order %s: %w", reference, err)
	}

	s.announce(ctx, snapshot{}, created, at)
	s.record(ctx, created, models.AuditActionCreate, fmt.Sprintf("order created with %d dish(es)", len(reqs)))
	return created, nil
}

// buildLines checks every quantity before looking any dish up.
func (s *Service) buildLines(ctx context.Context, reqs []LineRequest, at time.Time) ([]domain.DishOrder, error) {
	ids := make([]uint, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, domain.NewInvalidQuantityError(r.Quantity)
		}
		ids = append(ids, r.DishID)
	}
	dishes, err := s.dishes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.DishOrder, 0, len(reqs))
	for _, r := range reqs {
		d, ok := dishes[r.DishID]
		if !ok {
			return nil, domain.NewDishNotFoundError(r.DishID)
		}
		line, err := domain.NewDishOrder(d, r.Quantity, at)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) GetOrder(ctx context.Context, reference string) (*domain.Order, error) {
	return s.orders.FindByReference(ctx, strings.TrimSpace(reference))
}

// UpdateLineStatus moves every line of dishID to status, then lets the order follow.
func (s *Service) UpdateLineStatus(ctx context.Context, reference string, dishID uint, status domain.Status) (*domain.Order, error) {
	return s.mutate(ctx, "UpdateLineStatus", reference, func(o *domain.Order, at time.Time) (bool, error) {
		return true, o.UpdateLineStatus(dishID, status, at)
	})
}

// ReplaceLines swaps the dishes of a CREATED order. desired may be empty, CREATED or CONFIRMED.
func (s *Service) ReplaceLines(ctx context.Context, reference string, reqs []LineRequest, desired domain.Status) (*domain.Order, error) {
	return s.mutate(ctx, "ReplaceLines", reference, func(o *domain.Order, at time.Time) (bool, error) {
		if o.Status() != domain.StatusCreated {
			return false, &domain.IllegalOrderStateError{Reference: o.Reference, Status: o.Status(), Operation: "replace dishes"}
		}
		lines, err := s.buildLines(ctx, reqs, at)
		if err != nil {
			return false, err
		}
		return true, o.ReplaceLines(lines, desired, at)
	})
}

// ConfirmOrder is a no-op unless the order is CREATED.
func (s *Service) ConfirmOrder(ctx context.Context, reference string) (*domain.Order, error) {
	return s.mutate(ctx, "ConfirmOrder", reference, func(o *domain.Order, at time.Time) (bool, error) {
		return o.Confirm(at)
	})
}

// AdvanceOrder requests the next stage explicitly.
func (s *Service) AdvanceOrder(ctx context.Context, reference string, status domain.Status) (*domain.Order, error) {
	return s.mutate(ctx, "AdvanceOrder", reference, func(o *domain.Order, at time.Time) (bool, error) {
		return true, o.TransitionTo(status, at)
	})
}

// mutate loads the order under its lock, applies fn and saves the result. fn reports
// whether it changed anything; an unchanged order is returned without a write.
func (s *Service) mutate(ctx context.Context, op, reference string, fn func(o *domain.Order, at time.Time) (bool, error)) (o *domain.Order, err error) {
	reference = strings.TrimSpace(reference)
	ctx, span := s.startSpan(ctx, op, reference)
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Lock(ctx, lockKey(reference))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, reference, err)
	}
	defer release()

	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	before := snapshotOf(order)
	at := s.now()

	changed, err := fn(order, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, nil
	}
	if s.opts.EnforceStock && before.status == domain.StatusCreated && order.Status() == domain.StatusConfirmed {
		if err := s.checkStock(ctx, order, at); err != nil {
			return nil, err
		}
	}

	saved, err := s.orders.Save(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, reference, err)
	}
	span.SetAttributes(attribute.String("order.status", string(saved.Status())))

	s.announce(ctx, before, saved, at)
	s.record(ctx, saved, models.AuditActionStatus, fmt.Sprintf("%s: %s -> %s", op, before.status, saved.Status()))
	return saved, nil
}

// checkStock compares the summed quantity per dish with what the stock allows at at.
// Dishes without ingredients are not limited.
func (s *Service) checkStock(ctx context.Context, o *domain.Order, at time.Time) error {
	wanted := o.QuantitiesByDish()
	ids := make([]uint, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	dishes, err := s.dishes.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		d, ok := dishes[id]
		if !ok {
			return domain.NewDishNotFoundError(id)
		}
		if len(d.Ingredients) == 0 {
			continue
		}
		if producible := d.ProducibleQuantityWith(at, s.opts.Rounding); wanted[id] > producible {
			return &domain.InsufficientStockError{DishID: id, DishName: d.Name, Requested: wanted[id], Producible: producible}
		}
	}
	return nil
}

// snapshot is the set of statuses before a mutation, used to work out what changed.
type snapshot struct {
	status domain.Status
	lines  map[uint]domain.Status
}

func snapshotOf(o *domain.Order) snapshot {
	s := snapshot{status: o.Status(), lines: make(map[uint]domain.Status)}
	for _, l := range o.Lines() {
		s.lines[l.ID] = l.Status()
	}
	return s
}

// announce publishes one event per order or line whose status differs from before.
// Publish failures are logged; the change is already committed.
func (s *Service) announce(ctx context.Context, before snapshot, after *domain.Order, at time.Time) {
	var events []notify.StatusChanged
	if before.status != after.Status() {
		events = append(events, notify.StatusChanged{
			Entity:         notify.EntityOrder,
			OrderReference: after.Reference,
			From:           string(before.status),
			To:             string(after.Status()),
		})
	}
	for _, l := range after.Lines() {
		prev := before.lines[l.ID]
		if prev == l.Status() {
			continue
		}
		events = append(events, notify.StatusChanged{
			Entity:         notify.EntityDishOrder,
			OrderReference: after.Reference,
			DishOrderID:    l.ID,
			DishID:         l.Dish.DishID,
			From:           string(prev),
			To:             string(l.Status()),
		})
	}

	for _, evt := range events {
		evt.ID = uuid.NewString()
		evt.ChangedAt = at
		if err := s.publisher.Publish(ctx, evt); err != nil {
			logging.LogError(s.logger, "ordering", "announce", "publish status change failed", evt, err)
		}
	}
}

func (s *Service) record(ctx context.Context, o *domain.Order, action models.AuditAction, description string) {
	err := s.audit.Write(ctx, audit.LogOptions{
		EntityType:  "order",
		EntityID:    o.ID,
		EntityKey:   o.Reference,
		Action:      action,
		Description: description,
		After:       ToOrderResponse(o),
	})
	if err != nil {
		logging.LogError(s.logger, "ordering", "record", "audit write failed", o.Reference, err)
	}
}

// DishSold is one row of the sales report.
type DishSold struct {
	DishID   uint
	DishName string
	Quantity int64
	Revenue  decimal.Decimal
}

// Sales sums quantities and revenue per dish over SERVED orders. Revenue uses the unit
// price captured on each line.
func (s *Service) Sales(ctx context.Context) ([]DishSold, error) {
	served, err := s.orders.FindByStatus(ctx, domain.StatusServed)
	if err != nil {
		return nil, err
	}
	byDish := make(map[uint]*DishSold)
	for _, o := range served {
		for _, l := range o.Lines() {
			row, ok := byDish[l.Dish.DishID]
			if !ok {
				row = &DishSold{DishID: l.Dish.DishID, DishName: l.Dish.Name, Revenue: decimal.Zero}
				byDish[l.Dish.DishID] = row
			}
			row.Quantity += int64(l.Quantity)
			row.Revenue = row.Revenue.Add(l.Amount())
		}
	}

	out := make([]DishSold, 0, len(byDish))
	for _, row := range byDish {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DishID < out[j].DishID })
	return out, nil
}

// ExportSales writes the sales report as an xlsx workbook.
func (s *Service) ExportSales(ctx context.Context, w io.Writer) error {
	sold, err := s.Sales(ctx)
	if err != nil {
		return err
	}
	rows := make([]report.SalesRow, 0, len(sold))
	for _, d := range sold {
		rows = append(rows, report.SalesRow{DishID: d.DishID, DishName: d.DishName, Quantity: d.Quantity, Revenue: d.Revenue})
	}
	if err := report.WriteSales(w, rows, s.now()); err != nil {
		return fmt.Errorf("export sales: %w", err)
	}
	return nil
}

func (s *Service) LineTimestamps(ctx context.Context, page, size int) ([]store.LineTimestamp, error) {
	if page < 0 || size <= 0 {
		return nil, domain.NewValidationError("page", "page must be >= 0 and size > 0")
	}
	return s.orders.LineTimestamps(ctx, page, size)
}
