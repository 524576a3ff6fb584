package repository

import (
	"context"
	"errors"

	"idstation-backend/internal/db"
	"idstation-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderRepository struct {
	DB *db.Postgres
}

// OrderQuery narrows an order search. Term matches the order number and the
// citizen's registration number, names and phone.
type OrderQuery struct {
	Term     string
	Status   domain.Status
	Page     int
	PageSize int
	SortDesc bool
}

func (q *OrderQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > 200 {
		q.PageSize = 20
	}
}

const orderSelect = `
	SELECT o.id, o.station_id, o.citizen_id, o.registrar_id, o.printer_id,
	       o.order_number, o.order_type, o.order_status, o.is_printed, o.is_accepted,
	       o.payment_method, o.payment_reference, o.amount, o.created_at, o.updated_at,
	       c.reg_number, c.first_name, c.middle_name, c.last_name, c.phone,
	       u.username
	FROM orders o
	JOIN citizens c ON c.id = o.citizen_id
	LEFT JOIN users u ON u.id = o.printer_id`

// Search returns one page of orders with joined citizen summaries plus the
// total match count. Sorted on a single deterministic key (order number, id).
func (r OrderRepository) Search(ctx context.Context, stationID *int64, q OrderQuery) ([]domain.Order, int64, error) {
	q.normalize()
	where := `
		($1::bigint IS NULL OR o.station_id=$1)
		AND ($2 = '' OR o.order_status=$2)
		AND ($3 = '' OR o.order_number ILIKE '%'||$3||'%'
			OR c.reg_number ILIKE '%'||$3||'%'
			OR c.first_name ILIKE '%'||$3||'%'
			OR c.middle_name ILIKE '%'||$3||'%'
			OR c.last_name ILIKE '%'||$3||'%'
			OR c.phone ILIKE '%'||$3||'%')`

	var total int64
	if err := r.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders o JOIN citizens c ON c.id=o.citizen_id WHERE `+where,
		stationID, string(q.Status), q.Term,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `ORDER BY o.order_number ASC, o.id ASC`
	if q.SortDesc {
		order = `ORDER BY o.order_number DESC, o.id DESC`
	}
	rows, err := r.DB.Pool.Query(ctx,
		orderSelect+` WHERE `+where+` `+order+` LIMIT $4 OFFSET $5`,
		stationID, string(q.Status), q.Term, q.PageSize, (q.Page-1)*q.PageSize,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *o)
	}
	return items, total, rows.Err()
}

// GetByID returns the order with joined citizen and printer summaries.
// ErrStationMismatch is returned when the order lives in another station.
func (r OrderRepository) GetByID(ctx context.Context, stationID *int64, id int64) (*domain.Order, error) {
	row := r.DB.Pool.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if stationID != nil && o.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	return o, nil
}

// CreateForCitizen inserts an order after re-checking the citizen under a
// row lock: the citizen must exist, belong to the order's station and be
// APPROVED. One transaction covers check and insert so a concurrent
// verification change cannot slip between them.
func (r OrderRepository) CreateForCitizen(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		citizenStation int64
		verified       string
		regNumber      string
		firstName      string
		middleName     string
		lastName       string
		phone          string
	)
	err = tx.QueryRow(ctx, `
		SELECT station_id, is_verified, reg_number, first_name, middle_name, last_name, phone
		FROM citizens WHERE id=$1
		FOR UPDATE
	`, o.CitizenID).Scan(&citizenStation, &verified, &regNumber, &firstName, &middleName, &lastName, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if citizenStation != o.StationID {
		return nil, ErrStationMismatch
	}
	if domain.Status(verified) != domain.StatusApproved {
		return nil, ErrCitizenNotApproved
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders
		(station_id, citizen_id, registrar_id, order_number, order_type,
		 order_status, is_printed, is_accepted,
		 payment_method, payment_reference, amount, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, now(), now())
		RETURNING id, created_at, updated_at
	`, o.StationID, o.CitizenID, o.RegistrarID, o.OrderNumber, o.OrderType,
		string(o.OrderStatus), string(o.IsPrinted), string(o.IsAccepted),
		o.PaymentMethod, o.PaymentReference, o.Amount.Amount,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	o.Citizen = &domain.OrderCitizenSummary{
		ID:        o.CitizenID,
		RegNumber: regNumber,
		FullName:  domain.Citizen{FirstName: firstName, MiddleName: middleName, LastName: lastName}.FullName(),
		Phone:     phone,
	}
	return &o, nil
}

// Delete removes an order while it is still PENDING and only for the
// registrar who created it.
func (r OrderRepository) Delete(ctx context.Context, stationID *int64, id, registrarID int64) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		ownStation int64
		ownStatus  string
		ownReg     int64
	)
	err = tx.QueryRow(ctx, `
		SELECT station_id, order_status, registrar_id FROM orders WHERE id=$1 FOR UPDATE
	`, id).Scan(&ownStation, &ownStatus, &ownReg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if stationID != nil && ownStation != *stationID {
		return ErrStationMismatch
	}
	if domain.Status(ownStatus) != domain.StatusPending {
		return ErrOrderNotPending
	}
	if ownReg != registrarID {
		return ErrNotOrderOwner
	}

	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetStatus assigns the payment/registration approval state.
func (r OrderRepository) SetStatus(ctx context.Context, stationID *int64, id int64, status domain.Status) (*domain.Order, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE orders SET order_status=$3, updated_at=now()
		WHERE id=$1 AND ($2::bigint IS NULL OR station_id=$2)
	`, id, stationID, string(status))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missReason(ctx, id)
	}
	return r.GetByID(ctx, stationID, id)
}

// SetPrint assigns the print state. Approving binds the printer identity to
// the order; rejecting clears it.
func (r OrderRepository) SetPrint(ctx context.Context, stationID *int64, id int64, status domain.Status, printerID *int64) (*domain.Order, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE orders SET is_printed=$3, printer_id=$4, updated_at=now()
		WHERE id=$1 AND ($2::bigint IS NULL OR station_id=$2)
	`, id, stationID, string(status), printerID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missReason(ctx, id)
	}
	return r.GetByID(ctx, stationID, id)
}

// SetAccepted marks the physical card as handed over.
func (r OrderRepository) SetAccepted(ctx context.Context, stationID *int64, id int64) (*domain.Order, error) {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE orders SET is_accepted=$3, updated_at=now()
		WHERE id=$1 AND ($2::bigint IS NULL OR station_id=$2)
	`, id, stationID, string(domain.StatusApproved))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, r.missReason(ctx, id)
	}
	return r.GetByID(ctx, stationID, id)
}

// TrackByPhone lists a citizen's orders by phone number for the tracking
// desk, scoped like every other read.
func (r OrderRepository) TrackByPhone(ctx context.Context, stationID *int64, phone string) ([]domain.Order, error) {
	rows, err := r.DB.Pool.Query(ctx,
		orderSelect+`
		WHERE ($1::bigint IS NULL OR o.station_id=$1) AND c.phone=$2
		ORDER BY o.order_number DESC, o.id DESC
		LIMIT 50`,
		stationID, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *o)
	}
	return items, rows.Err()
}

func (r OrderRepository) missReason(ctx context.Context, id int64) error {
	var exists bool
	if err := r.DB.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStationMismatch
	}
	return ErrNotFound
}

func scanOrder(row interface {
	Scan(dest ...any) error
}) (*domain.Order, error) {
	var (
		o           domain.Order
		orderStatus string
		isPrinted   string
		isAccepted  string
		printerID   pgtype.Int8
		regNumber   string
		firstName   string
		middleName  string
		lastName    string
		phone       string
		username    pgtype.Text
	)
	if err := row.Scan(
		&o.ID, &o.StationID, &o.CitizenID, &o.RegistrarID, &printerID,
		&o.OrderNumber, &o.OrderType, &orderStatus, &isPrinted, &isAccepted,
		&o.PaymentMethod, &o.PaymentReference, &o.Amount.Amount, &o.CreatedAt, &o.UpdatedAt,
		&regNumber, &firstName, &middleName, &lastName, &phone,
		&username,
	); err != nil {
		return nil, err
	}
	o.OrderStatus = domain.Status(orderStatus)
	o.IsPrinted = domain.Status(isPrinted)
	o.IsAccepted = domain.Status(isAccepted)
	if printerID.Valid {
		o.PrinterID = &printerID.Int64
	}
	o.Citizen = &domain.OrderCitizenSummary{
		ID:        o.CitizenID,
		RegNumber: regNumber,
		FullName:  domain.Citizen{FirstName: firstName, MiddleName: middleName, LastName: lastName}.FullName(),
		Phone:     phone,
	}
	if printerID.Valid && username.Valid {
		o.Printer = &domain.OrderPrinterSummary{ID: printerID.Int64, Username: username.String}
	}
	return &o, nil
}
