package repository

import (
	"context"
	"errors"

	"idstation-backend/internal/db"
	"idstation-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type CitizenRepository struct {
	DB *db.Postgres
}

// CitizenQuery narrows a citizen search. Term matches registration number,
// name parts and phone, case-insensitive.
type CitizenQuery struct {
	Term     string
	Page     int
	PageSize int
	SortDesc bool
}

func (q *CitizenQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > 200 {
		q.PageSize = 20
	}
}

const citizenColumns = `
	id, station_id, reg_number, first_name, middle_name, last_name, gender,
	birth_date, birth_place, occupation, phone,
	emergency_name, emergency_phone, emergency_relation,
	photo_ref, barcode, is_verified, created_at, updated_at`

// Search returns one page of citizens plus the total match count. A nil
// stationID searches every station (superAdmin view).
func (r CitizenRepository) Search(ctx context.Context, stationID *int64, q CitizenQuery) ([]domain.Citizen, int64, error) {
	q.normalize()
	where := `
		($1::bigint IS NULL OR station_id=$1)
		AND ($2 = '' OR reg_number ILIKE '%'||$2||'%'
			OR first_name ILIKE '%'||$2||'%'
			OR middle_name ILIKE '%'||$2||'%'
			OR last_name ILIKE '%'||$2||'%'
			OR phone ILIKE '%'||$2||'%')`

	var total int64
	if err := r.DB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM citizens WHERE `+where, stationID, q.Term,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := `ORDER BY reg_number ASC, id ASC`
	if q.SortDesc {
		order = `ORDER BY reg_number DESC, id DESC`
	}
	rows, err := r.DB.Pool.Query(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE `+where+` `+order+` LIMIT $3 OFFSET $4`,
		stationID, q.Term, q.PageSize, (q.Page-1)*q.PageSize,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Citizen
	for rows.Next() {
		c, err := scanCitizen(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *c)
	}
	return items, total, rows.Err()
}

// GetByID returns the citizen, ErrNotFound when absent, or
// ErrStationMismatch when it exists outside the given scope.
func (r CitizenRepository) GetByID(ctx context.Context, stationID *int64, id int64) (*domain.Citizen, error) {
	row := r.DB.Pool.QueryRow(ctx, `SELECT `+citizenColumns+` FROM citizens WHERE id=$1`, id)
	c, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if stationID != nil && c.StationID != *stationID {
		return nil, ErrStationMismatch
	}
	return c, nil
}

func (r CitizenRepository) Create(ctx context.Context, c domain.Citizen) (*domain.Citizen, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO citizens
		(station_id, reg_number, first_name, middle_name, last_name, gender,
		 birth_date, birth_place, occupation, phone,
		 emergency_name, emergency_phone, emergency_relation,
		 photo_ref, barcode, is_verified, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16, now(), now())
		RETURNING `+citizenColumns+`
	`, c.StationID, c.RegNumber, c.FirstName, c.MiddleName, c.LastName, c.Gender,
		c.BirthDate, c.BirthPlace, c.Occupation, c.Phone,
		c.EmergencyName, c.EmergencyPhone, c.EmergencyRelation,
		c.PhotoRef, c.Barcode, string(c.IsVerified))
	return scanCitizen(row)
}

// Update replaces the editable fields. Verification status is untouched;
// SetVerification owns that column.
func (r CitizenRepository) Update(ctx context.Context, stationID *int64, id int64, c domain.Citizen) (*domain.Citizen, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE citizens
		SET reg_number=$3, first_name=$4, middle_name=$5, last_name=$6, gender=$7,
		    birth_date=$8, birth_place=$9, occupation=$10, phone=$11,
		    emergency_name=$12, emergency_phone=$13, emergency_relation=$14,
		    photo_ref=$15, updated_at=now()
		WHERE id=$1 AND ($2::bigint IS NULL OR station_id=$2)
		RETURNING `+citizenColumns+`
	`, id, stationID, c.RegNumber, c.FirstName, c.MiddleName, c.LastName, c.Gender,
		c.BirthDate, c.BirthPlace, c.Occupation, c.Phone,
		c.EmergencyName, c.EmergencyPhone, c.EmergencyRelation, c.PhotoRef)
	out, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missReason(ctx, id)
		}
		return nil, err
	}
	return out, nil
}

// Delete hard-deletes a citizen. Citizens with orders on file are refused so
// orders never dangle. Existence and station scope resolve before the order
// guard; cross-station callers see not-found, never the order count.
func (r CitizenRepository) Delete(ctx context.Context, stationID *int64, id int64) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var ownStation int64
	err = tx.QueryRow(ctx, `
		SELECT station_id FROM citizens WHERE id=$1 FOR UPDATE
	`, id).Scan(&ownStation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if stationID != nil && ownStation != *stationID {
		return ErrStationMismatch
	}

	var orderCount int64
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE citizen_id=$1
	`, id).Scan(&orderCount)
	if err != nil {
		return err
	}
	if orderCount > 0 {
		return ErrCitizenHasOrders
	}

	if _, err := tx.Exec(ctx, `DELETE FROM citizens WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetVerification assigns the verification state. Any state is reachable
// from any state; re-applying the current state is a no-op, not an error.
func (r CitizenRepository) SetVerification(ctx context.Context, stationID *int64, id int64, status domain.Status) (*domain.Citizen, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		UPDATE citizens SET is_verified=$3, updated_at=now()
		WHERE id=$1 AND ($2::bigint IS NULL OR station_id=$2)
		RETURNING `+citizenColumns+`
	`, id, stationID, string(status))
	out, err := scanCitizen(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missReason(ctx, id)
		}
		return nil, err
	}
	return out, nil
}

// missReason tells ErrNotFound apart from ErrStationMismatch after a scoped
// statement touched zero rows.
func (r CitizenRepository) missReason(ctx context.Context, id int64) error {
	var exists bool
	if err := r.DB.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM citizens WHERE id=$1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrStationMismatch
	}
	return ErrNotFound
}

func scanCitizen(row interface {
	Scan(dest ...any) error
}) (*domain.Citizen, error) {
	var (
		c      domain.Citizen
		status string
	)
	if err := row.Scan(
		&c.ID, &c.StationID, &c.RegNumber, &c.FirstName, &c.MiddleName, &c.LastName, &c.Gender,
		&c.BirthDate, &c.BirthPlace, &c.Occupation, &c.Phone,
		&c.EmergencyName, &c.EmergencyPhone, &c.EmergencyRelation,
		&c.PhotoRef, &c.Barcode, &status, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.IsVerified = domain.Status(status)
	return &c, nil
}
