package repository

import (
	"context"
	"errors"

	"idstation-backend/internal/db"
	"idstation-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	DB *db.Postgres
}

type CreateUserParams struct {
	Username     string
	Phone        string
	Role         domain.UserRole
	StationID    *int64
	PasswordHash string
}

func (r UserRepository) Create(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	query := `
		INSERT INTO users (username, phone, role, station_id, password_hash, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,true, now(), now())
		RETURNING id, station_id, username, phone, role, active, password_hash, created_at, updated_at
	`
	row := r.DB.Pool.QueryRow(ctx, query, p.Username, p.Phone, string(p.Role), p.StationID, p.PasswordHash)
	return scanUser(row)
}

func (r UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, station_id, username, phone, role, active, password_hash, created_at, updated_at
		FROM users
		WHERE username=$1 AND deleted_at IS NULL
	`
	row := r.DB.Pool.QueryRow(ctx, query, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, station_id, username, phone, role, active, password_hash, created_at, updated_at
		FROM users
		WHERE id=$1 AND deleted_at IS NULL
	`
	row := r.DB.Pool.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns users, optionally narrowed to one station. A nil stationID
// lists every station (superAdmin view).
func (r UserRepository) List(ctx context.Context, stationID *int64, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, station_id, username, phone, role, active, password_hash, created_at, updated_at
		FROM users
		WHERE deleted_at IS NULL AND ($1::bigint IS NULL OR station_id=$1)
		ORDER BY username ASC
		LIMIT $2
	`, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

type UpdateUserParams struct {
	Phone        string
	Role         domain.UserRole
	StationID    *int64
	PasswordHash *string
}

func (r UserRepository) Update(ctx context.Context, id int64, p UpdateUserParams) (*domain.User, error) {
	query := `
		UPDATE users
		SET phone=$2, role=$3, station_id=$4,
		    password_hash=COALESCE($5, password_hash),
		    updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, station_id, username, phone, role, active, password_hash, created_at, updated_at
	`
	row := r.DB.Pool.QueryRow(ctx, query, id, p.Phone, string(p.Role), p.StationID, p.PasswordHash)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE users SET active=$2, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE users SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(
		&u.ID,
		&u.StationID,
		&u.Username,
		&u.Phone,
		&role,
		&u.Active,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if normalized, ok := domain.NormalizeRole(role); ok {
		u.Role = normalized
	} else {
		u.Role = domain.UserRole(role)
	}
	return &u, nil
}
