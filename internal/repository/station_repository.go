package repository

import (
	"context"
	"errors"
	"fmt"

	"idstation-backend/internal/db"
	"idstation-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type StationRepository struct {
	DB *db.Postgres
}

func (r StationRepository) List(ctx context.Context, limit int) ([]domain.Station, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, code, name_en, name_am, admin_name, created_at, updated_at
		FROM stations
		WHERE deleted_at IS NULL
		ORDER BY code ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Station
	for rows.Next() {
		var s domain.Station
		if err := rows.Scan(&s.ID, &s.Code, &s.NameEn, &s.NameAm, &s.AdminName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r StationRepository) Get(ctx context.Context, id int64) (*domain.Station, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, code, name_en, name_am, admin_name, created_at, updated_at
		FROM stations
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	var s domain.Station
	if err := row.Scan(&s.ID, &s.Code, &s.NameEn, &s.NameAm, &s.AdminName, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r StationRepository) Create(ctx context.Context, s domain.Station) (*domain.Station, error) {
	var out domain.Station
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO stations (code, name_en, name_am, admin_name, created_at, updated_at)
		VALUES ($1,$2,$3,$4, now(), now())
		RETURNING id, code, name_en, name_am, admin_name, created_at, updated_at
	`, s.Code, s.NameEn, s.NameAm, s.AdminName).Scan(
		&out.ID, &out.Code, &out.NameEn, &out.NameAm, &out.AdminName, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r StationRepository) Update(ctx context.Context, id int64, s domain.Station) (*domain.Station, error) {
	var out domain.Station
	err := r.DB.Pool.QueryRow(ctx, `
		UPDATE stations
		SET code=$2, name_en=$3, name_am=$4, admin_name=$5, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING id, code, name_en, name_am, admin_name, created_at, updated_at
	`, id, s.Code, s.NameEn, s.NameAm, s.AdminName).Scan(
		&out.ID, &out.Code, &out.NameEn, &out.NameAm, &out.AdminName, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r StationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE stations SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stamp and signature images are stored inline; the card layouts fetch them
// by station when rendering printable output.

func imageColumns(kind string) (dataCol, mimeCol string, err error) {
	switch kind {
	case "stamp":
		return "stamp_image", "stamp_mime", nil
	case "signature":
		return "signature_image", "signature_mime", nil
	}
	return "", "", fmt.Errorf("unknown image kind %q", kind)
}

func (r StationRepository) GetImage(ctx context.Context, id int64, kind string) ([]byte, string, error) {
	dataCol, mimeCol, err := imageColumns(kind)
	if err != nil {
		return nil, "", err
	}
	var data []byte
	var mime *string
	query := fmt.Sprintf(`SELECT %s, %s FROM stations WHERE id=$1 AND deleted_at IS NULL`, dataCol, mimeCol)
	if err := r.DB.Pool.QueryRow(ctx, query, id).Scan(&data, &mime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", ErrNotFound
	}
	out := ""
	if mime != nil {
		out = *mime
	}
	return data, out, nil
}

func (r StationRepository) SetImage(ctx context.Context, id int64, kind string, data []byte, mime string) error {
	dataCol, mimeCol, err := imageColumns(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE stations SET %s=$2, %s=$3, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, dataCol, mimeCol)
	tag, err := r.DB.Pool.Exec(ctx, query, id, data, mime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r StationRepository) ClearImage(ctx context.Context, id int64, kind string) error {
	dataCol, mimeCol, err := imageColumns(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE stations SET %s=NULL, %s=NULL, updated_at=now()
		WHERE id=$1 AND deleted_at IS NULL
	`, dataCol, mimeCol)
	tag, err := r.DB.Pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
