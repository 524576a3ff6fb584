package repository

import (
	"context"
	"time"

	"idstation-backend/internal/db"
	"idstation-backend/internal/domain"
)

type AuditLogRepository struct {
	DB *db.Postgres
}

type CreateAuditInput struct {
	StationID *int64
	Actor     string
	Action    string
	Entity    string
	EntityID  int64
	Detail    string
	Type      domain.AuditType
	Timestamp time.Time
}

func (r AuditLogRepository) Create(ctx context.Context, in CreateAuditInput) (int64, error) {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}
	if in.Type == "" {
		in.Type = domain.AuditInfo
	}
	var id int64
	err := r.DB.Pool.QueryRow(ctx, `
		INSERT INTO audit_logs (station_id, actor, action, entity, entity_id, detail, type, logged_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8, now())
		RETURNING id
	`, in.StationID, in.Actor, in.Action, in.Entity, in.EntityID, in.Detail, string(in.Type), in.Timestamp).Scan(&id)
	return id, err
}

func (r AuditLogRepository) List(ctx context.Context, stationID *int64, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, station_id, actor, action, entity, entity_id, detail, type, logged_at
		FROM audit_logs
		WHERE ($1::bigint IS NULL OR station_id=$1)
		ORDER BY logged_at DESC, id DESC
		LIMIT $2
	`, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var typ string
		if err := rows.Scan(&e.ID, &e.StationID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &typ, &e.LoggedAt); err != nil {
			return nil, err
		}
		e.Type = domain.AuditType(typ)
		items = append(items, e)
	}
	return items, rows.Err()
}
