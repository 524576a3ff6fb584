package repository

import (
	"context"
	"time"

	"idstation-backend/internal/db"
)

type ReportRepository struct {
	DB *db.Postgres
}

// ReportSummary is the read-side aggregation behind the dashboards. It is
// recomputed on every request; nothing is cached.
type ReportSummary struct {
	TotalOrders      int64
	ApprovedOrders   int64
	PendingOrders    int64
	RejectedOrders   int64
	PrintedCards     int64
	UnprintedCards   int64
	AcceptedCards    int64
	Revenue          int64
	TotalCitizens    int64
	ApprovedCitizens int64
	PendingCitizens  int64
	RejectedCitizens int64
}

// StationReportRow is one station's slice of the cross-station breakdown.
type StationReportRow struct {
	StationID   int64
	StationCode string
	StationName string
	Orders      int64
	Approved    int64
	Printed     int64
	Revenue     int64
}

// Summary aggregates order and citizen counts for one station, or for all
// stations when stationID is nil. The date range bounds order creation time.
func (r ReportRepository) Summary(ctx context.Context, stationID *int64, from, to *time.Time) (ReportSummary, error) {
	var s ReportSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE order_status='APPROVED') AS approved,
			COUNT(*) FILTER (WHERE order_status='PENDING') AS pending,
			COUNT(*) FILTER (WHERE order_status='REJECTED') AS rejected,
			COUNT(*) FILTER (WHERE is_printed='APPROVED') AS printed,
			COUNT(*) FILTER (WHERE is_printed<>'APPROVED') AS unprinted,
			COUNT(*) FILTER (WHERE is_accepted='APPROVED') AS accepted,
			COALESCE(SUM(amount) FILTER (WHERE order_status='APPROVED'),0) AS revenue
		FROM orders
		WHERE ($1::bigint IS NULL OR station_id=$1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
	`, stationID, from, to).Scan(
		&s.TotalOrders, &s.ApprovedOrders, &s.PendingOrders, &s.RejectedOrders,
		&s.PrintedCards, &s.UnprintedCards, &s.AcceptedCards, &s.Revenue,
	)
	if err != nil {
		return s, err
	}

	err = r.DB.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_verified='APPROVED') AS approved,
			COUNT(*) FILTER (WHERE is_verified='PENDING') AS pending,
			COUNT(*) FILTER (WHERE is_verified='REJECTED') AS rejected
		FROM citizens
		WHERE ($1::bigint IS NULL OR station_id=$1)
	`, stationID).Scan(
		&s.TotalCitizens, &s.ApprovedCitizens, &s.PendingCitizens, &s.RejectedCitizens,
	)
	return s, err
}

// StationBreakdown returns per-station counts for the unscoped view.
func (r ReportRepository) StationBreakdown(ctx context.Context, from, to *time.Time) ([]StationReportRow, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT st.id, st.code, st.name_en,
		       COUNT(o.id) AS orders,
		       COUNT(o.id) FILTER (WHERE o.order_status='APPROVED') AS approved,
		       COUNT(o.id) FILTER (WHERE o.is_printed='APPROVED') AS printed,
		       COALESCE(SUM(o.amount) FILTER (WHERE o.order_status='APPROVED'),0) AS revenue
		FROM stations st
		LEFT JOIN orders o ON o.station_id = st.id
		  AND ($1::timestamptz IS NULL OR o.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR o.created_at < $2)
		WHERE st.deleted_at IS NULL
		GROUP BY st.id, st.code, st.name_en
		ORDER BY st.code ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StationReportRow
	for rows.Next() {
		var row StationReportRow
		if err := rows.Scan(&row.StationID, &row.StationCode, &row.StationName,
			&row.Orders, &row.Approved, &row.Printed, &row.Revenue); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}
