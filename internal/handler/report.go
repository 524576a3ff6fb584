package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"idstation-backend/internal/repository"
	"idstation-backend/internal/server/authctx"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

// ReportHandler recomputes aggregates from the orders and citizens tables on
// every request.
type ReportHandler struct {
	Repo     repository.ReportRepository
	Currency string
}

func (h ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/summary", h.summary)
	r.Get("/reports/export", h.export)
}

// RegisterCrossStationRoutes mounts the per-station breakdown for callers
// whose scope spans every station.
func (h ReportHandler) RegisterCrossStationRoutes(r chi.Router) {
	r.Get("/reports/stations", h.stations)
}

func reportScope(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	user := authctx.FromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	scope, err := user.StationScope()
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return nil, false
	}
	return scope, true
}

func reportRange(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return nil, nil, false
	}
	to, err = parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return nil, nil, false
	}
	if to != nil {
		// Inclusive end date: bump to the next midnight.
		end := to.Add(24 * time.Hour)
		to = &end
	}
	return from, to, true
}

func summaryJSON(s repository.ReportSummary, currency string) map[string]any {
	return map[string]any{
		"orders": map[string]any{
			"total":    s.TotalOrders,
			"approved": s.ApprovedOrders,
			"pending":  s.PendingOrders,
			"rejected": s.RejectedOrders,
		},
		"cards": map[string]any{
			"printed":   s.PrintedCards,
			"unprinted": s.UnprintedCards,
			"accepted":  s.AcceptedCards,
		},
		"revenue": map[string]any{
			"amount":   s.Revenue,
			"currency": currency,
		},
		"citizens": map[string]any{
			"total":    s.TotalCitizens,
			"approved": s.ApprovedCitizens,
			"pending":  s.PendingCitizens,
			"rejected": s.RejectedCitizens,
		},
	}
}

func (h ReportHandler) summary(w http.ResponseWriter, r *http.Request) {
	scope, ok := reportScope(w, r)
	if !ok {
		return
	}
	from, to, ok := reportRange(w, r)
	if !ok {
		return
	}
	s, err := h.Repo.Summary(r.Context(), scope, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaryJSON(s, h.Currency))
}

func (h ReportHandler) stations(w http.ResponseWriter, r *http.Request) {
	scope, ok := reportScope(w, r)
	if !ok {
		return
	}
	// Station-bound printers get the scoped summary, not the breakdown.
	if scope != nil {
		writeError(w, http.StatusForbidden, "breakdown requires an all-stations account")
		return
	}
	from, to, ok := reportRange(w, r)
	if !ok {
		return
	}
	rows, err := h.Repo.StationBreakdown(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, map[string]any{
			"stationId":   row.StationID,
			"stationCode": row.StationCode,
			"stationName": row.StationName,
			"orders":      row.Orders,
			"approved":    row.Approved,
			"printed":     row.Printed,
			"revenue":     row.Revenue,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ReportHandler) export(w http.ResponseWriter, r *http.Request) {
	scope, ok := reportScope(w, r)
	if !ok {
		return
	}
	from, to, ok := reportRange(w, r)
	if !ok {
		return
	}
	s, err := h.Repo.Summary(r.Context(), scope, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filenameSuffix := time.Now().Format("20060102")
	switch r.URL.Query().Get("format") {
	case "csv", "":
		data, err := exportSummaryCSV(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"report_%s.csv\"", filenameSuffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportSummaryXLSX(s)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"report_%s.xlsx\"", filenameSuffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

func summaryRows(s repository.ReportSummary) [][2]string {
	return [][2]string{
		{"total_orders", strconv.FormatInt(s.TotalOrders, 10)},
		{"approved_orders", strconv.FormatInt(s.ApprovedOrders, 10)},
		{"pending_orders", strconv.FormatInt(s.PendingOrders, 10)},
		{"rejected_orders", strconv.FormatInt(s.RejectedOrders, 10)},
		{"printed_cards", strconv.FormatInt(s.PrintedCards, 10)},
		{"unprinted_cards", strconv.FormatInt(s.UnprintedCards, 10)},
		{"accepted_cards", strconv.FormatInt(s.AcceptedCards, 10)},
		{"revenue", strconv.FormatInt(s.Revenue, 10)},
		{"total_citizens", strconv.FormatInt(s.TotalCitizens, 10)},
		{"approved_citizens", strconv.FormatInt(s.ApprovedCitizens, 10)},
		{"pending_citizens", strconv.FormatInt(s.PendingCitizens, 10)},
		{"rejected_citizens", strconv.FormatInt(s.RejectedCitizens, 10)},
	}
}

func exportSummaryCSV(s repository.ReportSummary) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"metric", "value"})
	for _, row := range summaryRows(s) {
		_ = w.Write([]string{row[0], row[1]})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportSummaryXLSX(s repository.ReportSummary) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Report"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheet, "A1", "Metric")
	_ = f.SetCellValue(sheet, "B1", "Value")
	for i, row := range summaryRows(s) {
		value, _ := strconv.ParseInt(row[1], 10, 64)
		cellA, _ := excelize.CoordinatesToCellName(1, i+2)
		cellB, _ := excelize.CoordinatesToCellName(2, i+2)
		_ = f.SetCellValue(sheet, cellA, row[0])
		_ = f.SetCellValue(sheet, cellB, value)
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 16)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "B1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
