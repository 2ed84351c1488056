package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	// ReportListLimit caps the delivery rows shown on the delivery report.
	ReportListLimit = 100
	// DefaultReportDays is the look-back window when a report has no range.
	DefaultReportDays = 30
)

type DashboardFilter struct {
	Date     *time.Time
	DriverID uint
	Status   string
	Vehicle  string
}

type DashboardRow struct {
	Sheet   models.RouteSheet `json:"sheet"`
	Summary SheetSummary      `json:"summary"`
}

type Dashboard struct {
	Date time.Time      `json:"date"`
	Rows []DashboardRow `json:"rows"`
}

type DeliveryReportFilter struct {
	From     *time.Time
	To       *time.Time
	DriverID uint
	Status   string
}

// GroupStat counts deliveries for one driver or one vehicle. ID is nil for
// the unassigned vehicle group.
type GroupStat struct {
	ID        *uint  `json:"id"`
	Label     string `json:"label"`
	Total     int    `json:"total"`
	Delivered int    `json:"delivered"`
	Problem   int    `json:"problem"`
}

type ProductRollup struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

type DeliveryReport struct {
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Total        int               `json:"total"`
	Delivered    int               `json:"delivered"`
	Problem      int               `json:"problem"`
	DeliveryRate float64           `json:"delivery_rate"`
	ByDriver     []GroupStat       `json:"by_driver"`
	ByVehicle    []GroupStat       `json:"by_vehicle"`
	Products     []ProductRollup   `json:"products"`
	Deliveries   []models.Delivery `json:"deliveries"`
}

type SheetReportFilter struct {
	From   *time.Time
	To     *time.Time
	Status string
}

type SheetStatusStat struct {
	Status     string `json:"status"`
	Label      string `json:"label"`
	Sheets     int    `json:"sheets"`
	Deliveries int    `json:"deliveries"`
	Delivered  int    `json:"delivered"`
	Problem    int    `json:"problem"`
}

type DriverSheetStat struct {
	DriverID  uint   `json:"driver_id"`
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Planned   int    `json:"planned"`
	EnRoute   int    `json:"en_route"`
	Completed int    `json:"completed"`
	Problem   int    `json:"problem"`
}

type SheetReport struct {
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Total    int               `json:"total"`
	ByStatus []SheetStatusStat `json:"by_status"`
	ByDriver []DriverSheetStat `json:"by_driver"`
	Sheets   []DashboardRow    `json:"sheets"`
}

// ExportFilter selects rows for a download. Unset dates leave the range open.
type ExportFilter struct {
	From     *time.Time
	To       *time.Time
	DriverID uint
	Status   string
}

type ReportService interface {
	DashboardView(ctx context.Context, f DashboardFilter) (*Dashboard, error)
	DeliveryReport(ctx context.Context, f DeliveryReportFilter) (*DeliveryReport, error)
	SheetReport(ctx context.Context, f SheetReportFilter) (*SheetReport, error)
	DeliveriesForExport(ctx context.Context, f ExportFilter) ([]models.Delivery, error)
	SheetsForExport(ctx context.Context, f ExportFilter) ([]models.RouteSheet, error)
	// Today is the current calendar day in the service's location.
	Today() time.Time
}

type reportService struct {
	sheetRepo    repository.RouteSheetRepository
	deliveryRepo repository.DeliveryRepository
	loc          *time.Location
	now          func() time.Time
}

func NewReportService(
	sheetRepo repository.RouteSheetRepository,
	deliveryRepo repository.DeliveryRepository,
	loc *time.Location,
	now func() time.Time,
) ReportService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &reportService{sheetRepo: sheetRepo, deliveryRepo: deliveryRepo, loc: loc, now: now}
}

func (s *reportService) Today() time.Time {
	return models.DateOf(s.now().In(s.loc))
}

func (s *reportService) defaultRange(from, to *time.Time) (time.Time, time.Time) {
	end := s.Today()
	if to != nil {
		end = models.DateOf(*to)
	}
	start := end.AddDate(0, 0, -DefaultReportDays)
	if from != nil {
		start = models.DateOf(*from)
	}
	return start, end
}

func (s *reportService) DashboardView(ctx context.Context, f DashboardFilter) (*Dashboard, error) {
	date := s.Today()
	if f.Date != nil {
		date = models.DateOf(*f.Date)
	}

	sheets, err := s.sheetRepo.Find(ctx, repository.SheetQuery{
		Date:           &date,
		DriverID:       f.DriverID,
		Status:         f.Status,
		Vehicle:        f.Vehicle,
		WithDeliveries: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard sheets: %w", err)
	}

	sort.SliceStable(sheets, func(i, j int) bool {
		li := strings.ToLower(sheets[i].Driver.User.LastName)
		lj := strings.ToLower(sheets[j].Driver.User.LastName)
		if li != lj {
			return li < lj
		}
		return sheets[i].ID < sheets[j].ID
	})

	return &Dashboard{Date: date, Rows: summarizeRows(sheets)}, nil
}

func (s *reportService) DeliveryReport(ctx context.Context, f DeliveryReportFilter) (*DeliveryReport, error) {
	from, to := s.defaultRange(f.From, f.To)

	deliveries, err := s.deliveryRepo.Find(ctx, repository.DeliveryQuery{
		From:     &from,
		To:       &to,
		DriverID: f.DriverID,
		Status:   f.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load report deliveries: %w", err)
	}

	report := &DeliveryReport{From: from, To: to, Total: len(deliveries)}

	drivers := newGroupCounter()
	vehicles := newGroupCounter()
	products := make(map[string]*ProductRollup)

	for i := range deliveries {
		d := &deliveries[i]
		status := models.DeliveryStatus(d.Status)
		switch status {
		case models.DeliveryDelivered:
			report.Delivered++
		case models.DeliveryProblem:
			report.Problem++
		}

		if sheet := d.RouteSheet; sheet != nil {
			driverID := sheet.DriverID
			drivers.add(fmt.Sprintf("d%d", driverID), &driverID, sheet.Driver.DisplayName(), status)
			if sheet.VehicleID != nil {
				vid := *sheet.VehicleID
				vehicles.add(fmt.Sprintf("v%d", vid), &vid, models.VehicleLabel(sheet.Vehicle), status)
			} else {
				vehicles.add("", nil, models.UnassignedLabel, status)
			}
		}

		if status != models.DeliveryDelivered {
			continue
		}
		qty := decimal.NewFromInt(int64(d.Quantity))
		for _, p := range d.Products {
			r, ok := products[p.Name]
			if !ok {
				r = &ProductRollup{Name: p.Name, UnitPrice: p.UnitPrice, Amount: decimal.Zero}
				products[p.Name] = r
			}
			r.Quantity += d.Quantity
			r.Amount = r.Amount.Add(p.UnitPrice.Mul(qty))
		}
	}

	report.DeliveryRate = deliveryRate(report.Delivered, report.Total)
	report.ByDriver = drivers.sorted()
	report.ByVehicle = vehicles.sorted()

	report.Products = make([]ProductRollup, 0, len(products))
	for _, r := range products {
		report.Products = append(report.Products, *r)
	}
	sort.Slice(report.Products, func(i, j int) bool {
		a, b := report.Products[i], report.Products[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	if len(deliveries) > ReportListLimit {
		deliveries = deliveries[:ReportListLimit]
	}
	report.Deliveries = deliveries
	return report, nil
}

func (s *reportService) SheetReport(ctx context.Context, f SheetReportFilter) (*SheetReport, error) {
	from, to := s.defaultRange(f.From, f.To)

	sheets, err := s.sheetRepo.Find(ctx, repository.SheetQuery{
		From:           &from,
		To:             &to,
		Status:         f.Status,
		WithDeliveries: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load report sheets: %w", err)
	}

	rows := summarizeRows(sheets)
	report := &SheetReport{From: from, To: to, Total: len(sheets), Sheets: rows}

	byStatus := make(map[string]*SheetStatusStat)
	byDriver := make(map[uint]*DriverSheetStat)
	var driverOrder []uint

	for _, row := range rows {
		st, ok := byStatus[row.Sheet.Status]
		if !ok {
			st = &SheetStatusStat{
				Status: row.Sheet.Status,
				Label:  models.RouteSheetStatus(row.Sheet.Status).Label(),
			}
			byStatus[row.Sheet.Status] = st
		}
		st.Sheets++
		st.Deliveries += row.Summary.Total
		st.Delivered += row.Summary.Delivered
		st.Problem += row.Summary.Problem

		ds, ok := byDriver[row.Sheet.DriverID]
		if !ok {
			ds = &DriverSheetStat{DriverID: row.Sheet.DriverID, Name: row.Sheet.Driver.DisplayName()}
			byDriver[row.Sheet.DriverID] = ds
			driverOrder = append(driverOrder, row.Sheet.DriverID)
		}
		ds.Total++
		switch models.RouteSheetStatus(row.Sheet.Status) {
		case models.SheetPlanned:
			ds.Planned++
		case models.SheetEnRoute:
			ds.EnRoute++
		case models.SheetCompleted:
			ds.Completed++
		case models.SheetProblem:
			ds.Problem++
		}
	}

	for _, status := range models.SheetStatuses {
		if st, ok := byStatus[string(status)]; ok {
			report.ByStatus = append(report.ByStatus, *st)
			delete(byStatus, string(status))
		}
	}
	// Legacy rows with a status outside the known set go last.
	var rest []string
	for status := range byStatus {
		rest = append(rest, status)
	}
	sort.Strings(rest)
	for _, status := range rest {
		report.ByStatus = append(report.ByStatus, *byStatus[status])
	}

	for _, id := range driverOrder {
		report.ByDriver = append(report.ByDriver, *byDriver[id])
	}
	sort.SliceStable(report.ByDriver, func(i, j int) bool {
		a, b := report.ByDriver[i], report.ByDriver[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Name < b.Name
	})

	return report, nil
}

func (s *reportService) DeliveriesForExport(ctx context.Context, f ExportFilter) ([]models.Delivery, error) {
	deliveries, err := s.deliveryRepo.Find(ctx, repository.DeliveryQuery{
		From:     dayPtr(f.From),
		To:       dayPtr(f.To),
		DriverID: f.DriverID,
		Status:   f.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load deliveries for export: %w", err)
	}
	return deliveries, nil
}

func (s *reportService) SheetsForExport(ctx context.Context, f ExportFilter) ([]models.RouteSheet, error) {
	sheets, err := s.sheetRepo.Find(ctx, repository.SheetQuery{
		From:           dayPtr(f.From),
		To:             dayPtr(f.To),
		DriverID:       f.DriverID,
		Status:         f.Status,
		WithDeliveries: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load route sheets for export: %w", err)
	}
	return sheets, nil
}

func summarizeRows(sheets []models.RouteSheet) []DashboardRow {
	rows := make([]DashboardRow, 0, len(sheets))
	for i := range sheets {
		rows = append(rows, DashboardRow{Sheet: sheets[i], Summary: SummarizeSheet(&sheets[i])})
	}
	return rows
}

// deliveryRate is the delivered share as a percentage, 0 for an empty set.
func deliveryRate(delivered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(delivered) * 100 / float64(total)
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DateOf(*t)
	return &d
}

type groupCounter struct {
	order  []string
	groups map[string]*GroupStat
}

func newGroupCounter() *groupCounter {
	return &groupCounter{groups: make(map[string]*GroupStat)}
}

func (g *groupCounter) add(key string, id *uint, label string, status models.DeliveryStatus) {
	st, ok := g.groups[key]
	if !ok {
		st = &GroupStat{ID: id, Label: label}
		g.groups[key] = st
		g.order = append(g.order, key)
	}
	st.Total++
	switch status {
	case models.DeliveryDelivered:
		st.Delivered++
	case models.DeliveryProblem:
		st.Problem++
	}
}

func (g *groupCounter) sorted() []GroupStat {
	out := make([]GroupStat, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}
