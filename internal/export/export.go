package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/services"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a query value to a Format. Blank means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

type Options struct {
	Currency string
	Location *time.Location
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) money(d decimal.Decimal) string {
	if o.Currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + o.Currency
}

// Table is a header plus string rows, ready for any writer.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var deliveryHeader = []string{
	"ID", "Route date", "Driver", "Vehicle", "Client", "Reference", "Quantity",
	"Status", "Delivered at", "Products", "Total amount",
}

var sheetHeader = []string{
	"ID", "Route date", "Driver", "Vehicle", "Status", "Deliveries", "Delivered",
	"Problems", "Observations", "Observations at",
}

// Deliveries lays out one row per delivery. Each delivery needs its route
// sheet (with driver user and vehicle), client and products loaded.
func Deliveries(deliveries []models.Delivery, opts Options) Table {
	t := Table{Title: "Deliveries", Header: deliveryHeader, Rows: make([][]string, 0, len(deliveries))}
	for i := range deliveries {
		d := &deliveries[i]

		var routeDate, driver, vehicle string
		vehicle = models.UnassignedLabel
		if sheet := d.RouteSheet; sheet != nil {
			routeDate = sheet.EffectiveDate().Format(dateLayout)
			driver = sheet.Driver.DisplayName()
			vehicle = models.VehicleLabel(sheet.Vehicle)
		}

		products := make([]string, 0, len(d.Products))
		for _, p := range d.Products {
			products = append(products, fmt.Sprintf("%s (%s)", p.Name, opts.money(p.UnitPrice)))
		}

		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(d.ID), 10),
			routeDate,
			driver,
			vehicle,
			d.Client.Name,
			d.OrderReference,
			strconv.Itoa(d.Quantity),
			models.DeliveryStatus(d.Status).Label(),
			formatTime(d.DeliveredAt, opts.loc()),
			strings.Join(products, ", "),
			opts.money(d.TotalAmount()),
		})
	}
	return t
}

// RouteSheets lays out one row per sheet. Deliveries must be loaded for the
// counts to be meaningful.
func RouteSheets(sheets []models.RouteSheet, opts Options) Table {
	t := Table{Title: "Route sheets", Header: sheetHeader, Rows: make([][]string, 0, len(sheets))}
	for i := range sheets {
		s := &sheets[i]
		sum := services.SummarizeSheet(s)
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.EffectiveDate().Format(dateLayout),
			s.Driver.DisplayName(),
			models.VehicleLabel(s.Vehicle),
			models.RouteSheetStatus(s.Status).Label(),
			strconv.Itoa(sum.Total),
			strconv.Itoa(sum.Delivered),
			strconv.Itoa(sum.Problem),
			s.Observations,
			formatTime(s.ObservationsAt, opts.loc()),
		})
	}
	return t
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(dateTimeLayout)
}

// Write encodes the table in the given format.
func Write(w io.Writer, f Format, t Table) error {
	if f == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}

func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Title
	if sheet == "" {
		sheet = "Export"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#3b82f6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, h := range t.Header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		f.SetCellStyle(sheet, "A1", last, headerStyle)
	}
	for r, row := range t.Rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

// Filename builds e.g. deliveries_20261015.csv.
func Filename(prefix string, now time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("20060102"), f)
}
