package handlers

import (
	"bytes"
	"net/http"
	"time"

	"delivery_tracker/internal/config"
	"delivery_tracker/internal/export"
	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type StaffHandler struct {
	reports  services.ReportService
	branding config.Branding
	export   export.Options
	now      func() time.Time
}

func NewStaffHandler(reports services.ReportService, branding config.Branding, opts export.Options, now func() time.Time) *StaffHandler {
	if now == nil {
		now = time.Now
	}
	return &StaffHandler{reports: reports, branding: branding, export: opts, now: now}
}

func (h *StaffHandler) Dashboard(c *gin.Context) {
	date, ok := queryDate(c, "date")
	if !ok {
		return
	}
	driverID, ok := queryUint(c, "driver")
	if !ok {
		return
	}

	dash, err := h.reports.DashboardView(c.Request.Context(), services.DashboardFilter{
		Date:     date,
		DriverID: driverID,
		Status:   c.Query("status"),
		Vehicle:  c.Query("vehicle"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"site":      h.branding,
		"date":      dash.Date.Format(dateLayout),
		"rows":      dash.Rows,
		"sheets":    len(dash.Rows),
		"user":      currentSession(c).Username,
		"generated": h.now(),
	})
}

func (h *StaffHandler) DeliveryReport(c *gin.Context) {
	from, ok := queryDate(c, "from", "date_debut")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", "date_fin")
	if !ok {
		return
	}
	driverID, ok := queryUint(c, "driver")
	if !ok {
		return
	}

	report, err := h.reports.DeliveryReport(c.Request.Context(), services.DeliveryReportFilter{
		From:     from,
		To:       to,
		DriverID: driverID,
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": h.branding, "report": report})
}

func (h *StaffHandler) SheetReport(c *gin.Context) {
	from, ok := queryDate(c, "from", "date_debut")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to", "date_fin")
	if !ok {
		return
	}

	report, err := h.reports.SheetReport(c.Request.Context(), services.SheetReportFilter{
		From:   from,
		To:     to,
		Status: c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"site": h.branding, "report": report})
}

// exportFilter reads the same filters as the reports, without their default range.
func exportFilter(c *gin.Context) (services.ExportFilter, export.Format, bool) {
	var f services.ExportFilter
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err.Error())
		return f, "", false
	}
	var ok bool
	if f.From, ok = queryDate(c, "from", "date_debut"); !ok {
		return f, "", false
	}
	if f.To, ok = queryDate(c, "to", "date_fin"); !ok {
		return f, "", false
	}
	if f.DriverID, ok = queryUint(c, "driver"); !ok {
		return f, "", false
	}
	f.Status = c.Query("status")
	return f, format, true
}

func (h *StaffHandler) ExportDeliveries(c *gin.Context) {
	filter, format, ok := exportFilter(c)
	if !ok {
		return
	}
	deliveries, err := h.reports.DeliveriesForExport(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	h.send(c, "deliveries", format, export.Deliveries(deliveries, h.export))
}

func (h *StaffHandler) ExportRouteSheets(c *gin.Context) {
	filter, format, ok := exportFilter(c)
	if !ok {
		return
	}
	sheets, err := h.reports.SheetsForExport(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	h.send(c, "route_sheets", format, export.RouteSheets(sheets, h.export))
}

func (h *StaffHandler) send(c *gin.Context, prefix string, format export.Format, table export.Table) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		respondError(c, err)
		return
	}
	name := export.Filename(prefix, h.now().In(h.location()), format)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func (h *StaffHandler) location() *time.Location {
	if h.export.Location == nil {
		return time.Local
	}
	return h.export.Location
}
