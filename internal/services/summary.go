package services

import "delivery_tracker/internal/models"

// Color tags used on the dashboard.
const (
	ColorRed    = "red"
	ColorGreen  = "green"
	ColorOrange = "orange"
)

type SheetSummary struct {
	Total      int    `json:"total"`
	Delivered  int    `json:"delivered"`
	Problem    int    `json:"problem"`
	InProgress int    `json:"in_progress"`
	Color      string `json:"color"`
}

// SummarizeSheet counts the sheet's loaded deliveries by status. Any problem
// turns the sheet red; a non-empty, fully delivered sheet is green; anything
// else is orange.
func SummarizeSheet(sheet *models.RouteSheet) SheetSummary {
	var sum SheetSummary
	sum.Total = len(sheet.Deliveries)
	for _, d := range sheet.Deliveries {
		switch models.DeliveryStatus(d.Status) {
		case models.DeliveryDelivered:
			sum.Delivered++
		case models.DeliveryProblem:
			sum.Problem++
		}
	}
	sum.InProgress = sum.Total - sum.Delivered - sum.Problem

	switch {
	case sum.Problem > 0:
		sum.Color = ColorRed
	case sum.Total > 0 && sum.Delivered == sum.Total:
		sum.Color = ColorGreen
	default:
		sum.Color = ColorOrange
	}
	return sum
}
