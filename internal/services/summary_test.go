package services

import (
	"testing"

	"delivery_tracker/internal/models"

	"github.com/google/go-cmp/cmp"
)

func sheetWith(statuses ...models.DeliveryStatus) *models.RouteSheet {
	sheet := &models.RouteSheet{}
	for _, st := range statuses {
		sheet.Deliveries = append(sheet.Deliveries, models.Delivery{Status: string(st)})
	}
	return sheet
}

func TestSummarizeSheet(t *testing.T) {
	const (
		prog = models.DeliveryInProgress
		done = models.DeliveryDelivered
		prob = models.DeliveryProblem
	)
	tests := []struct {
		name  string
		sheet *models.RouteSheet
		want  SheetSummary
	}{
		{
			name:  "empty sheet is orange",
			sheet: sheetWith(),
			want:  SheetSummary{Color: ColorOrange},
		},
		{
			name:  "all delivered is green",
			sheet: sheetWith(done, done),
			want:  SheetSummary{Total: 2, Delivered: 2, Color: ColorGreen},
		},
		{
			name:  "partially delivered is orange",
			sheet: sheetWith(done, prog, prog),
			want:  SheetSummary{Total: 3, Delivered: 1, InProgress: 2, Color: ColorOrange},
		},
		{
			name:  "a single problem wins over everything",
			sheet: sheetWith(done, done, prob),
			want:  SheetSummary{Total: 3, Delivered: 2, Problem: 1, Color: ColorRed},
		},
		{
			name:  "only problems",
			sheet: sheetWith(prob),
			want:  SheetSummary{Total: 1, Problem: 1, Color: ColorRed},
		},
		{
			name:  "unknown legacy status counts as in progress",
			sheet: sheetWith("cancelled", done),
			want:  SheetSummary{Total: 2, Delivered: 1, InProgress: 1, Color: ColorOrange},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SummarizeSheet(tt.sheet)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SummarizeSheet() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSummarizeSheetCountsAlwaysBalance(t *testing.T) {
	all := []models.DeliveryStatus{models.DeliveryInProgress, models.DeliveryDelivered, models.DeliveryProblem}
	// Every combination of up to four deliveries.
	var walk func(prefix []models.DeliveryStatus)
	walk = func(prefix []models.DeliveryStatus) {
		sum := SummarizeSheet(sheetWith(prefix...))
		if sum.InProgress != sum.Total-sum.Delivered-sum.Problem {
			t.Fatalf("%v: in_progress %d != %d-%d-%d", prefix, sum.InProgress, sum.Total, sum.Delivered, sum.Problem)
		}
		if sum.Problem > 0 && sum.Color != ColorRed {
			t.Fatalf("%v: problem present but color %s", prefix, sum.Color)
		}
		if sum.Total == 0 && sum.Color == ColorGreen {
			t.Fatalf("empty sheet must not be green")
		}
		if len(prefix) == 4 {
			return
		}
		for _, st := range all {
			walk(append(append([]models.DeliveryStatus{}, prefix...), st))
		}
	}
	walk(nil)
}
