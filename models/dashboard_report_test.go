package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildLowStockListUsesProjectedAvailability(t *testing.T) {
	variants := []*ProductVariant{
		{ID: 1, Sku: "A", Stock: 2, MinimumStock: 10},  // 2 + 5 pending = 7, short by 3
		{ID: 2, Sku: "B", Stock: 3, MinimumStock: 10},  // 3 + 7 pending = 10, exactly at minimum
		{ID: 3, Sku: "C", Stock: 50, MinimumStock: 10}, // plenty
		{ID: 4, Sku: "D", Stock: 0, MinimumStock: 5},   // no incoming, short by 5
	}
	pending := map[int]int{1: 5, 2: 7}

	items := buildLowStockList(variants, pending)
	if len(items) != 2 {
		t.Fatalf("expected 2 low-stock items, got %d: %+v", len(items), items)
	}
	if items[0].Sku != "A" || items[0].Shortfall != 3 || items[0].PendingPOQty != 5 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Sku != "D" || items[1].Shortfall != 5 || items[1].CurrentStock != 0 {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestBuildLowStockListEmptyNotNil(t *testing.T) {
	items := buildLowStockList(nil, nil)
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", items)
	}
}

func TestRankTopSellersOrderAndLimit(t *testing.T) {
	variants := []*ProductVariant{
		{ID: 1, Sku: "A", Price: decimal.NewFromInt(10)},
		{ID: 2, Sku: "B", Price: decimal.NewFromInt(20)},
		{ID: 3, Sku: "C", Price: decimal.NewFromInt(30)},
	}
	names := map[int]string{1: "Alpha", 2: "Beta", 3: "Gamma"}
	rows := []saleAggRow{
		{VariantId: 1, Quantity: 5},
		{VariantId: 2, Quantity: 9},
		{VariantId: 3, Quantity: 5},
	}

	top := rankTopSellers(variants, names, rows, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].VariantId != 2 || top[0].TotalQuantity != 9 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	// Quantity tie between variants 1 and 3 breaks toward the lower id.
	if top[1].VariantId != 1 {
		t.Fatalf("expected tie to break toward variant 1, got %+v", top[1])
	}
	if !top[0].TotalRevenue.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected revenue 180, got %s", top[0].TotalRevenue)
	}
	if top[1].ProductName != "Alpha" {
		t.Fatalf("expected product name Alpha, got %q", top[1].ProductName)
	}
}

func TestRankTopSellersSkipsUnknownVariants(t *testing.T) {
	rows := []saleAggRow{{VariantId: 42, Quantity: 3}}
	top := rankTopSellers(nil, nil, rows, 5)
	if len(top) != 0 {
		t.Fatalf("expected deleted variants to be skipped, got %+v", top)
	}
}

func TestBuildMovementChartZeroFillsWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	rows := []movementAggRow{
		{Day: "2026-03-10", Reason: StockReasonSale, Total: -4},
		{Day: "2026-03-08", Reason: StockReasonPurchase, Total: 12},
		{Day: "2026-03-08", Reason: StockReasonAdjustment, Total: -1},
		{Day: "2026-02-01", Reason: StockReasonSale, Total: -99}, // outside window
	}

	chart := buildMovementChart(rows, now, 7)
	if len(chart) != 7 {
		t.Fatalf("expected 7 days, got %d", len(chart))
	}
	if chart[0].Date != "2026-03-04" || chart[6].Date != "2026-03-10" {
		t.Fatalf("unexpected window: %s .. %s", chart[0].Date, chart[6].Date)
	}
	if chart[6].Sale != -4 {
		t.Fatalf("expected sale -4 on last day, got %d", chart[6].Sale)
	}
	if chart[4].Purchase != 12 || chart[4].Adjustment != -1 {
		t.Fatalf("unexpected day 2026-03-08: %+v", chart[4])
	}
	for _, day := range []MovementDay{chart[1], chart[2], chart[3], chart[5]} {
		if day.Purchase != 0 || day.Sale != 0 || day.Return != 0 || day.Adjustment != 0 || day.Cancellation != 0 {
			t.Fatalf("expected zero-filled day, got %+v", day)
		}
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 3, 10, 23, 59, 59, 999, time.UTC)
	got := startOfDay(in)
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
