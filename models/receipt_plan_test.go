package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stocklane/inventory_backend/utils"
)

func twoLinePO() *PurchaseOrder {
	return &PurchaseOrder{
		ID: 11,
		Items: []PurchaseOrderItem{
			{ID: 201, PurchaseOrderId: 11, VariantId: 5, OrderedQuantity: 20, ReceivedQuantity: 8},
			{ID: 202, PurchaseOrderId: 11, VariantId: 2, OrderedQuantity: 4, ReceivedQuantity: 0},
		},
	}
}

func TestBuildReceiptPlanPartial(t *testing.T) {
	plan, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 201, ReceivedQuantity: 12},
		{ItemId: 202, ReceivedQuantity: 1},
	})
	if err != nil {
		t.Fatalf("partial receipt: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(plan))
	}
	byItem := map[int]int{}
	for _, line := range plan {
		byItem[line.itemId] = line.increment
	}
	if byItem[201] != 12 || byItem[202] != 1 {
		t.Fatalf("unexpected increments: %+v", byItem)
	}
}

func TestBuildReceiptPlanOverRemaining(t *testing.T) {
	// Item 201 has 12 remaining (20 ordered, 8 already received).
	_, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 201, ReceivedQuantity: 13},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildReceiptPlanUnknownItem(t *testing.T) {
	_, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 999, ReceivedQuantity: 1},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildReceiptPlanDuplicateItem(t *testing.T) {
	_, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 202, ReceivedQuantity: 1},
		{ItemId: 202, ReceivedQuantity: 1},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildReceiptPlanEmpty(t *testing.T) {
	_, err := buildReceiptPlan(twoLinePO(), nil)
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildReceiptPlanPriceOnlyLineAlongsideReceipt(t *testing.T) {
	price := decimal.NewFromInt(1200)
	plan, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 201, ReceivedQuantity: 5},
		{ItemId: 202, ReceivedQuantity: 0, ActualPrice: &price},
	})
	if err != nil {
		t.Fatalf("price-only line: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(plan))
	}
	for _, line := range plan {
		if line.itemId == 202 {
			if line.increment != 0 || line.actualPrice == nil || !line.actualPrice.Equal(price) {
				t.Fatalf("price-only line mangled: %+v", line)
			}
		}
	}
}

func TestBuildReceiptPlanRejectsZeroTotal(t *testing.T) {
	price := decimal.NewFromInt(1200)
	_, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 202, ReceivedQuantity: 0, ActualPrice: &price},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildReceiptPlanRejectsNegativePrice(t *testing.T) {
	price := decimal.NewFromInt(-1)
	_, err := buildReceiptPlan(twoLinePO(), []ReceiptItem{
		{ItemId: 201, ReceivedQuantity: 1, ActualPrice: &price},
	})
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseOrderStatusDerivation(t *testing.T) {
	cases := []struct {
		name    string
		items   []PurchaseOrderItem
		current PurchaseOrderStatus
		want    PurchaseOrderStatus
	}{
		{
			name: "untouched stays current",
			items: []PurchaseOrderItem{
				{OrderedQuantity: 4, ReceivedQuantity: 0},
			},
			current: PurchaseOrderStatusConfirmed,
			want:    PurchaseOrderStatusConfirmed,
		},
		{
			name: "some received",
			items: []PurchaseOrderItem{
				{OrderedQuantity: 4, ReceivedQuantity: 1},
				{OrderedQuantity: 2, ReceivedQuantity: 0},
			},
			current: PurchaseOrderStatusConfirmed,
			want:    PurchaseOrderStatusPartiallyReceived,
		},
		{
			name: "all received",
			items: []PurchaseOrderItem{
				{OrderedQuantity: 4, ReceivedQuantity: 4},
				{OrderedQuantity: 2, ReceivedQuantity: 2},
			},
			current: PurchaseOrderStatusPartiallyReceived,
			want:    PurchaseOrderStatusReceived,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := purchaseOrderStatusFor(tc.items, tc.current); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPurchaseOrderStatusTransitions(t *testing.T) {
	if !PurchaseOrderStatusPending.CanReceive() || !PurchaseOrderStatusConfirmed.CanReceive() || !PurchaseOrderStatusPartiallyReceived.CanReceive() {
		t.Fatalf("open POs must accept receipts")
	}
	if PurchaseOrderStatusReceived.CanReceive() {
		t.Fatalf("fully received PO must reject further receipts")
	}
}
