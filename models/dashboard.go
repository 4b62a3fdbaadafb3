package models

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
)

const (
	topSellerWindowDays = 30
	topSellerLimit      = 5
	movementWindowDays  = 7
)

type LowStockItem struct {
	VariantId    int    `json:"variant_id"`
	Sku          string `json:"sku"`
	CurrentStock int    `json:"currentStock"`
	PendingPOQty int    `json:"pendingPOQty"`
	MinimumStock int    `json:"minimumStock"`
	Shortfall    int    `json:"shortfall"`
}

type TopSellingProduct struct {
	VariantId     int             `json:"variant_id"`
	Sku           string          `json:"sku"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// MovementDay is one chart row: signed per-reason totals for a calendar day.
type MovementDay struct {
	Date         string `json:"date"`
	Purchase     int    `json:"purchase"`
	Sale         int    `json:"sale"`
	Return       int    `json:"return"`
	Adjustment   int    `json:"adjustment"`
	Cancellation int    `json:"cancellation"`
}

type DashboardSummary struct {
	InventoryValue     decimal.Decimal     `json:"inventoryValue"`
	LowStockItems      []LowStockItem      `json:"lowStockItems"`
	TopSellingProducts []TopSellingProduct `json:"topSellingProducts"`
	StockMovementChart []MovementDay       `json:"stockMovementChart"`
}

// saleAggRow is one variant's summed Sale quantity over the window.
type saleAggRow struct {
	VariantId int
	Quantity  int
}

// movementAggRow is one (day, reason) signed total.
type movementAggRow struct {
	Day    string
	Reason StockReason
	Total  int
}

// GetDashboardSummary derives the dashboard from the catalog and the ledger.
// Read-only; no mutation.
func GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	db := config.GetDB()
	now := time.Now()

	var variants []*ProductVariant
	if err := db.WithContext(ctx).Order("id").Find(&variants).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	inventoryValue := decimal.Zero
	for _, v := range variants {
		inventoryValue = inventoryValue.Add(v.Price.Mul(decimal.NewFromInt(int64(v.Stock))))
	}

	pendingByVariant, err := pendingPurchaseQtyByVariant(ctx)
	if err != nil {
		return nil, err
	}

	var saleRows []saleAggRow
	if err := db.WithContext(ctx).Model(&StockLedgerEntry{}).
		Select("variant_id, SUM(-delta) AS quantity").
		Where("reason = ?", StockReasonSale).
		Where("created_at >= ?", now.AddDate(0, 0, -topSellerWindowDays)).
		Group("variant_id").
		Scan(&saleRows).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	var movementRows []movementAggRow
	if err := db.WithContext(ctx).Model(&StockLedgerEntry{}).
		Select("DATE(created_at) AS day, reason, SUM(delta) AS total").
		Where("created_at >= ?", startOfDay(now).AddDate(0, 0, -(movementWindowDays-1))).
		Group("day, reason").
		Scan(&movementRows).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	productNames, err := productNamesByVariant(ctx, variants)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		InventoryValue:     inventoryValue,
		LowStockItems:      buildLowStockList(variants, pendingByVariant),
		TopSellingProducts: rankTopSellers(variants, productNames, saleRows, topSellerLimit),
		StockMovementChart: buildMovementChart(movementRows, now, movementWindowDays),
	}, nil
}

// pendingPurchaseQtyByVariant sums not-yet-received quantity across open POs.
func pendingPurchaseQtyByVariant(ctx context.Context) (map[int]int, error) {
	db := config.GetDB()

	type row struct {
		VariantId int
		Pending   int
	}
	var rows []row
	if err := db.WithContext(ctx).Model(&PurchaseOrderItem{}).
		Select("purchase_order_items.variant_id, SUM(purchase_order_items.ordered_quantity - purchase_order_items.received_quantity) AS pending").
		Joins("JOIN purchase_orders ON purchase_orders.id = purchase_order_items.purchase_order_id").
		Where("purchase_orders.status IN ?", []PurchaseOrderStatus{
			PurchaseOrderStatusPending,
			PurchaseOrderStatusConfirmed,
			PurchaseOrderStatusPartiallyReceived,
		}).
		Group("purchase_order_items.variant_id").
		Scan(&rows).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}

	pending := make(map[int]int, len(rows))
	for _, r := range rows {
		pending[r.VariantId] = r.Pending
	}
	return pending, nil
}

func productNamesByVariant(ctx context.Context, variants []*ProductVariant) (map[int]string, error) {
	db := config.GetDB()

	productIds := make([]int, 0, len(variants))
	for _, v := range variants {
		productIds = append(productIds, v.ProductId)
	}
	productIds = utils.UniqueSlice(productIds)

	names := make(map[int]string, len(variants))
	if len(productIds) == 0 {
		return names, nil
	}

	var products []Product
	if err := db.WithContext(ctx).Where("id IN ?", productIds).Find(&products).Error; err != nil {
		return nil, utils.OperationFailed(err)
	}
	byId := make(map[int]string, len(products))
	for _, p := range products {
		byId[p.ID] = p.Name
	}
	for _, v := range variants {
		names[v.ID] = byId[v.ProductId]
	}
	return names, nil
}

// buildLowStockList flags variants whose projected availability (on-hand +
// incoming) falls below their configured minimum. Pure.
func buildLowStockList(variants []*ProductVariant, pendingByVariant map[int]int) []LowStockItem {
	items := []LowStockItem{}
	for _, v := range variants {
		pending := pendingByVariant[v.ID]
		projected := v.Stock + pending
		if projected >= v.MinimumStock {
			continue
		}
		items = append(items, LowStockItem{
			VariantId:    v.ID,
			Sku:          v.Sku,
			CurrentStock: v.Stock,
			PendingPOQty: pending,
			MinimumStock: v.MinimumStock,
			Shortfall:    v.MinimumStock - projected,
		})
	}
	return items
}

// rankTopSellers orders summed Sale quantities descending, ties broken by
// variant id ascending for determinism, and keeps the top n. Pure.
func rankTopSellers(variants []*ProductVariant, productNames map[int]string, rows []saleAggRow, n int) []TopSellingProduct {
	variantById := make(map[int]*ProductVariant, len(variants))
	for _, v := range variants {
		variantById[v.ID] = v
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Quantity != rows[j].Quantity {
			return rows[i].Quantity > rows[j].Quantity
		}
		return rows[i].VariantId < rows[j].VariantId
	})

	top := []TopSellingProduct{}
	for _, r := range rows {
		if len(top) == n {
			break
		}
		v, ok := variantById[r.VariantId]
		if !ok {
			continue
		}
		top = append(top, TopSellingProduct{
			VariantId:     r.VariantId,
			Sku:           v.Sku,
			ProductName:   productNames[r.VariantId],
			TotalQuantity: r.Quantity,
			TotalRevenue:  v.Price.Mul(decimal.NewFromInt(int64(r.Quantity))),
		})
	}
	return top
}

// buildMovementChart zero-fills the trailing window and drops each (day,
// reason) total into its bucket. Pure.
func buildMovementChart(rows []movementAggRow, now time.Time, days int) []MovementDay {
	chart := make([]MovementDay, days)
	indexByDay := make(map[string]int, days)
	start := startOfDay(now).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		chart[i] = MovementDay{Date: day}
		indexByDay[day] = i
	}

	for _, r := range rows {
		i, ok := indexByDay[r.Day]
		if !ok {
			continue
		}
		switch r.Reason {
		case StockReasonPurchase:
			chart[i].Purchase += r.Total
		case StockReasonSale:
			chart[i].Sale += r.Total
		case StockReasonReturn:
			chart[i].Return += r.Total
		case StockReasonAdjustment:
			chart[i].Adjustment += r.Total
		case StockReasonCancellation:
			chart[i].Cancellation += r.Total
		}
	}
	return chart
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
