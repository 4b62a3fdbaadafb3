package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/models"
	"github.com/stocklane/inventory_backend/utils"
)

// End-to-end exercise of the stock engine against real MySQL and Redis:
// the sales order and purchase order lifecycles, the append-only ledger,
// all-or-nothing multi-line fulfillment and the concurrency guarantee that
// stock never goes negative.
func TestStockEngineLifecycles(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "T-Shirt",
		Variants: []models.NewProductVariant{
			{Sku: "TSHIRT-S", Price: decimal.NewFromInt(1500), MinimumStock: 5},
			{Sku: "TSHIRT-M", Price: decimal.NewFromInt(1500), MinimumStock: 5},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	small := product.Variants[0]
	medium := product.Variants[1]

	// Seed opening stock through the adjustment protocol so the ledger stays
	// the single source of truth.
	if _, err := models.AdjustStock(ctx, small.ID, &models.StockAdjustmentInput{Delta: 10, Reason: "Adjustment"}); err != nil {
		t.Fatalf("seed small: %v", err)
	}
	if _, err := models.AdjustStock(ctx, medium.ID, &models.StockAdjustmentInput{Delta: 3, Reason: "Adjustment"}); err != nil {
		t.Fatalf("seed medium: %v", err)
	}

	// Full fulfillment decrements stock, appends ledger entries and lands on
	// Fulfilled in one step.
	order, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		CustomerName: "Acme",
		Items: []models.NewSalesOrderItem{
			{VariantId: small.ID, Quantity: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder: %v", err)
	}
	if order.Status != models.SalesOrderStatusPending {
		t.Fatalf("new order must be Pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("expected total 6000, got %s", order.TotalAmount)
	}
	order, err = models.FulfillSalesOrder(ctx, order.ID, nil)
	if err != nil {
		t.Fatalf("FulfillSalesOrder full: %v", err)
	}
	if order.Status != models.SalesOrderStatusFulfilled {
		t.Fatalf("expected Fulfilled, got %s", order.Status)
	}
	mustStock(t, ctx, small.ID, 6)

	// Partial fulfillment moves through Partially Fulfilled and finishes on a
	// second call.
	order2, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		Items: []models.NewSalesOrderItem{{VariantId: small.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder 2: %v", err)
	}
	order2, err = models.FulfillSalesOrder(ctx, order2.ID, []models.FulfillmentItem{
		{ItemId: order2.Items[0].ID, FulfilledQuantity: 1},
	})
	if err != nil {
		t.Fatalf("partial fulfill: %v", err)
	}
	if order2.Status != models.SalesOrderStatusPartiallyFulfilled {
		t.Fatalf("expected Partially Fulfilled, got %s", order2.Status)
	}
	mustStock(t, ctx, small.ID, 5)
	order2, err = models.FulfillSalesOrder(ctx, order2.ID, nil)
	if err != nil {
		t.Fatalf("finish fulfill: %v", err)
	}
	if order2.Status != models.SalesOrderStatusFulfilled {
		t.Fatalf("expected Fulfilled after remainder, got %s", order2.Status)
	}
	mustStock(t, ctx, small.ID, 2)

	// Over-fulfilling what remains must fail.
	if _, err := models.FulfillSalesOrder(ctx, order2.ID, nil); !errors.Is(err, utils.ErrInvalidStateTransition) {
		t.Fatalf("expected state transition error on fulfilled order, got %v", err)
	}

	// All-or-nothing: one covered line plus one short line rolls back both.
	order3, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
		Items: []models.NewSalesOrderItem{
			{VariantId: small.ID, Quantity: 1},
			{VariantId: medium.ID, Quantity: 4}, // only 3 in stock
		},
	})
	if err != nil {
		t.Fatalf("CreateSalesOrder 3: %v", err)
	}
	if _, err := models.FulfillSalesOrder(ctx, order3.ID, nil); !errors.Is(err, utils.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	mustStock(t, ctx, small.ID, 2)
	mustStock(t, ctx, medium.ID, 3)
	order3, err = models.GetSalesOrderById(ctx, order3.ID)
	if err != nil {
		t.Fatalf("refetch order 3: %v", err)
	}
	if order3.Status != models.SalesOrderStatusPending {
		t.Fatalf("failed fulfillment must leave order Pending, got %s", order3.Status)
	}
	for _, item := range order3.Items {
		if item.FulfilledQuantity != 0 {
			t.Fatalf("failed fulfillment must not move quantities: %+v", item)
		}
	}

	// Cancel is only possible while Pending, and is terminal.
	order3, err = models.CancelSalesOrder(ctx, order3.ID)
	if err != nil {
		t.Fatalf("CancelSalesOrder: %v", err)
	}
	if order3.Status != models.SalesOrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", order3.Status)
	}
	if _, err := models.FulfillSalesOrder(ctx, order3.ID, nil); !errors.Is(err, utils.ErrInvalidStateTransition) {
		t.Fatalf("expected rejection on cancelled order, got %v", err)
	}
	if _, err := models.CancelSalesOrder(ctx, order2.ID); !errors.Is(err, utils.ErrInvalidStateTransition) {
		t.Fatalf("expected rejection cancelling fulfilled order, got %v", err)
	}

	// Purchase order lifecycle: confirm, receive partially with an actual
	// price, then receive the rest.
	supplier, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: "Textile Co"})
	if err != nil {
		t.Fatalf("CreateSupplier: %v", err)
	}
	po, err := models.CreatePurchaseOrder(ctx, &models.NewPurchaseOrder{
		SupplierId: supplier.ID,
		Items: []models.NewPurchaseOrderItem{
			{VariantId: medium.ID, Quantity: 10, ExpectedPrice: decimal.NewFromInt(800)},
		},
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusPending {
		t.Fatalf("new PO must be Pending, got %s", po.Status)
	}
	po, err = models.ConfirmPurchaseOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("ConfirmPurchaseOrder: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusConfirmed {
		t.Fatalf("expected Confirmed, got %s", po.Status)
	}
	if _, err := models.ConfirmPurchaseOrder(ctx, po.ID); !errors.Is(err, utils.ErrInvalidStateTransition) {
		t.Fatalf("expected rejection re-confirming PO, got %v", err)
	}

	actual := decimal.NewFromInt(750)
	po, err = models.ReceivePurchaseOrder(ctx, po.ID, []models.ReceiptItem{
		{ItemId: po.Items[0].ID, ReceivedQuantity: 6, ActualPrice: &actual},
	})
	if err != nil {
		t.Fatalf("partial receive: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusPartiallyReceived {
		t.Fatalf("expected Partially Received, got %s", po.Status)
	}
	if po.Items[0].ActualPrice == nil || !po.Items[0].ActualPrice.Equal(actual) {
		t.Fatalf("actual price not recorded: %+v", po.Items[0])
	}
	mustStock(t, ctx, medium.ID, 9)

	// Over-receiving the remainder must fail without moving stock.
	if _, err := models.ReceivePurchaseOrder(ctx, po.ID, []models.ReceiptItem{
		{ItemId: po.Items[0].ID, ReceivedQuantity: 5},
	}); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("expected bounds error, got %v", err)
	}
	mustStock(t, ctx, medium.ID, 9)

	po, err = models.ReceivePurchaseOrder(ctx, po.ID, []models.ReceiptItem{
		{ItemId: po.Items[0].ID, ReceivedQuantity: 4},
	})
	if err != nil {
		t.Fatalf("final receive: %v", err)
	}
	if po.Status != models.PurchaseOrderStatusReceived {
		t.Fatalf("expected Received, got %s", po.Status)
	}
	mustStock(t, ctx, medium.ID, 13)
	if _, err := models.ReceivePurchaseOrder(ctx, po.ID, []models.ReceiptItem{
		{ItemId: po.Items[0].ID, ReceivedQuantity: 1},
	}); !errors.Is(err, utils.ErrInvalidStateTransition) {
		t.Fatalf("expected rejection on fully received PO, got %v", err)
	}

	// The ledger must reconcile exactly against the cached quantities after
	// the whole run.
	for _, variantId := range []int{small.ID, medium.ID} {
		sum, cached, err := models.ReconcileVariantStock(ctx, variantId)
		if err != nil {
			t.Fatalf("ReconcileVariantStock(%d): %v", variantId, err)
		}
		if sum != cached {
			t.Fatalf("variant %d: ledger sum %d != cached stock %d", variantId, sum, cached)
		}
	}

	// Dashboard: medium never dips below projected minimum, small is short
	// with nothing incoming.
	if _, err := models.AdjustStock(ctx, small.ID, &models.StockAdjustmentInput{Delta: -1, Reason: "Adjustment"}); err != nil {
		t.Fatalf("adjust small down: %v", err)
	}
	summary, err := models.GetDashboardSummary(ctx)
	if err != nil {
		t.Fatalf("GetDashboardSummary: %v", err)
	}
	var foundSmall bool
	for _, item := range summary.LowStockItems {
		if item.VariantId == small.ID {
			foundSmall = true
			if item.CurrentStock != 1 || item.Shortfall != 4 {
				t.Fatalf("unexpected low-stock row: %+v", item)
			}
		}
		if item.VariantId == medium.ID {
			t.Fatalf("medium should not be low on stock: %+v", item)
		}
	}
	if !foundSmall {
		t.Fatalf("expected small variant in low-stock list: %+v", summary.LowStockItems)
	}
	if len(summary.TopSellingProducts) == 0 {
		t.Fatalf("expected top sellers after fulfillments")
	}
	if summary.TopSellingProducts[0].VariantId != small.ID {
		t.Fatalf("expected small variant to lead sales, got %+v", summary.TopSellingProducts[0])
	}
}

// Two orders racing for the last units of the same variant: exactly one may
// win, and stock must never go negative.
func TestConcurrentFulfillmentNeverOversells(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Limited Sneaker",
		Variants: []models.NewProductVariant{
			{Sku: "SNEAK-1", Price: decimal.NewFromInt(90000)},
		},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	variant := product.Variants[0]
	if _, err := models.AdjustStock(ctx, variant.ID, &models.StockAdjustmentInput{Delta: 5, Reason: "Adjustment"}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	const racers = 2
	orders := make([]*models.SalesOrder, racers)
	for i := range orders {
		o, err := models.CreateSalesOrder(ctx, &models.NewSalesOrder{
			Items: []models.NewSalesOrderItem{{VariantId: variant.ID, Quantity: 4}},
		})
		if err != nil {
			t.Fatalf("CreateSalesOrder %d: %v", i, err)
		}
		orders[i] = o
	}

	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = models.FulfillSalesOrder(ctx, orders[i].ID, nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, utils.ErrInsufficientStock):
			// expected loser
		default:
			t.Fatalf("racer %d: unexpected error %v", i, err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	mustStock(t, ctx, variant.ID, 1)

	sum, cached, err := models.ReconcileVariantStock(ctx, variant.ID)
	if err != nil {
		t.Fatalf("ReconcileVariantStock: %v", err)
	}
	if sum != cached || cached != 1 {
		t.Fatalf("ledger sum %d, cached %d; expected both 1", sum, cached)
	}
}

func mustStock(t *testing.T, ctx context.Context, variantId int, want int) {
	t.Helper()
	variant, err := models.GetProductVariantById(ctx, variantId)
	if err != nil {
		t.Fatalf("GetProductVariantById(%d): %v", variantId, err)
	}
	if variant.Stock != want {
		t.Fatalf("variant %d: expected stock %d, got %d", variantId, want, variant.Stock)
	}
}

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stocklane_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := utils.SetUserIdInContext(context.Background(), 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")
	ctx = utils.SetCorrelationIdInContext(ctx, "test-run")
	return ctx
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stocklane-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stocklane-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stocklane_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
