package models

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/utils"
)

// StockUpdateEvent describes one committed stock change for live subscribers.
type StockUpdateEvent struct {
	VariantId int         `json:"variant_id"`
	Sku       string      `json:"sku"`
	NewStock  int         `json:"new_stock"`
	Reason    StockReason `json:"reason"`
}

// StockNotifier is the fan-out boundary. Best-effort, at-least-once;
// the engine never depends on delivery for correctness.
type StockNotifier interface {
	PublishStockUpdate(ctx context.Context, event StockUpdateEvent) error
}

var stockNotifier StockNotifier = LogStockNotifier{}

// SetStockNotifier swaps the fan-out implementation. Called once from main().
func SetStockNotifier(n StockNotifier) {
	if n != nil {
		stockNotifier = n
	}
}

// NotifyStockUpdates publishes committed stock changes off the request's
// critical path. Callers invoke it strictly after tx.Commit(); failures are
// logged and dropped.
func NotifyStockUpdates(ctx context.Context, events []StockUpdateEvent) {
	if len(events) == 0 {
		return
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	notifier := stockNotifier

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		pubCtx = utils.SetCorrelationIdInContext(pubCtx, correlationId)

		logger := config.GetLogger()
		for _, event := range events {
			if err := notifier.PublishStockUpdate(pubCtx, event); err != nil {
				config.LogError(logger, "notifier.go", "NotifyStockUpdates", "PublishStockUpdate", event, err)
			}
		}
	}()
}

// PubSubStockNotifier publishes stock-updated events to Google Cloud Pub/Sub.
type PubSubStockNotifier struct{}

func (PubSubStockNotifier) PublishStockUpdate(ctx context.Context, event StockUpdateEvent) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	return config.PublishStockEvent(ctx, config.StockEventMessage{
		Event:         "stock-updated",
		VariantId:     event.VariantId,
		Sku:           event.Sku,
		NewStock:      event.NewStock,
		Reason:        string(event.Reason),
		OccurredAt:    time.Now().UTC(),
		CorrelationId: correlationId,
	})
}

// LogStockNotifier is the stand-in when Pub/Sub is not configured.
type LogStockNotifier struct{}

func (LogStockNotifier) PublishStockUpdate(_ context.Context, event StockUpdateEvent) error {
	config.GetLogger().WithFields(logrus.Fields{
		"event":      "stock-updated",
		"variant_id": event.VariantId,
		"sku":        event.Sku,
		"new_stock":  event.NewStock,
		"reason":     event.Reason,
	}).Info("stock update")
	return nil
}
