package models

import "fmt"

type Role string

const (
	RoleOwner   Role = "Owner"
	RoleManager Role = "Manager"
	RoleStaff   Role = "Staff"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleManager, RoleStaff:
		return Role(s), nil
	}
	return "", fmt.Errorf("%s is not a valid Role", s)
}

type SalesOrderStatus string

const (
	SalesOrderStatusPending            SalesOrderStatus = "Pending"
	SalesOrderStatusPartiallyFulfilled SalesOrderStatus = "Partially Fulfilled"
	SalesOrderStatusFulfilled          SalesOrderStatus = "Fulfilled"
	SalesOrderStatusCancelled          SalesOrderStatus = "Cancelled"
)

// CanFulfill reports whether the fulfillment protocol may run in this state.
func (s SalesOrderStatus) CanFulfill() bool {
	return s == SalesOrderStatusPending || s == SalesOrderStatusPartiallyFulfilled
}

// CanCancel: only untouched orders are cancellable; fulfilled quantities are
// never reversed by cancellation.
func (s SalesOrderStatus) CanCancel() bool {
	return s == SalesOrderStatusPending
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending           PurchaseOrderStatus = "Pending"
	PurchaseOrderStatusConfirmed         PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "Partially Received"
	PurchaseOrderStatusReceived          PurchaseOrderStatus = "Received"
)

// CanReceive reports whether the receiving protocol may run in this state.
func (s PurchaseOrderStatus) CanReceive() bool {
	switch s {
	case PurchaseOrderStatusPending, PurchaseOrderStatusConfirmed, PurchaseOrderStatusPartiallyReceived:
		return true
	}
	return false
}

// StockReason is the recorded cause of one ledger mutation.
type StockReason string

const (
	StockReasonPurchase     StockReason = "Purchase"
	StockReasonSale         StockReason = "Sale"
	StockReasonReturn       StockReason = "Return"
	StockReasonAdjustment   StockReason = "Adjustment"
	StockReasonCancellation StockReason = "Cancellation"
)

func ParseStockReason(s string) (StockReason, error) {
	switch StockReason(s) {
	case StockReasonPurchase, StockReasonSale, StockReasonReturn, StockReasonAdjustment, StockReasonCancellation:
		return StockReason(s), nil
	}
	return "", fmt.Errorf("%s is not a valid StockReason", s)
}

// StockReferenceType classifies what a ledger entry points back to.
type StockReferenceType string

const (
	StockReferenceTypeSalesOrder    StockReferenceType = "SO"
	StockReferenceTypePurchaseOrder StockReferenceType = "PO"
	StockReferenceTypeAdjustment    StockReferenceType = "ADJ"
)
