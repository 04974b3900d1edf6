package models

import "errors"

type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelInStore Channel = "in-store"
)

type Fulfillment string

const (
	FulfillmentDelivery Fulfillment = "delivery"
	FulfillmentPickup   Fulfillment = "pickup"
)

type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case "completed":
		return OrderStatusCompleted, nil
	case "shipped":
		return OrderStatusShipped, nil
	case "delivered":
		return OrderStatusDelivered, nil
	case "cancelled":
		return OrderStatusCancelled, nil
	}
	return "", errors.New("invalid order status")
}

// IsPostable reports whether an order in this status is recognised as revenue.
func (s OrderStatus) IsPostable() bool {
	return s != OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodMobile PaymentMethod = "mobile"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch s {
	case "card":
		return PaymentMethodCard, nil
	case "cash":
		return PaymentMethodCash, nil
	case "mobile":
		return PaymentMethodMobile, nil
	}
	return "", errors.New("invalid payment method")
}

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusVoided    PaymentStatus = "voided"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch s {
	case "completed":
		return PaymentStatusCompleted, nil
	case "voided":
		return PaymentStatusVoided, nil
	}
	return "", errors.New("invalid payment status")
}

type StoreType string

const (
	StoreTypeRetail  StoreType = "retail"
	StoreTypeWebshop StoreType = "webshop"
)

type EmployeeRole string

const (
	EmployeeRoleCashier        EmployeeRole = "cashier"
	EmployeeRoleSalesAssociate EmployeeRole = "sales_associate"
	EmployeeRoleStockAssociate EmployeeRole = "stock_associate"
	EmployeeRoleStoreManager   EmployeeRole = "store_manager"
)

func ParseEmployeeRole(s string) (EmployeeRole, error) {
	switch s {
	case "cashier":
		return EmployeeRoleCashier, nil
	case "sales_associate":
		return EmployeeRoleSalesAssociate, nil
	case "stock_associate":
		return EmployeeRoleStockAssociate, nil
	case "store_manager":
		return EmployeeRoleStoreManager, nil
	}
	return "", errors.New("invalid employee role")
}

type CustomerSegment string

const (
	CustomerSegmentRegular  CustomerSegment = "regular"
	CustomerSegmentLoyalty  CustomerSegment = "loyalty"
	CustomerSegmentBusiness CustomerSegment = "business"
)

func ParseCustomerSegment(s string) (CustomerSegment, error) {
	switch s {
	case "regular":
		return CustomerSegmentRegular, nil
	case "loyalty":
		return CustomerSegmentLoyalty, nil
	case "business":
		return CustomerSegmentBusiness, nil
	}
	return "", errors.New("invalid customer segment")
}

type ProductCategory string

const (
	ProductCategoryApparel     ProductCategory = "apparel"
	ProductCategoryFootwear    ProductCategory = "footwear"
	ProductCategoryAccessories ProductCategory = "accessories"
	ProductCategoryHome        ProductCategory = "home"
)

func ParseProductCategory(s string) (ProductCategory, error) {
	switch s {
	case "apparel":
		return ProductCategoryApparel, nil
	case "footwear":
		return ProductCategoryFootwear, nil
	case "accessories":
		return ProductCategoryAccessories, nil
	case "home":
		return ProductCategoryHome, nil
	}
	return "", errors.New("invalid product category")
}

type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceDesktop Device = "desktop"
	DeviceTablet  Device = "tablet"
)

func ParseDevice(s string) (Device, error) {
	switch s {
	case "mobile":
		return DeviceMobile, nil
	case "desktop":
		return DeviceDesktop, nil
	case "tablet":
		return DeviceTablet, nil
	}
	return "", errors.New("invalid device")
}

type TrafficSource string

const (
	TrafficSourceOrganic    TrafficSource = "organic"
	TrafficSourcePaidSearch TrafficSource = "paid_search"
	TrafficSourceSocial     TrafficSource = "social"
	TrafficSourceEmail      TrafficSource = "email"
	TrafficSourceDirect     TrafficSource = "direct"
)

func ParseTrafficSource(s string) (TrafficSource, error) {
	switch s {
	case "organic":
		return TrafficSourceOrganic, nil
	case "paid_search":
		return TrafficSourcePaidSearch, nil
	case "social":
		return TrafficSourceSocial, nil
	case "email":
		return TrafficSourceEmail, nil
	case "direct":
		return TrafficSourceDirect, nil
	}
	return "", errors.New("invalid traffic source")
}

type JournalSourceType string

const (
	JournalSourceOrder          JournalSourceType = "ORDER"
	JournalSourcePayrollAccrual JournalSourceType = "PAYROLL_ACCRUAL"
	JournalSourcePayrollPayment JournalSourceType = "PAYROLL_PAYMENT"
)

type CheckStatus string

const (
	CheckStatusPass CheckStatus = "PASS"
	CheckStatusWarn CheckStatus = "WARN"
	CheckStatusFail CheckStatus = "FAIL"
)

// Severity orders statuses so the worst one can be picked.
func (s CheckStatus) Severity() int {
	switch s {
	case CheckStatusWarn:
		return 1
	case CheckStatusFail:
		return 2
	}
	return 0
}

// Worst returns the more severe of two statuses.
func (s CheckStatus) Worst(other CheckStatus) CheckStatus {
	if other.Severity() > s.Severity() {
		return other
	}
	return s
}
