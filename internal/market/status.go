package market

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFarmer, RoleBuyer:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type ProductStatus string

const (
	ProductPending          ProductStatus = "pending"
	ProductApproved         ProductStatus = "approved"
	ProductRevisionRequired ProductStatus = "revision_required"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductPending, ProductApproved, ProductRevisionRequired:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderInTransit  OrderStatus = "in_transit"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderPipeline lists the forward statuses in order.
var OrderPipeline = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderProcessing,
	OrderShipped,
	OrderInTransit,
	OrderDelivered,
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:    {OrderConfirmed: true, OrderCancelled: true},
	OrderConfirmed:  {OrderProcessing: true, OrderCancelled: true},
	OrderProcessing: {OrderShipped: true, OrderCancelled: true},
	OrderShipped:    {OrderInTransit: true, OrderCancelled: true},
	OrderInTransit:  {OrderDelivered: true, OrderCancelled: true},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransition reports whether the strict pipeline allows from -> to.
// The store only consults it when built WithStrictOrderFlow.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}
