package domain

type OrderStatus string

const (
	OrderPending  OrderStatus = "Pending"
	OrderApproved OrderStatus = "Approved"
	OrderRejected OrderStatus = "Rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderApproved || s == OrderRejected
}

type Order struct {
	ID              int64       `db:"id" json:"id"`
	MedicineName    string      `db:"medicine_name" json:"medicine_name"`
	QuantityOrdered int64       `db:"quantity_ordered" json:"quantity_ordered"`
	Status          OrderStatus `db:"status" json:"status"`
	OrderDate       string      `db:"order_date" json:"order_date"`
}
