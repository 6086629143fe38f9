package models

import "time"

// OrderStatus tracks the two-phase purchase state machine. PENDING is
// the only non-terminal state.
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderApproved OrderStatus = "APPROVED"
	OrderRejected OrderStatus = "REJECTED"
)

// ItemType selects the effect granted on approval.
type ItemType string

const (
	ItemTypeReward ItemType = "reward"
	ItemTypeAvatar ItemType = "avatar"
	ItemTypeFrame  ItemType = "frame"
)

// SeatPriorityItemID is the functional item whose consumption flags the
// student for priority seat placement.
const SeatPriorityItemID = "seat_priority"

// PendingOrder is a purchase request. The cost is debited from the
// student when the order is created; rejection refunds it, approval
// grants the effect without a second debit.
type PendingOrder struct {
	ID         string      `json:"id"`
	StudentID  string      `json:"student_id"`
	ItemID     string      `json:"item_id"`
	ItemType   ItemType    `json:"item_type"`
	Cost       int         `json:"cost"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

// Resolved reports whether the order reached a terminal state.
func (o *PendingOrder) Resolved() bool {
	return o.Status != OrderPending
}
