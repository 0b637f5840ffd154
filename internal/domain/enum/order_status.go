package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// OrderStatus tracks a lab order through sample collection and reporting
type OrderStatus int

const (
	OrderStatusPending         OrderStatus = 0
	OrderStatusSampleCollected OrderStatus = 1
	OrderStatusInProgress      OrderStatus = 2
	OrderStatusCompleted       OrderStatus = 3
	OrderStatusCancelled       OrderStatus = 4
)

var orderStatusNames = []string{"pending", "sample_collected", "in_progress", "completed", "cancelled"}

func (s OrderStatus) String() string {
	if int(s) < 0 || int(s) >= len(orderStatusNames) {
		return "pending"
	}
	return orderStatusNames[s]
}

// ParseOrderStatus maps a status name to its value
func ParseOrderStatus(name string) (OrderStatus, bool) {
	i := indexOf(orderStatusNames, name)
	if i < 0 {
		return OrderStatusPending, false
	}
	return OrderStatus(i), true
}

// CanTransitionTo reports whether the lab workflow allows moving to next.
// Orders only move forward; anything not yet completed may be cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next == s+1
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalEnum(data, orderStatusNames)
	if err != nil {
		return err
	}
	*s = OrderStatus(i)
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *OrderStatus) Scan(value interface{}) error {
	*s = OrderStatus(scanEnum(value))
	return nil
}
