package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// OrderPriority decides queue order on the technician bench
type OrderPriority int

const (
	OrderPriorityRoutine OrderPriority = 0
	OrderPriorityUrgent  OrderPriority = 1
)

var orderPriorityNames = []string{"routine", "urgent"}

func (p OrderPriority) String() string {
	if p == OrderPriorityUrgent {
		return "urgent"
	}
	return "routine"
}

func (p OrderPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *OrderPriority) UnmarshalJSON(data []byte) error {
	i, err := unmarshalEnum(data, orderPriorityNames)
	if err != nil {
		return err
	}
	*p = OrderPriority(i)
	return nil
}

func (p OrderPriority) Value() (driver.Value, error) {
	return int64(p), nil
}

func (p *OrderPriority) Scan(value interface{}) error {
	*p = OrderPriority(scanEnum(value))
	return nil
}
