package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PaymentStatus is derived from amounts, never set directly
type PaymentStatus int

const (
	PaymentStatusPending PaymentStatus = 0
	PaymentStatusPartial PaymentStatus = 1
	PaymentStatusPaid    PaymentStatus = 2
	PaymentStatusOverdue PaymentStatus = 3
)

var paymentStatusNames = []string{"pending", "partial", "paid", "overdue"}

func (s PaymentStatus) String() string {
	if int(s) < 0 || int(s) >= len(paymentStatusNames) {
		return "pending"
	}
	return paymentStatusNames[s]
}

// ParsePaymentStatus maps a status name to its value
func ParsePaymentStatus(name string) (PaymentStatus, bool) {
	i := indexOf(paymentStatusNames, name)
	if i < 0 {
		return PaymentStatusPending, false
	}
	return PaymentStatus(i), true
}

func (s PaymentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalEnum(data, paymentStatusNames)
	if err != nil {
		return err
	}
	*s = PaymentStatus(i)
	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *PaymentStatus) Scan(value interface{}) error {
	*s = PaymentStatus(scanEnum(value))
	return nil
}
