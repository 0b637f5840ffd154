package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PaymentMethod records how money was received at the counter
type PaymentMethod int

const (
	PaymentMethodCash         PaymentMethod = 0
	PaymentMethodCard         PaymentMethod = 1
	PaymentMethodMobileMoney  PaymentMethod = 2
	PaymentMethodBankTransfer PaymentMethod = 3
	PaymentMethodInsurance    PaymentMethod = 4
)

var paymentMethodNames = []string{"cash", "card", "mobile_money", "bank_transfer", "insurance"}

func (m PaymentMethod) String() string {
	if int(m) < 0 || int(m) >= len(paymentMethodNames) {
		return "cash"
	}
	return paymentMethodNames[m]
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	i, err := unmarshalEnum(data, paymentMethodNames)
	if err != nil {
		return err
	}
	*m = PaymentMethod(i)
	return nil
}

func (m PaymentMethod) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *PaymentMethod) Scan(value interface{}) error {
	*m = PaymentMethod(scanEnum(value))
	return nil
}
