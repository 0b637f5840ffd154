package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// LineItemKind says whether a billed line is a single test or a package
type LineItemKind int

const (
	LineItemKindTest    LineItemKind = 0
	LineItemKindPackage LineItemKind = 1
)

var lineItemKindNames = []string{"test", "package"}

func (k LineItemKind) String() string {
	if int(k) < 0 || int(k) >= len(lineItemKindNames) {
		return "test"
	}
	return lineItemKindNames[k]
}

// Valid reports whether k is a known kind
func (k LineItemKind) Valid() bool {
	return k == LineItemKindTest || k == LineItemKindPackage
}

func (k LineItemKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *LineItemKind) UnmarshalJSON(data []byte) error {
	i, err := unmarshalEnum(data, lineItemKindNames)
	if err != nil {
		return err
	}
	*k = LineItemKind(i)
	return nil
}

func (k LineItemKind) Value() (driver.Value, error) {
	return int64(k), nil
}

func (k *LineItemKind) Scan(value interface{}) error {
	*k = LineItemKind(scanEnum(value))
	return nil
}
