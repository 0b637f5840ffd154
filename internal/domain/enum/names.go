package enum

import (
	"encoding/json"
	"fmt"
)

// indexOf returns the position of name in names, or -1.
func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// unmarshalEnum accepts either the string name or the raw integer.
func unmarshalEnum(data []byte, names []string) (int, error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return 0, err
		}
		return i, nil
	}
	if i := indexOf(names, str); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("unknown value %q", str)
}

func scanEnum(value interface{}) int {
	switch v := value.(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return int(v)
	}
	return 0
}
