package entity

import "time"

// Sequence is the last number issued in one identifier scope, e.g.
// "ORD:20240115" or "PAT". Rows are only ever incremented atomically.
type Sequence struct {
	Scope     string    `gorm:"size:64;primaryKey" json:"scope"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Sequence) TableName() string {
	return "sequences"
}
