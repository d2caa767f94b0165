package pg

import "time"

// Timestamps is the audit pair embedded by mutable entities.
type Timestamps struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
