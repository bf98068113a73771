package models

import "time"

// DailyCounter holds the last issued order number for one calendar day.
// Created lazily on the first order of the day, incremented under the order
// creation transaction, never decremented or reused.
type DailyCounter struct {
	Date            string    `gorm:"column:date;primaryKey"`
	LastOrderNumber int       `gorm:"column:last_order_number;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (DailyCounter) TableName() string {
	return "daily_counters"
}
