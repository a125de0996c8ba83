// Package models contains the database model definitions for the
// device settings store.
package models

import (
	"time"
)

// Setting is one key/value row of device state: identity fields like the
// node name and location, plus small operational knobs that must survive
// reboots but don't belong in the output config document.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }
