package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CompletionRun is the audit row persisted per completion attempt. It stores
// the completed document and its diagnostics so operators can replay what
// the engine decided for a given order.
type CompletionRun struct {
	ID snowflake.ID `gorm:"primaryKey"`

	// Source names the shop integration that produced the raw invoice.
	Source        string `gorm:"type:text;not null;index:idx_completion_runs_source"`
	InvoiceNumber string `gorm:"column:invoice_number;type:text"`

	Concept  bool   `gorm:"not null"`
	VatType  string `gorm:"column:vat_type;type:text"`
	Warnings int    `gorm:"not null"`

	// Payload holds the completed invoice and message list as JSON.
	Payload datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CompletionRun) TableName() string { return "completion_runs" }
