package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PluginLogSuccess = "success"
	PluginLogError   = "error"
)

// PluginLog is one plugin invocation against one transaction. Append-only.
type PluginLog struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID   uuid.UUID         `gorm:"type:uuid;index;not null" json:"transaction_id"`
	PluginName      string            `gorm:"size:100;not null" json:"plugin_name"`
	PluginVersion   string            `gorm:"size:20" json:"plugin_version"`
	Status          string            `gorm:"size:20;not null" json:"status"`
	InputData       datatypes.JSONMap `gorm:"type:jsonb" json:"input_data,omitempty"`
	OutputData      datatypes.JSONMap `gorm:"type:jsonb" json:"output_data,omitempty"`
	ErrorMessage    *string           `gorm:"type:text" json:"error_message,omitempty"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	CreatedAt       time.Time         `json:"created_at"`
}
