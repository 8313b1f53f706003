package models

import (
	"github.com/jinzhu/gorm"
)

// ChatExchange is one request/reply pair handled by the chat proxy.
type ChatExchange struct {
	gorm.Model
	RequestID      string `gorm:"type:varchar(64);index"`
	Transport      string `gorm:"type:varchar(16)"`
	Provider       string `gorm:"type:varchar(32)"`
	Message        string `gorm:"type:text"`
	Reply          string `gorm:"type:text"`
	Action         string `gorm:"type:varchar(32)"`
	Items          string `gorm:"type:text"`
	Fallback       bool
	FallbackReason string `gorm:"type:varchar(64)"`
	LatencyMs      int64
}
