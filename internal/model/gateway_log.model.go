package model

import "time"

// LogStatus is the terminal outcome of a dispatch attempt.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// GatewayLog is one immutable row of the dispatch audit trail. Every
// attempt writes exactly one, success or failure.
type GatewayLog struct {
	ID           int64       `json:"id"`
	GatewayID    int64       `json:"gateway_id"`
	GatewayType  GatewayType `json:"gateway_type"`
	Message      string      `json:"message"`
	PhoneNumber  string      `json:"phone_number"`
	Status       LogStatus   `json:"status"`
	ResponseCode int         `json:"response_code"`
	ResponseBody string      `json:"response_body"`
	SourceModel  string      `json:"source_model,omitempty"`
	SourceID     int64       `json:"source_id,omitempty"`
	// SourceName is resolved on read from the host application, never
	// stored.
	SourceName string    `json:"source_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (GatewayLog) TableName() string { return "gateway_logs" }

// LogFilter controls List queries over the audit trail.
type LogFilter struct {
	GatewayID   *int64
	Statuses    []LogStatus
	PhoneNumber *string
	SourceModel *string
	SourceID    *int64
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
	Desc        bool
}
