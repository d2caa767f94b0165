package repository

import (
	"time"

	"github.com/techlab/whatsapp-gateway/internal/model"
)

// GatewayLogEntity is append-only: rows are written once per dispatch
// attempt and never updated.
type GatewayLogEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	GatewayID    int64     `db:"gateway_id"    gorm:"column:gateway_id;not null;index"`
	GatewayType  string    `db:"gateway_type"  gorm:"column:gateway_type"`
	Message      string    `db:"message"       gorm:"column:message;not null"`
	PhoneNumber  string    `db:"phone_number"  gorm:"column:phone_number;not null;index"`
	Status       string    `db:"status"        gorm:"column:status;not null;index"`
	ResponseCode int       `db:"response_code" gorm:"column:response_code"`
	ResponseBody string    `db:"response_body" gorm:"column:response_body"`
	SourceModel  string    `db:"source_model"  gorm:"column:source_model;index:idx_gateway_logs_source"`
	SourceID     int64     `db:"source_id"     gorm:"column:source_id;index:idx_gateway_logs_source"`
	Timestamp    time.Time `db:"timestamp"     gorm:"column:timestamp;autoCreateTime;index"`
}

func (GatewayLogEntity) TableName() string {
	return "gateway_logs"
}

func toGatewayLogEntity(m *model.GatewayLog) *GatewayLogEntity {
	if m == nil {
		return nil
	}
	return &GatewayLogEntity{
		ID:           m.ID,
		GatewayID:    m.GatewayID,
		GatewayType:  string(m.GatewayType),
		Message:      m.Message,
		PhoneNumber:  m.PhoneNumber,
		Status:       string(m.Status),
		ResponseCode: m.ResponseCode,
		ResponseBody: m.ResponseBody,
		SourceModel:  m.SourceModel,
		SourceID:     m.SourceID,
		Timestamp:    m.Timestamp,
	}
}

func toGatewayLogModel(e *GatewayLogEntity) *model.GatewayLog {
	if e == nil {
		return nil
	}
	return &model.GatewayLog{
		ID:           e.ID,
		GatewayID:    e.GatewayID,
		GatewayType:  model.GatewayType(e.GatewayType),
		Message:      e.Message,
		PhoneNumber:  e.PhoneNumber,
		Status:       model.LogStatus(e.Status),
		ResponseCode: e.ResponseCode,
		ResponseBody: e.ResponseBody,
		SourceModel:  e.SourceModel,
		SourceID:     e.SourceID,
		Timestamp:    e.Timestamp,
	}
}

func toGatewayLogModels(entities []*GatewayLogEntity) []*model.GatewayLog {
	if entities == nil {
		return nil
	}
	models := make([]*model.GatewayLog, len(entities))
	for i, e := range entities {
		models[i] = toGatewayLogModel(e)
	}
	return models
}
