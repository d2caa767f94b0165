package repository

import (
	"encoding/json"
	"fmt"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"gorm.io/datatypes"
)

// GatewayEntity stores one provider configuration. The variant config
// lives in a JSON column matching the gateway type, the other stays NULL.
type GatewayEntity struct {
	ID             int64          `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	Name           string         `db:"name"            gorm:"column:name;not null"`
	Type           string         `db:"type"            gorm:"column:type;not null;index"`
	// No gorm default on Active: a zero value with a default tag is
	// dropped from the INSERT, which would flip created-disabled to true.
	Active         bool           `db:"active"          gorm:"column:active;not null"`
	ExternalConfig datatypes.JSON `db:"external_config" gorm:"column:external_config"`
	MetaConfig     datatypes.JSON `db:"meta_config"     gorm:"column:meta_config"`
	pg.Timestamps
}

func (GatewayEntity) TableName() string {
	return "gateways"
}

func toGatewayEntity(m *model.Gateway) (*GatewayEntity, error) {
	if m == nil {
		return nil, nil
	}
	entity := &GatewayEntity{
		ID:     m.ID,
		Name:   m.Name,
		Type:   string(m.Type),
		Active: m.Active,
	}
	entity.CreatedAt = m.CreatedAt
	entity.UpdatedAt = m.UpdatedAt

	if m.External != nil {
		raw, err := json.Marshal(m.External)
		if err != nil {
			return nil, fmt.Errorf("encode external config: %w", err)
		}
		entity.ExternalConfig = raw
	}
	if m.Meta != nil {
		raw, err := json.Marshal(m.Meta)
		if err != nil {
			return nil, fmt.Errorf("encode meta config: %w", err)
		}
		entity.MetaConfig = raw
	}
	return entity, nil
}

func toGatewayModel(e *GatewayEntity) (*model.Gateway, error) {
	if e == nil {
		return nil, nil
	}
	m := &model.Gateway{
		ID:        e.ID,
		Name:      e.Name,
		Type:      model.GatewayType(e.Type),
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}

	if len(e.ExternalConfig) > 0 {
		m.External = &model.ExternalRestConfig{}
		if err := json.Unmarshal(e.ExternalConfig, m.External); err != nil {
			return nil, fmt.Errorf("decode external config of gateway %d: %w", e.ID, err)
		}
	}
	if len(e.MetaConfig) > 0 {
		m.Meta = &model.MetaCloudConfig{}
		if err := json.Unmarshal(e.MetaConfig, m.Meta); err != nil {
			return nil, fmt.Errorf("decode meta config of gateway %d: %w", e.ID, err)
		}
	}
	return m, nil
}

func toGatewayModels(entities []*GatewayEntity) ([]*model.Gateway, error) {
	if entities == nil {
		return nil, nil
	}
	models := make([]*model.Gateway, len(entities))
	for i, e := range entities {
		m, err := toGatewayModel(e)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}
	return models, nil
}
