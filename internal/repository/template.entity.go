package repository

import (
	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
)

type TemplateEntity struct {
	ID               int64  `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	Name             string `db:"name"               gorm:"column:name;not null"`
	ModelName        string `db:"model_name"         gorm:"column:model_name;not null;index"`
	GatewayType      string `db:"gateway_type"       gorm:"column:gateway_type;not null"`
	DefaultGatewayID *int64 `db:"default_gateway_id" gorm:"column:default_gateway_id"`
	Body             string `db:"body"               gorm:"column:body;not null"`
	MediaURL         string `db:"media_url"          gorm:"column:media_url"`
	InteractiveType  string `db:"interactive_type"   gorm:"column:interactive_type;not null"`
	// No gorm default on Active, see GatewayEntity.
	Active           bool   `db:"active"             gorm:"column:active;not null"`
	pg.Timestamps
}

func (TemplateEntity) TableName() string {
	return "templates"
}

func toTemplateEntity(m *model.Template) *TemplateEntity {
	if m == nil {
		return nil
	}
	entity := &TemplateEntity{
		ID:               m.ID,
		Name:             m.Name,
		ModelName:        m.ModelName,
		GatewayType:      string(m.GatewayType),
		DefaultGatewayID: m.DefaultGatewayID,
		Body:             m.Body,
		MediaURL:         m.MediaURL,
		InteractiveType:  string(m.InteractiveType),
		Active:           m.Active,
	}
	entity.CreatedAt = m.CreatedAt
	entity.UpdatedAt = m.UpdatedAt
	return entity
}

func toTemplateModel(e *TemplateEntity) *model.Template {
	if e == nil {
		return nil
	}
	return &model.Template{
		ID:               e.ID,
		Name:             e.Name,
		ModelName:        e.ModelName,
		GatewayType:      model.TemplateGatewayType(e.GatewayType),
		DefaultGatewayID: e.DefaultGatewayID,
		Body:             e.Body,
		MediaURL:         e.MediaURL,
		InteractiveType:  model.InteractiveType(e.InteractiveType),
		Active:           e.Active,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toTemplateModels(entities []*TemplateEntity) []*model.Template {
	if entities == nil {
		return nil
	}
	models := make([]*model.Template, len(entities))
	for i, e := range entities {
		models[i] = toTemplateModel(e)
	}
	return models
}
