package repository

import (
	"context"
	"errors"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"gorm.io/gorm"
)

type TemplateRepository struct {
	*pg.DB
}

func NewTemplateRepository(db *pg.DB) *TemplateRepository {
	return &TemplateRepository{
		db,
	}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	entity := toTemplateEntity(tpl)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTemplateModel(entity), nil
}

func (r *TemplateRepository) Update(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	entity := toTemplateEntity(tpl)

	result := r.Write(ctx).WithContext(ctx).
		Model(&TemplateEntity{ID: entity.ID}).
		Select("name", "model_name", "gateway_type", "default_gateway_id",
			"body", "media_url", "interactive_type", "active").
		Updates(entity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, entity.ID)
}

func (r *TemplateRepository) Get(ctx context.Context, id int64) (*model.Template, error) {
	var entity TemplateEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return toTemplateModel(&entity), nil
}

func (r *TemplateRepository) List(ctx context.Context, f model.TemplateFilter) ([]*model.Template, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TemplateEntity{})

	if f.ModelName != nil && *f.ModelName != "" {
		q = q.Where("model_name = ?", *f.ModelName)
	}
	if f.GatewayType != nil {
		q = q.Where("gateway_type = ?", string(*f.GatewayType))
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*TemplateEntity
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTemplateModels(entities), total, nil
}
