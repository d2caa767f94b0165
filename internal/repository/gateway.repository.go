package repository

import (
	"context"
	"errors"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

type GatewayRepository struct {
	*pg.DB
}

func NewGatewayRepository(db *pg.DB) *GatewayRepository {
	return &GatewayRepository{
		db,
	}
}

func (r *GatewayRepository) Create(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	entity, err := toGatewayEntity(gw)
	if err != nil {
		return nil, err
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toGatewayModel(entity)
}

func (r *GatewayRepository) Update(ctx context.Context, gw *model.Gateway) (*model.Gateway, error) {
	entity, err := toGatewayEntity(gw)
	if err != nil {
		return nil, err
	}

	// Save with explicit column selection so a variant switch clears the
	// abandoned config column instead of leaving it behind.
	result := r.Write(ctx).WithContext(ctx).
		Model(&GatewayEntity{ID: entity.ID}).
		Select("name", "type", "active", "external_config", "meta_config").
		Updates(entity)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.Get(ctx, entity.ID)
}

func (r *GatewayRepository) Get(ctx context.Context, id int64) (*model.Gateway, error) {
	var entity GatewayEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return toGatewayModel(&entity)
}

func (r *GatewayRepository) List(ctx context.Context, f model.GatewayFilter) ([]*model.Gateway, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&GatewayEntity{})

	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
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

	var entities []*GatewayEntity
	if err := q.Order("id ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	models, err := toGatewayModels(entities)
	if err != nil {
		return nil, 0, err
	}
	return models, total, nil
}
