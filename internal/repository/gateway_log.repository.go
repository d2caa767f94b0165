package repository

import (
	"context"
	"errors"

	"github.com/techlab/whatsapp-gateway/internal/model"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
	"gorm.io/gorm"
)

type GatewayLogRepository struct {
	*pg.DB
}

func NewGatewayLogRepository(db *pg.DB) *GatewayLogRepository {
	return &GatewayLogRepository{
		db,
	}
}

func (r *GatewayLogRepository) Create(ctx context.Context, entry *model.GatewayLog) (*model.GatewayLog, error) {
	entity := toGatewayLogEntity(entry)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toGatewayLogModel(entity), nil
}

func (r *GatewayLogRepository) Get(ctx context.Context, id int64) (*model.GatewayLog, error) {
	var entity GatewayLogEntity
	err := r.Read(ctx).WithContext(ctx).First(&entity, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return toGatewayLogModel(&entity), nil
}

func (r *GatewayLogRepository) List(ctx context.Context, f model.LogFilter) ([]*model.GatewayLog, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&GatewayLogEntity{})

	if f.GatewayID != nil {
		q = q.Where("gateway_id = ?", *f.GatewayID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.PhoneNumber != nil && *f.PhoneNumber != "" {
		q = q.Where("phone_number = ?", *f.PhoneNumber)
	}
	if f.SourceModel != nil && *f.SourceModel != "" {
		q = q.Where("source_model = ?", *f.SourceModel)
	}
	if f.SourceID != nil {
		q = q.Where("source_id = ?", *f.SourceID)
	}
	if f.From != nil {
		q = q.Where("timestamp >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("timestamp < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "timestamp"
	if f.Desc {
		order += " DESC"
	} else {
		order += " ASC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var entities []*GatewayLogEntity
	if err := q.Order(order).Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toGatewayLogModels(entities), total, nil
}

// CountByGateway reports how many attempts were logged against a gateway,
// which the gateway read API exposes as usage stats.
func (r *GatewayLogRepository) CountByGateway(ctx context.Context, gatewayID int64) (int64, error) {
	var total int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&GatewayLogEntity{}).
		Where("gateway_id = ?", gatewayID).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
