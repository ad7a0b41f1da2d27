package repository

import (
	"context"
	"time"

	"github.com/wfunc/serial-console/internal/models"
	"gorm.io/gorm"
)

// CommandLogRepository 操作记录仓储接口
type CommandLogRepository interface {
	Create(ctx context.Context, log *models.CommandLog) error
	Latest(ctx context.Context, limit int) ([]*models.CommandLog, error)
	Query(ctx context.Context, filter *models.CommandLogFilter) ([]*models.CommandLog, *Pagination, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type commandLogRepo struct {
	*BaseRepo
}

// NewCommandLogRepository 创建操作记录仓储
func NewCommandLogRepository(db *gorm.DB) CommandLogRepository {
	return &commandLogRepo{BaseRepo: NewBaseRepo(db)}
}

func (r *commandLogRepo) Create(ctx context.Context, log *models.CommandLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Latest 最近的记录，按时间倒序
func (r *commandLogRepo) Latest(ctx context.Context, limit int) ([]*models.CommandLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []*models.CommandLog
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Query 按条件分页查询
func (r *commandLogRepo) Query(ctx context.Context, filter *models.CommandLogFilter) ([]*models.CommandLog, *Pagination, error) {
	if filter == nil {
		filter = &models.CommandLogFilter{}
	}
	page := NewPagination(filter.Page, filter.PageSize)

	query := r.db.WithContext(ctx).Model(&models.CommandLog{})
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Port != "" {
		query = query.Where("port = ?", filter.Port)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at < ?", *filter.Until)
	}

	if err := query.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, nil, err
	}

	var logs []*models.CommandLog
	err := query.
		Scopes(Paginate(page)).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, nil, err
	}
	return logs, page, nil
}

// DeleteBefore 删除指定时间之前的记录
func (r *commandLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.CommandLog{})
	return result.RowsAffected, result.Error
}
