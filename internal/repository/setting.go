package repository

import (
	"context"
	"time"

	"github.com/wfunc/serial-console/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 设置仓储接口
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
	List(ctx context.Context) ([]*models.Setting, error)
	Delete(ctx context.Context, key string) error
}

type settingRepo struct {
	*BaseRepo
}

// NewSettingRepository 创建设置仓储
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{BaseRepo: NewBaseRepo(db)}
}

// Get 不存在时返回 gorm.ErrRecordNotFound
func (r *settingRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).
		Where(&models.Setting{Key: key}).
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert 写入或覆盖
func (r *settingRepo) Upsert(ctx context.Context, key, value string) (*models.Setting, error) {
	setting := &models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *settingRepo) List(ctx context.Context) ([]*models.Setting, error) {
	var settings []*models.Setting
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&settings).Error
	return settings, err
}

// Delete 删除不存在的键不报错
func (r *settingRepo) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where(&models.Setting{Key: key}).
		Delete(&models.Setting{}).Error
}
