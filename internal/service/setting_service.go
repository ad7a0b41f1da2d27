package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"regexp"

	"github.com/wfunc/serial-console/internal/errors"
	"github.com/wfunc/serial-console/internal/repository"
	"gorm.io/gorm"
)

var settingKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

type settingService struct {
	repo repository.SettingRepository
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) SettingService {
	return &settingService{repo: repo}
}

func validateKey(key string) error {
	if !settingKeyPattern.MatchString(key) {
		return errors.Newf(errors.ErrInvalidParam, "invalid setting key %q", key)
	}
	return nil
}

func (s *settingService) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	setting, err := s.repo.Get(ctx, key)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Newf(errors.ErrNotFound, "setting %s", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return json.RawMessage(setting.Value), nil
}

// Set 值必须是合法JSON
func (s *settingService) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(value) == 0 || !json.Valid(value) {
		return errors.New(errors.ErrInvalidParam, "setting value must be valid JSON")
	}
	if _, err := s.repo.Upsert(ctx, key, string(value)); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseUpdate)
	}
	return nil
}

func (s *settingService) List(ctx context.Context) (map[string]json.RawMessage, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	out := make(map[string]json.RawMessage, len(settings))
	for _, st := range settings {
		out[st.Key] = json.RawMessage(st.Value)
	}
	return out, nil
}

func (s *settingService) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseDelete)
	}
	return nil
}
