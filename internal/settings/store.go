package settings

import (
	"context"
	"errors"
	"strings"

	"makerspace/internal/apperr"
)

// Store is the admin key/value settings store. A missing key is not an
// error: Get returns the supplied default.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Get(ctx context.Context, key, defaultValue string) (string, error) {
	setting, err := s.repo.GetSetting(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return defaultValue, nil
	}
	if err != nil {
		return defaultValue, apperr.Internal(err, "failed to read setting")
	}
	return setting.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return apperr.Validation("setting key is required")
	}
	if err := s.repo.UpsertSetting(ctx, key, value); err != nil {
		return apperr.Internal(err, "failed to save setting")
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]Setting, error) {
	list, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list settings")
	}
	return list, nil
}
