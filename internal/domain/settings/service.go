// Package settings stores application key/value configuration.
package settings

import (
	"context"
	"encoding/json"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/tx"
	"stockbook/pkg/logger"
)

// Setting is one stored key/value pair.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Repository defines persistence for settings.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) ([]*Setting, error)
}

// Service provides business logic for application settings.
type Service struct {
	repo Repository
	txm  tx.Manager
}

// NewService creates a new settings service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{repo: repo, txm: txm}
}

// Get returns the value for key.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", apperror.NewValidation("key is required")
	}
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// Set stores a value under key, overwriting any previous value.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperror.NewValidation("key is required")
	}
	return s.repo.Upsert(ctx, key, value)
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperror.NewValidation("key is required")
	}
	return s.repo.Delete(ctx, key)
}

// GetAll returns every stored setting as a map.
func (s *Service) GetAll(ctx context.Context) (map[string]string, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for _, setting := range all {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// ExportJSON renders all settings as a JSON object, for backup.
func (s *Service) ExportJSON(ctx context.Context) (string, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return string(data), nil
}

// ImportJSON upserts settings from a JSON object and returns how many
// keys were written. All-or-nothing.
func (s *Service) ImportJSON(ctx context.Context, raw string) (int, error) {
	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return 0, apperror.NewValidation("settings payload must be a JSON object of strings").
			WithDetail("error", err.Error())
	}

	count := 0
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for key, value := range values {
			if key == "" {
				continue
			}
			if err := s.repo.Upsert(ctx, key, value); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "settings imported", "count", count)
	return count, nil
}
