package usecase

import (
	"context"
	"strings"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
)

// ConfigurationService manages saved forecast configurations.
type ConfigurationService struct {
	store domrepo.ConfigurationStore
}

func NewConfigurationService(store domrepo.ConfigurationStore) *ConfigurationService {
	return &ConfigurationService{store: store}
}

func (s *ConfigurationService) List(ctx context.Context) ([]models.SavedConfiguration, error) {
	return s.store.List(ctx)
}

func (s *ConfigurationService) Get(ctx context.Context, id string) (*models.SavedConfiguration, error) {
	return s.store.Get(ctx, id)
}

// Create stores a new configuration. Names are trimmed and must be unique.
func (s *ConfigurationService) Create(ctx context.Context, req models.ConfigurationRequest) (*models.SavedConfiguration, error) {
	c := &models.SavedConfiguration{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Config:      req.Config.WithDefaults(),
	}
	if c.Name == "" {
		return nil, models.NewDomainError(models.ErrInvalidSelection, "Configuration name is required")
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the named configuration id.
func (s *ConfigurationService) Update(ctx context.Context, req models.ConfigurationUpdateRequest) (*models.SavedConfiguration, error) {
	c := &models.SavedConfiguration{
		ID:          req.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Config:      req.Config.WithDefaults(),
	}
	if c.Name == "" {
		return nil, models.NewDomainError(models.ErrInvalidSelection, "Configuration name is required")
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConfigurationService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
