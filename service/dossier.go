package service

import (
	"context"
	"time"

	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/policy"
)

// Dossier is a case file owned by a workspace.
type Dossier struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DossierFilter selects a page of dossiers.
type DossierFilter struct {
	WorkspaceID string `json:"workspaceId,omitempty"`
	Status      string `json:"status,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// DossierRepository is the source of truth for dossiers.
type DossierRepository interface {
	Get(ctx context.Context, id string) (*Dossier, error)
	List(ctx context.Context, filter DossierFilter) ([]*Dossier, error)
	Create(ctx context.Context, d Dossier) (*Dossier, error)
	Update(ctx context.Context, d Dossier) (*Dossier, error)
	Delete(ctx context.Context, id string) error
}

// DossierService serves dossiers through the cache.
type DossierService struct {
	*Base[*Dossier]
	repo DossierRepository
}

// NewDossierService creates a DossierService over repo.
func NewDossierService(c *cache.Coordinator, repo DossierRepository) (*DossierService, error) {
	if repo == nil {
		return nil, ErrNilRepository
	}
	return &DossierService{Base: NewBase[*Dossier](c, policy.Dossier), repo: repo}, nil
}

// Get returns the dossier with id.
func (s *DossierService) Get(ctx context.Context, id string, opts ...CallOption) (*Dossier, error) {
	return s.GetByID(ctx, id, func(ctx context.Context) (*Dossier, error) {
		return s.repo.Get(ctx, id)
	}, opts...)
}

// List returns the dossiers matching filter.
func (s *DossierService) List(ctx context.Context, filter DossierFilter, opts ...CallOption) ([]*Dossier, error) {
	return s.GetList(ctx, filter, func(ctx context.Context) ([]*Dossier, error) {
		return s.repo.List(ctx, filter)
	}, opts...)
}

// Create stores a new dossier and clears the list caches.
func (s *DossierService) Create(ctx context.Context, d Dossier) (*Dossier, error) {
	created, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, err
	}
	s.OnCreated(ctx)
	return created, nil
}

// Update saves d, refreshes its cache entry and clears the list caches.
func (s *DossierService) Update(ctx context.Context, d Dossier) (*Dossier, error) {
	updated, err := s.repo.Update(ctx, d)
	if err != nil {
		return nil, err
	}
	s.OnUpdated(ctx, updated.ID, updated)
	return updated, nil
}

// Delete removes the dossier with id and its cache entries.
func (s *DossierService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.OnDeleted(ctx, id)
	return nil
}
