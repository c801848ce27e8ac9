package macro

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry provides profile management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Profile // Cached profiles by ID
	cacheMu sync.RWMutex        // Protects cache
	logger  Logger
}

// NewRegistry creates a new profile registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Profile),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all profiles from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	profiles, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	// Clear and rebuild cache with deep copies
	r.cache = make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		r.cache[p.ID] = p.DeepCopy()
	}

	r.logger.Info("profile cache refreshed", "count", len(profiles))
	return nil
}

// GetProfile retrieves a profile by ID.
// The returned profile is a deep copy; callers can safely modify it.
func (r *Registry) GetProfile(_ context.Context, id string) (*Profile, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrProfileNotFound
}

// GetProfileBySlug retrieves a profile by its slug.
// The returned profile is a deep copy.
func (r *Registry) GetProfileBySlug(_ context.Context, slug string) (*Profile, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, p := range r.cache {
		if p.Slug == slug {
			return p.DeepCopy(), nil
		}
	}
	return nil, ErrProfileNotFound
}

// ListProfiles retrieves all profiles from the cache.
// Returns deep copies sorted by sort_order then name for deterministic ordering.
func (r *Registry) ListProfiles(_ context.Context) ([]Profile, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	profiles := make([]Profile, 0, len(r.cache))
	for _, p := range r.cache {
		profiles = append(profiles, *p.DeepCopy())
	}
	sortProfiles(profiles)
	return profiles, nil
}

// sortProfiles sorts profiles by sort_order then name, matching the DB query ordering.
func sortProfiles(profiles []Profile) {
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].SortOrder != profiles[j].SortOrder {
			return profiles[i].SortOrder < profiles[j].SortOrder
		}
		return profiles[i].Name < profiles[j].Name
	})
}

// CreateProfile validates, persists, and caches a new profile.
func (r *Registry) CreateProfile(ctx context.Context, profile *Profile) error {
	// Generate ID and slug if not provided
	if profile.ID == "" {
		profile.ID = GenerateID()
	}
	if profile.Slug == "" {
		profile.Slug = GenerateSlug(profile.Name)
	}

	// Validate
	if err := ValidateProfile(profile); err != nil {
		return err
	}

	// Persist
	if err := r.repo.Create(ctx, profile); err != nil {
		return err
	}

	// Update cache
	r.cacheMu.Lock()
	r.cache[profile.ID] = profile.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("profile created", "id", profile.ID, "name", profile.Name)
	return nil
}

// UpdateProfile validates, persists, and updates the cached profile.
func (r *Registry) UpdateProfile(ctx context.Context, profile *Profile) error {
	// Validate
	if err := ValidateProfile(profile); err != nil {
		return err
	}

	// Persist
	if err := r.repo.Update(ctx, profile); err != nil {
		return err
	}

	// Update cache
	r.cacheMu.Lock()
	r.cache[profile.ID] = profile.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("profile updated", "id", profile.ID, "name", profile.Name)
	return nil
}

// DeleteProfile removes a profile from persistence and cache.
func (r *Registry) DeleteProfile(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("profile deleted", "id", id)
	return nil
}

// GetProfileCount returns the number of cached profiles.
func (r *Registry) GetProfileCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
