package directory

import (
	"context"
	"log/slog"

	"streetcrime/internal/cache"
	"streetcrime/internal/types"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ForceDetailSource fetches per-force metadata.
type ForceDetailSource interface {
	GetForceDetail(ctx context.Context, forceID string) (*types.ForceDetail, error)
}

// ForceDirectory is the immutable list of police forces. It needs no locking
// because nothing mutates it after construction.
type ForceDirectory struct {
	forces []types.PoliceForce
	byName map[string]string
	byID   map[string]string

	src    ForceDetailSource
	cache  *cache.Cache
	logger *slog.Logger
}

// NewForceDirectory indexes forces by exact name and by id. When two forces
// share a name the first listed wins.
func NewForceDirectory(forces []types.PoliceForce, src ForceDetailSource, c *cache.Cache, logger *slog.Logger) *ForceDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &ForceDirectory{
		forces: append([]types.PoliceForce(nil), forces...),
		byName: make(map[string]string, len(forces)),
		byID:   make(map[string]string, len(forces)),
		src:    src,
		cache:  c,
		logger: logger,
	}
	for _, f := range d.forces {
		if _, dup := d.byName[f.Name]; !dup {
			d.byName[f.Name] = f.ID
		}
		d.byID[f.ID] = f.Name
	}
	return d
}

// List returns the forces in source order.
func (d *ForceDirectory) List() []types.PoliceForce {
	return append([]types.PoliceForce(nil), d.forces...)
}

// Len returns the number of forces.
func (d *ForceDirectory) Len() int {
	return len(d.forces)
}

// ResolveID maps a display name to a force id by exact match.
func (d *ForceDirectory) ResolveID(name string) (string, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// Name maps a force id back to its display name.
func (d *ForceDirectory) Name(id string) (string, bool) {
	name, ok := d.byID[id]
	return name, ok
}

// EngagementLinks returns the force's published external links with
// title-cased titles. An empty or unknown name returns ErrNotFound.
func (d *ForceDirectory) EngagementLinks(ctx context.Context, forceName string) ([]types.EngagementLink, error) {
	id, ok := d.ResolveID(forceName)
	if !ok {
		return nil, ErrNotFound
	}

	detail, err := cache.GetOrCompute(ctx, d.cache, cache.Key("force", id), func(ctx context.Context) (*types.ForceDetail, error) {
		return d.src.GetForceDetail(ctx, id)
	})
	if err != nil {
		if isNotFound(err) {
			d.logger.WarnContext(ctx, "force listed but detail missing", "force_id", id)
			return nil, ErrNotFound
		}
		return nil, err
	}

	// A Caser holds state and must not be shared between goroutines.
	title := cases.Title(language.English)
	links := make([]types.EngagementLink, 0, len(detail.EngagementLinks))
	for _, l := range detail.EngagementLinks {
		links = append(links, types.EngagementLink{Title: title.String(l.Title), URL: l.URL})
	}
	return links, nil
}
