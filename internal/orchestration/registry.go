package orchestration

import (
	"context"
	"fmt"
	"sync"

	"switchyard/internal/config"
	"switchyard/internal/logger"
	"switchyard/pkg/metrics"
)

// Registry holds every loaded rule set and resolves which one applies to an
// event. Rule sets are immutable snapshots; a reload parses the file outside
// the lock and swaps the reference, so readers never observe a half-loaded
// rule set.
type Registry struct {
	mu          sync.RWMutex
	ruleSets    map[string]*RuleSet
	loadOrder   []string
	files       map[string]string
	defaultName string

	loader Loader
	cfg    config.OrchestrationsConfig
	logger logger.Logger
}

func NewRegistry(loader Loader, cfg config.OrchestrationsConfig, log logger.Logger) *Registry {
	return &Registry{
		ruleSets: make(map[string]*RuleSet),
		files:    make(map[string]string),
		loader:   loader,
		cfg:      cfg,
		logger:   log,
	}
}

// LoadAll reads every configured rule set file. Any failure aborts the whole
// load: the service must not start with a partial rule set collection.
func (r *Registry) LoadAll(ctx context.Context) error {
	sources := r.sources()
	if len(sources) == 0 {
		return fmt.Errorf("no orchestration files configured")
	}

	ruleSets := make(map[string]*RuleSet, len(sources))
	files := make(map[string]string, len(sources))
	loadOrder := make([]string, 0, len(sources))

	for _, src := range sources {
		rs, err := r.loader.Load(src.Path)
		if err != nil {
			return err
		}

		name := src.Name
		if name == "" {
			name = rs.Name
		}
		if _, dup := ruleSets[name]; dup {
			return fmt.Errorf("duplicate orchestration name %q (path %s)", name, src.Path)
		}

		ruleSets[name] = rs
		files[name] = src.Path
		loadOrder = append(loadOrder, name)

		r.logger.InfowCtx(ctx, "Loaded orchestration",
			"orchestration", name,
			"path", src.Path,
			"routes", len(rs.Routes),
		)
	}

	defaultName := r.cfg.Default
	if defaultName == "" {
		defaultName = loadOrder[0]
	}
	if _, ok := ruleSets[defaultName]; !ok {
		return fmt.Errorf("default orchestration %q is not among the loaded rule sets", defaultName)
	}

	r.mu.Lock()
	r.ruleSets = ruleSets
	r.files = files
	r.loadOrder = loadOrder
	r.defaultName = defaultName
	r.mu.Unlock()

	metrics.SetActiveOrchestrations(len(ruleSets))
	r.logger.InfowCtx(ctx, "Orchestration registry ready",
		"count", len(ruleSets),
		"default", defaultName,
	)
	return nil
}

type source struct {
	Name string
	Path string
}

func (r *Registry) sources() []source {
	if r.cfg.LegacyMode() {
		return []source{{Path: r.cfg.File}}
	}
	sources := make([]source, 0, len(r.cfg.Files))
	for _, f := range r.cfg.Files {
		sources = append(sources, source{Name: f.Name, Path: f.Path})
	}
	return sources
}

// Resolve returns the rule set for the requested orchestration name. An
// empty name means the default; an unknown name falls back to the default
// with a warning rather than failing the event.
func (r *Registry) Resolve(ctx context.Context, name string) *RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		return r.ruleSets[r.defaultName]
	}
	if rs, ok := r.ruleSets[name]; ok {
		return rs
	}

	metrics.FallbackUsageTotal.WithLabelValues("routing", "default_orchestration", "unknown_name").Inc()
	r.logger.WarnwCtx(ctx, "Unknown orchestration requested, using default",
		"requested", name,
		"default", r.defaultName,
	)
	return r.ruleSets[r.defaultName]
}

// Default returns the rule set used when events name no orchestration.
func (r *Registry) Default() *RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ruleSets[r.defaultName]
}

// DefaultName returns the resolved default orchestration name.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// Names returns the orchestration names in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.loadOrder))
	copy(names, r.loadOrder)
	return names
}

// Get returns one rule set without default fallback.
func (r *Registry) Get(name string) (*RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.ruleSets[name]
	return rs, ok
}

// IsValid reports whether the name resolves without fallback to a usable
// rule set: one with a non-empty name and at least one route. The loader
// accepts route-less rule sets so they can be staged before routes exist,
// but they cannot route anything.
func (r *Registry) IsValid(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.ruleSets[name]
	return ok && rs.Name != "" && len(rs.Routes) > 0
}

// Targets returns the distinct targets across every loaded rule set.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var targets []string
	for _, name := range r.loadOrder {
		for _, t := range r.ruleSets[name].Targets() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			targets = append(targets, t)
		}
	}
	return targets
}

// Reload re-reads one orchestration from its file and swaps it in. The file
// is parsed outside the lock; a parse failure leaves the current rule set in
// place.
func (r *Registry) Reload(ctx context.Context, name string) error {
	r.mu.RLock()
	path, ok := r.files[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown orchestration %q", name)
	}

	rs, err := r.loader.Load(path)
	if err != nil {
		return fmt.Errorf("failed to reload orchestration %q: %w", name, err)
	}

	r.mu.Lock()
	r.ruleSets[name] = rs
	r.mu.Unlock()

	r.logger.InfowCtx(ctx, "Reloaded orchestration",
		"orchestration", name,
		"path", path,
		"routes", len(rs.Routes),
	)
	return nil
}

// ReloadAll re-reads every orchestration, swapping each one that parses and
// reporting the first failure after attempting all of them.
func (r *Registry) ReloadAll(ctx context.Context) error {
	var firstErr error
	for _, name := range r.Names() {
		if err := r.Reload(ctx, name); err != nil {
			r.logger.ErrorwCtx(ctx, "Failed to reload orchestration",
				"orchestration", name,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
