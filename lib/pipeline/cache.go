// Package pipeline keeps one GPU pipeline per base template ("root") and
// recomposes them when the feature set changes.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/metrics"
)

var (
	ErrUnknownRoot   = errors.New("unknown pipeline root")
	ErrDuplicateRoot = errors.New("duplicate pipeline root")
)

// Pipeline is whatever a Backend produced from a composed source.
type Pipeline interface {
	Root() string
}

// Backend turns composed shader source into pipelines. Failures must leave no
// partially created pipeline behind.
type Backend interface {
	CreatePipeline(root, source string) (Pipeline, error)
	DestroyPipeline(p Pipeline)
}

type root struct {
	name     string
	template string

	live        Pipeline
	source      string
	fingerprint uint64
	builtAt     time.Time
	lastErr     error

	metrics metrics.RootMetrics
}

// Cache holds the live pipelines and knows when they are stale. Rebuilding is
// always explicit: toggling a feature only bumps the registry generation.
//
// Like the registry, a Cache is not safe for concurrent use.
type Cache struct {
	registry *features.Registry
	backend  Backend

	roots []*root
	index map[string]*root

	builtGeneration uint64
	templatesDirty  bool
	revision        uint64
	failedAt        attempt

	logger *slog.Logger
}

type attempt struct {
	generation uint64
	revision   uint64
	valid      bool
}

func New(registry *features.Registry, backend Backend) *Cache {
	return &Cache{
		registry: registry,
		backend:  backend,
		index:    make(map[string]*root),
		logger:   slog.Default().With(slog.String("module", "pipeline")),
	}
}

// AddRoot registers a base template under name. The root is stale until the
// next Rebuild.
func (c *Cache) AddRoot(name, template string) error {
	if _, ok := c.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoot, name)
	}
	r := &root{name: name, template: template, metrics: metrics.NewRootMetrics(name)}
	c.roots = append(c.roots, r)
	c.index[name] = r
	c.markDirty()
	return nil
}

// SetTemplate replaces the base template of a root and marks it stale.
func (c *Cache) SetTemplate(name, template string) error {
	r, ok := c.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoot, name)
	}
	if r.template == template {
		return nil
	}
	r.template = template
	c.markDirty()
	return nil
}

func (c *Cache) markDirty() {
	c.templatesDirty = true
	c.revision++
}

func (c *Cache) Template(name string) (string, bool) {
	r, ok := c.index[name]
	if !ok {
		return "", false
	}
	return r.template, true
}

// Stale reports whether the live pipelines may not match the current feature
// set or templates.
func (c *Cache) Stale() bool {
	return c.templatesDirty || c.registry.Generation() != c.builtGeneration
}

// ShouldRebuild is Stale, minus states whose rebuild already failed. It keeps
// an auto-rebuilding render loop from retrying the same broken composition
// every frame.
func (c *Cache) ShouldRebuild() bool {
	if !c.Stale() {
		return false
	}
	return c.failedAt != c.currentAttempt()
}

func (c *Cache) currentAttempt() attempt {
	return attempt{generation: c.registry.Generation(), revision: c.revision, valid: true}
}

// Rebuild composes every root against the registry and creates pipelines for
// those whose inputs changed. Either every root succeeds and the new
// pipelines replace the old ones, or nothing is swapped and the previous
// pipelines stay live.
func (c *Cache) Rebuild() error {
	start := time.Now()
	defer func() {
		metrics.RebuildDuration.Observe(time.Since(start).Seconds())
	}()

	type pending struct {
		r           *root
		p           Pipeline
		source      string
		fingerprint uint64
	}

	registryFp := c.registry.Fingerprint()
	var built []pending
	var errs []error
	for _, r := range c.roots {
		fp := features.TemplateFingerprint(registryFp, r.template)
		if r.live != nil && r.fingerprint == fp {
			r.metrics.CacheHits.Inc()
			c.logger.Debug("pipeline up to date", "root", r.name)
			continue
		}

		src, err := c.registry.Compose(r.template)
		if err != nil {
			r.metrics.ComposeFailures.Inc()
			r.lastErr = err
			errs = append(errs, fmt.Errorf("could not compose %s: %w", r.name, err))
			continue
		}
		r.metrics.Compositions.Inc()

		p, err := c.backend.CreatePipeline(r.name, src)
		if err != nil {
			r.metrics.BackendFailures.Inc()
			r.lastErr = err
			errs = append(errs, fmt.Errorf("could not create pipeline %s: %w", r.name, err))
			continue
		}
		built = append(built, pending{r: r, p: p, source: src, fingerprint: fp})
	}

	if len(errs) > 0 {
		for _, b := range built {
			c.backend.DestroyPipeline(b.p)
		}
		c.failedAt = c.currentAttempt()
		err := errors.Join(errs...)
		c.logger.Error("rebuild failed, keeping previous pipelines", "err", err)
		return err
	}

	now := time.Now()
	for _, b := range built {
		if b.r.live != nil {
			c.backend.DestroyPipeline(b.r.live)
		}
		b.r.live = b.p
		b.r.source = b.source
		b.r.fingerprint = b.fingerprint
		b.r.builtAt = now
		c.logger.Info("pipeline rebuilt", "root", b.r.name, "fingerprint", fmt.Sprintf("%016x", b.fingerprint))
	}
	for _, r := range c.roots {
		r.lastErr = nil
	}
	c.builtGeneration = c.registry.Generation()
	c.templatesDirty = false
	c.failedAt = attempt{}
	return nil
}

func (c *Cache) Pipeline(name string) (Pipeline, bool) {
	r, ok := c.index[name]
	if !ok || r.live == nil {
		return nil, false
	}
	return r.live, true
}

// Source returns the last successfully composed source of a root.
func (c *Cache) Source(name string) (string, bool) {
	r, ok := c.index[name]
	if !ok || r.live == nil {
		return "", false
	}
	return r.source, true
}

func (c *Cache) Roots() []string {
	names := make([]string, len(c.roots))
	for i, r := range c.roots {
		names[i] = r.name
	}
	return names
}

type RootStatus struct {
	Name        string    `json:"name"`
	Built       bool      `json:"built"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	BuiltAt     time.Time `json:"built_at,omitzero"`
	SourceBytes int       `json:"source_bytes"`
	LastError   string    `json:"last_error,omitempty"`
}

func (c *Cache) Status() []RootStatus {
	var s []RootStatus
	for _, r := range c.roots {
		st := RootStatus{Name: r.name, Built: r.live != nil, BuiltAt: r.builtAt, SourceBytes: len(r.source)}
		if r.live != nil {
			st.Fingerprint = fmt.Sprintf("%016x", r.fingerprint)
		}
		if r.lastErr != nil {
			st.LastError = r.lastErr.Error()
		}
		s = append(s, st)
	}
	return s
}

// Close destroys every live pipeline.
func (c *Cache) Close() {
	for _, r := range c.roots {
		if r.live != nil {
			c.backend.DestroyPipeline(r.live)
			r.live = nil
		}
	}
}
