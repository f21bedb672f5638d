// Package engine ties the feature registry, the pipeline cache and the
// per-frame hooks together. Everything that mutates engine state runs on the
// goroutine that renders; other goroutines go through Submit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/features/builtin"
	"github.com/fosdem/lumen/lib/metrics"
	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/fosdem/lumen/lib/stats"
	"github.com/fosdem/lumen/lib/templates"
)

var (
	ErrStopped    = errors.New("engine stopped")
	ErrNotStarted = errors.New("engine not started")
)

type Engine struct {
	Registry *features.Registry
	Cache    *pipeline.Cache
	Context  *features.Context
	Stats    *stats.Stats

	cfg       *config.Config
	shaderer  *templates.Shaderer
	pipelines map[string]*config.PipelineCfg
	mainRoot  string

	commands chan command
	stopped  chan struct{}

	started           bool
	ShutdownRequested bool

	elapsed    time.Duration
	frameIndex uint64

	listener     map[string][]EventListener
	rebuildHooks []func()
	afterFrame   []func()

	logger *slog.Logger
}

type command struct {
	fn   func(e *Engine) error
	done chan error
}

// New builds the registry from cfg and loads every pipeline template. Nothing
// touches the device until Start.
func New(cfg *config.Config, backend pipeline.Backend, device features.Device) (*Engine, error) {
	registry, err := builtin.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not build feature registry: %w", err)
	}

	shaderer, err := templates.NewShaderer()
	if err != nil {
		return nil, fmt.Errorf("could not load base templates: %w", err)
	}

	lang := features.Language(cfg.Language)
	e := &Engine{
		Registry:  registry,
		Cache:     pipeline.New(registry, backend),
		Context:   features.NewContext(lang, device, cfg.Window.Width, cfg.Window.Height),
		Stats:     stats.New(),
		cfg:       cfg,
		shaderer:  shaderer,
		pipelines: make(map[string]*config.PipelineCfg),
		mainRoot:  cfg.Pipelines[0].Name,
		commands:  make(chan command, 16),
		stopped:   make(chan struct{}),
		listener:  make(map[string][]EventListener),
		logger:    slog.Default().With(slog.String("module", "engine")),
	}

	for _, p := range cfg.Pipelines {
		tmpl, err := e.renderTemplate(p)
		if err != nil {
			return nil, err
		}
		if err := e.Cache.AddRoot(p.Name, tmpl); err != nil {
			return nil, err
		}
		e.pipelines[p.Name] = p
	}

	return e, nil
}

func (e *Engine) renderTemplate(p *config.PipelineCfg) (string, error) {
	lang := features.Language(e.cfg.Language)
	data := templates.RootData(p.Name, lang)
	if p.Template == "" {
		return e.shaderer.GetShaderSource(templates.BaseName(lang), data)
	}

	s, err := templates.LoadShaderer(string(p.Template))
	if err != nil {
		return "", fmt.Errorf("pipeline %s: %w", p.Name, err)
	}
	src, err := s.GetShaderSource(templates.TemplateName(string(p.Template)), data)
	if err != nil {
		return "", fmt.Errorf("pipeline %s: %w", p.Name, err)
	}
	return src, nil
}

// Start initializes every feature and builds the first set of pipelines. A
// failure here is fatal to the caller.
func (e *Engine) Start() error {
	if err := e.Registry.InitAll(e.Context); err != nil {
		return err
	}
	if err := e.Cache.Rebuild(); err != nil {
		e.Registry.CleanupAll()
		return fmt.Errorf("could not build initial pipelines: %w", err)
	}
	e.started = true
	e.updateFeatureStats()
	e.Stats.PipelineRebuilt()
	for _, hook := range e.rebuildHooks {
		hook()
	}
	e.logger.Info(fmt.Sprintf("engine started with %d/%d features enabled", e.Registry.EnabledCount(), e.Registry.TotalCount()))
	return nil
}

// MainRoot is the pipeline drawn in the main pass.
func (e *Engine) MainRoot() string {
	return e.mainRoot
}

func (e *Engine) Config() *config.Config {
	return e.cfg
}

// OnRebuild registers a hook that runs on the render goroutine after every
// successful rebuild.
func (e *Engine) OnRebuild(hook func()) {
	e.rebuildHooks = append(e.rebuildHooks, hook)
}

// Submit runs fn on the render goroutine and waits for its result.
func (e *Engine) Submit(ctx context.Context, fn func(e *Engine) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessCommands runs every queued command without blocking.
func (e *Engine) ProcessCommands() {
	for {
		select {
		case cmd := <-e.commands:
			cmd.done <- cmd.fn(e)
		default:
			return
		}
	}
}

// Run processes commands until ctx is done or shutdown is requested. It is
// the loop for running without a window.
func (e *Engine) Run(ctx context.Context) error {
	for !e.ShutdownRequested {
		select {
		case cmd := <-e.commands:
			cmd.done <- cmd.fn(e)
			if e.cfg.AutoRebuild && e.Cache.ShouldRebuild() {
				_ = e.RebuildPipeline()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Frame renders one frame: queued commands first, then an automatic rebuild
// if configured, then the feature hooks around the main pass.
func (e *Engine) Frame(enc features.Encoder, dt time.Duration) error {
	if !e.started {
		return ErrNotStarted
	}
	e.ProcessCommands()

	if e.cfg.AutoRebuild && e.Cache.ShouldRebuild() {
		// failures are logged and evented; the last good pipeline keeps drawing
		_ = e.RebuildPipeline()
	}

	e.frameIndex++
	e.elapsed += dt
	e.Context.UpdateFrame(e.frameIndex, dt)
	e.Context.Uniforms.Set("u_time", float32(e.elapsed.Seconds()))
	e.Context.Uniforms.Set("u_resolution", float32(e.Context.SurfaceWidth), float32(e.Context.SurfaceHeight))

	e.Registry.PrepareFrame()
	e.Registry.ExecutePrePasses(enc)

	enc.BeginPass("main", nil)
	enc.Draw(e.mainRoot, e.Context.Uniforms)
	enc.EndPass()

	e.Registry.ExecutePostPasses(enc)

	for _, fn := range e.afterFrame {
		fn()
	}
	e.afterFrame = e.afterFrame[:0]

	metrics.FramesRendered.Inc()
	e.Stats.Update()
	return nil
}

// AfterFrame runs fn once, after the post passes of the next frame and before
// the surface is presented.
func (e *Engine) AfterFrame(fn func()) {
	e.afterFrame = append(e.afterFrame, fn)
}

func (e *Engine) Resize(width, height int) {
	e.Context.UpdateSurfaceSize(width, height)
}

// ToggleFeature flips a feature. The pipelines go stale but are not rebuilt.
func (e *Engine) ToggleFeature(name string) (bool, error) {
	enabled, err := e.Registry.ToggleFeature(name)
	if err != nil {
		return false, err
	}
	e.featureChanged(name, enabled)
	return enabled, nil
}

func (e *Engine) SetFeatureEnabled(name string, enabled bool) error {
	f, ok := e.Registry.Feature(name)
	if !ok {
		return fmt.Errorf("%w: %s", features.ErrUnknownFeature, name)
	}
	if f.Enabled() == enabled {
		return nil
	}
	var err error
	if enabled {
		err = e.Registry.EnableFeature(name)
	} else {
		err = e.Registry.DisableFeature(name)
	}
	if err != nil {
		return err
	}
	e.featureChanged(name, enabled)
	return nil
}

func (e *Engine) featureChanged(name string, enabled bool) {
	metrics.FeatureToggles.WithLabelValues(name).Inc()
	e.updateFeatureStats()
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	e.logger.Info(fmt.Sprintf("feature %s %s", name, state))
	e.invoke(EventFeatureToggled, EventDataFeatureToggled{Event: EventFeatureToggled, Feature: name, Enabled: enabled})
}

func (e *Engine) updateFeatureStats() {
	enabled := e.Registry.EnabledCount()
	metrics.FeaturesEnabled.Set(float64(enabled))
	e.Stats.SetFeatures(enabled, e.Registry.TotalCount())
}

// RebuildPipeline recomposes every stale root. On failure the previous
// pipelines stay live and the error is returned.
func (e *Engine) RebuildPipeline() error {
	start := time.Now()
	err := e.Cache.Rebuild()
	if err != nil {
		e.Stats.PipelineFailed()
		e.invoke(EventPipelineFailed, EventDataPipelineFailed{Event: EventPipelineFailed, Error: err.Error()})
		return err
	}
	e.Stats.PipelineRebuilt()
	for _, hook := range e.rebuildHooks {
		hook()
	}
	e.invoke(EventPipelineRebuilt, EventDataPipelineRebuilt{
		Event:    EventPipelineRebuilt,
		Roots:    e.Cache.Roots(),
		Duration: time.Since(start).Seconds(),
	})
	return nil
}

// ReloadTemplate re-renders a file backed root template and hands it to the
// cache, which marks the root stale if it changed.
func (e *Engine) ReloadTemplate(root string) error {
	p, ok := e.pipelines[root]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrUnknownRoot, root)
	}
	tmpl, err := e.renderTemplate(p)
	if err != nil {
		metrics.CompositionFailures.WithLabelValues(root, metrics.FailureTemplate).Inc()
		return err
	}
	return e.Cache.SetTemplate(root, tmpl)
}

// RootsForTemplate maps a template path back to the roots using it.
func (e *Engine) RootsForTemplate(path string) []string {
	var roots []string
	for _, p := range e.cfg.Pipelines {
		if string(p.Template) == path {
			roots = append(roots, p.Name)
		}
	}
	return roots
}

type FeatureState struct {
	Name    string `json:"name" example:"basic_lighting"`
	Type    string `json:"type" example:"basic_lighting"`
	Enabled bool   `json:"enabled"`
}

func (e *Engine) FeatureStates() []FeatureState {
	types := make(map[string]string)
	for _, fc := range e.cfg.Features {
		types[fc.FeatureName()] = fc.Type
	}
	var states []FeatureState
	for _, f := range e.Registry.Features() {
		states = append(states, FeatureState{Name: f.Name(), Type: types[f.Name()], Enabled: f.Enabled()})
	}
	return states
}

func (e *Engine) RequestShutdown() {
	e.ShutdownRequested = true
}

// Stop destroys the pipelines and cleans up every feature. Pending and later
// Submit calls fail with ErrStopped.
func (e *Engine) Stop() {
	select {
	case <-e.stopped:
		return
	default:
	}
	close(e.stopped)
	e.Cache.Close()
	e.Registry.CleanupAll()
	e.started = false
	e.logger.Info("engine stopped")
}
