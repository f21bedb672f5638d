package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/pipeline"
)

const engineConfig = `
language: glsl
pipelines:
  - name: geometry
  - name: shadow_depth
features:
  - type: base_geometry
  - type: basic_materials
  - type: basic_lighting
  - type: shadow_mapping
  - type: bloom
    enabled: false
`

type fakePipeline struct {
	root   string
	source string
}

func (p *fakePipeline) Root() string {
	return p.root
}

type fakeBackend struct {
	fail      bool
	created   int
	destroyed int
}

func (b *fakeBackend) CreatePipeline(root, source string) (pipeline.Pipeline, error) {
	if b.fail {
		return nil, errors.New("link failed")
	}
	b.created++
	return &fakePipeline{root: root, source: source}, nil
}

func (b *fakeBackend) DestroyPipeline(p pipeline.Pipeline) {
	b.destroyed++
}

type recordingEncoder struct {
	calls []string
}

func (r *recordingEncoder) BeginPass(label string, target features.Target) {
	r.calls = append(r.calls, "begin:"+label)
}

func (r *recordingEncoder) Draw(root string, uniforms *features.Uniforms) {
	r.calls = append(r.calls, "draw:"+root)
}

func (r *recordingEncoder) EndPass() {
	r.calls = append(r.calls, "end")
}

func newEngine(t *testing.T) (*Engine, *fakeBackend) {
	t.Helper()
	cfg, err := config.Decode(strings.NewReader(engineConfig))
	if err != nil {
		t.Fatal(err)
	}
	b := &fakeBackend{}
	e, err := New(cfg, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)
	return e, b
}

func started(t *testing.T) (*Engine, *fakeBackend) {
	t.Helper()
	e, b := newEngine(t)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	return e, b
}

func TestStartBuildsEveryRoot(t *testing.T) {
	e, b := newEngine(t)
	hooks := 0
	e.OnRebuild(func() { hooks++ })
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if b.created != 2 {
		t.Errorf("created %d pipelines, want 2", b.created)
	}
	if hooks != 1 {
		t.Errorf("rebuild hook ran %d times", hooks)
	}
	if e.MainRoot() != "geometry" {
		t.Errorf("main root = %s", e.MainRoot())
	}
	src, ok := e.Cache.Source("geometry")
	if !ok {
		t.Fatal("no source for geometry")
	}
	if !strings.Contains(src, "apply_basic_lighting") {
		t.Error("lighting missing from composed source")
	}
	if strings.Contains(src, "apply_bloom") {
		t.Error("disabled bloom was composed")
	}
}

func TestFrameBeforeStart(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Frame(&recordingEncoder{}, time.Millisecond); !errors.Is(err, ErrNotStarted) {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
}

func TestToggleNeedsExplicitRebuild(t *testing.T) {
	e, b := started(t)

	enabled, err := e.ToggleFeature("bloom")
	if err != nil {
		t.Fatal(err)
	}
	if !enabled {
		t.Fatal("bloom should now be enabled")
	}
	if !e.Cache.Stale() {
		t.Fatal("cache should be stale after a toggle")
	}
	src, _ := e.Cache.Source("geometry")
	if strings.Contains(src, "apply_bloom") {
		t.Fatal("toggle rebuilt the pipeline")
	}

	if err := e.RebuildPipeline(); err != nil {
		t.Fatal(err)
	}
	src, _ = e.Cache.Source("geometry")
	if !strings.Contains(src, "apply_bloom") {
		t.Error("bloom missing after rebuild")
	}
	if b.destroyed == 0 {
		t.Error("old pipelines were not destroyed")
	}
}

func TestSetFeatureEnabled(t *testing.T) {
	e, _ := started(t)
	gen := e.Registry.Generation()
	if err := e.SetFeatureEnabled("basic_lighting", true); err != nil {
		t.Fatal(err)
	}
	if e.Registry.Generation() != gen {
		t.Error("setting the current state changed the generation")
	}
	if err := e.SetFeatureEnabled("basic_lighting", false); err != nil {
		t.Fatal(err)
	}
	if e.Registry.Generation() == gen {
		t.Error("disabling did not change the generation")
	}
	if err := e.SetFeatureEnabled("nope", true); !errors.Is(err, features.ErrUnknownFeature) {
		t.Errorf("err = %v, want ErrUnknownFeature", err)
	}
}

func TestFrameRunsMainPass(t *testing.T) {
	e, _ := started(t)
	enc := &recordingEncoder{}
	if err := e.Frame(enc, 16*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(enc.calls, ",")
	// the shadow pass is skipped without a device
	if got != "begin:main,draw:geometry,end" {
		t.Errorf("calls = %s", got)
	}
	if e.Context.FrameIndex != 1 {
		t.Errorf("frame index = %d", e.Context.FrameIndex)
	}
	if _, ok := e.Context.Uniforms.Get("u_time"); !ok {
		t.Error("u_time not set")
	}
}

func TestAutoRebuild(t *testing.T) {
	e, _ := started(t)
	e.cfg.AutoRebuild = true
	if _, err := e.ToggleFeature("bloom"); err != nil {
		t.Fatal(err)
	}
	if err := e.Frame(&recordingEncoder{}, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if e.Cache.Stale() {
		t.Error("frame did not rebuild")
	}
}

func TestFailedRebuildKeepsPipelines(t *testing.T) {
	e, b := started(t)
	failed := make(chan EventDataPipelineFailed, 1)
	e.AddEventListener(EventPipelineFailed, func(e *Engine, data interface{}) {
		failed <- data.(EventDataPipelineFailed)
	})

	before, _ := e.Cache.Pipeline("geometry")
	b.fail = true
	if _, err := e.ToggleFeature("bloom"); err != nil {
		t.Fatal(err)
	}
	if err := e.RebuildPipeline(); err == nil {
		t.Fatal("rebuild should fail")
	}
	after, _ := e.Cache.Pipeline("geometry")
	if before != after {
		t.Error("live pipeline was replaced by a failed rebuild")
	}

	select {
	case ev := <-failed:
		if !strings.Contains(ev.Error, "link failed") {
			t.Errorf("event error = %s", ev.Error)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event")
	}
}

func TestToggleEvent(t *testing.T) {
	e, _ := started(t)
	toggled := make(chan EventDataFeatureToggled, 1)
	e.AddEventListener(EventFeatureToggled, func(e *Engine, data interface{}) {
		toggled <- data.(EventDataFeatureToggled)
	})
	if _, err := e.ToggleFeature("basic_lighting"); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-toggled:
		if ev.Feature != "basic_lighting" || ev.Enabled {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no toggle event")
	}
}

func TestSubmitRunsOnLoop(t *testing.T) {
	e, _ := started(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	var enabled bool
	err := e.Submit(ctx, func(e *Engine) error {
		var err error
		enabled, err = e.ToggleFeature("bloom")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if !enabled {
		t.Error("bloom should be enabled")
	}

	err = e.Submit(ctx, func(e *Engine) error {
		e.RequestShutdown()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestSubmitAfterStop(t *testing.T) {
	e, b := started(t)
	e.Stop()
	if b.destroyed != 2 {
		t.Errorf("destroyed %d pipelines on stop", b.destroyed)
	}
	err := e.Submit(context.Background(), func(e *Engine) error { return nil })
	if !errors.Is(err, ErrStopped) {
		t.Errorf("err = %v, want ErrStopped", err)
	}
}

func TestFeatureStates(t *testing.T) {
	e, _ := started(t)
	states := e.FeatureStates()
	if len(states) != 5 {
		t.Fatalf("got %d states", len(states))
	}
	if states[4].Name != "bloom" || states[4].Type != "bloom" || states[4].Enabled {
		t.Errorf("bloom state = %+v", states[4])
	}
}

func TestAfterFrameRunsOnce(t *testing.T) {
	e, _ := started(t)
	enc := &recordingEncoder{}
	runs := 0
	e.AfterFrame(func() {
		runs++
		enc.calls = append(enc.calls, "after")
	})
	for range 2 {
		if err := e.Frame(enc, time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	if runs != 1 {
		t.Errorf("ran %d times", runs)
	}
	if enc.calls[3] != "after" {
		t.Errorf("calls = %v", enc.calls)
	}
}
