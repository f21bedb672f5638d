package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/engine"
	"github.com/fosdem/lumen/lib/pipeline"
)

const template = `#ifdef VERTEX_SHADER
// INJECT_VERTEXPREAMBLE
void main() {}
#endif
#ifdef FRAGMENT_SHADER
// INJECT_FRAGMENTPREAMBLE
void main() {
    // INJECT_FRAGMENTMAIN
    // INJECT_FRAGMENTCOLORCALCULATION
    // INJECT_FRAGMENTPOSTPROCESS
}
#endif
`

type fakePipeline struct{ root string }

func (p *fakePipeline) Root() string { return p.root }

type fakeBackend struct{}

func (fakeBackend) CreatePipeline(root, source string) (pipeline.Pipeline, error) {
	return &fakePipeline{root: root}, nil
}

func (fakeBackend) DestroyPipeline(pipeline.Pipeline) {}

func TestReloadMarksRootStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.glsl")
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Decode(strings.NewReader(fmt.Sprintf(`
language: glsl
watch_templates: true
pipelines:
  - name: geometry
    template: %s
features:
  - type: base_geometry
`, path)))
	if err != nil {
		t.Fatal(err)
	}

	e, err := engine.New(cfg, fakeBackend{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-runDone
		e.Stop()
	})

	w, err := New(e, cfg.TemplatePaths())
	if err != nil {
		t.Fatal(err)
	}
	go w.Run(ctx)

	changed := template + "// edited\n"
	if err := os.WriteFile(path, []byte(changed), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var stale bool
		var tmpl string
		err := e.Submit(ctx, func(e *engine.Engine) error {
			stale = e.Cache.Stale()
			tmpl, _ = e.Cache.Template("geometry")
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatal(err)
		}
		if stale && strings.HasSuffix(tmpl, "// edited\n") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("template change was not picked up")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewRejectsMissingFile(t *testing.T) {
	if _, err := New(nil, []string{filepath.Join(t.TempDir(), "missing.glsl")}); err == nil {
		t.Error("expected an error")
	}
}
