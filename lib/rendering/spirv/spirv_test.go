package spirv

import (
	"strings"
	"testing"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/features/builtin"
	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/fosdem/lumen/lib/templates"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(i) - 1);
    let y = f32(i32(i & 1u) * 2 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func skipUnsupported(t *testing.T, err error) {
	t.Helper()
	s := err.Error()
	if strings.Contains(s, "not yet implemented") || strings.Contains(s, "not supported") {
		t.Skipf("Skipping: naga feature not yet implemented: %v", err)
	}
}

func TestCompile(t *testing.T) {
	words, err := Compile(triangleWGSL)
	if err != nil {
		skipUnsupported(t, err)
		t.Fatalf("failed to compile: %v", err)
	}
	if len(words) == 0 || words[0] != Magic {
		t.Fatalf("bad module header: %v", words[:min(len(words), 1)])
	}
}

func TestCompileRejectsGarbage(t *testing.T) {
	if _, err := Compile("fn {"); err == nil {
		t.Error("expected an error")
	}
}

func TestBackendBuildsComposedRoots(t *testing.T) {
	cfg, err := config.Decode(strings.NewReader("language: wgsl\nfeatures:\n  - type: basic_materials\n  - type: basic_lighting\n  - type: bloom\n"))
	if err != nil {
		t.Fatal(err)
	}
	r, err := builtin.FromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := templates.NewShaderer()
	if err != nil {
		t.Fatal(err)
	}
	base, err := s.GetShaderSource(templates.BaseName(features.WGSL), templates.RootData(templates.GeometryRoot, features.WGSL))
	if err != nil {
		t.Fatal(err)
	}

	c := pipeline.New(r, NewBackend())
	if err := c.AddRoot(templates.GeometryRoot, base); err != nil {
		t.Fatal(err)
	}
	if err := c.Rebuild(); err != nil {
		// the composition itself is covered elsewhere; only the compiler
		// may lack support for what the features use
		t.Skipf("Skipping: compiler rejected composed shader: %v", err)
	}
	p, ok := c.Pipeline(templates.GeometryRoot)
	if !ok {
		t.Fatal("no pipeline")
	}
	if m := p.(*Module); m.Words[0] != Magic {
		t.Errorf("bad module header %x", m.Words[0])
	}
}
