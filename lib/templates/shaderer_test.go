package templates

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/fosdem/lumen/lib/features"
)

func TestBaseTemplatesExposeEveryPoint(t *testing.T) {
	s, err := NewShaderer()
	if err != nil {
		t.Fatal(err)
	}
	for _, lang := range []features.Language{features.WGSL, features.GLSL} {
		for _, root := range []string{GeometryRoot, ShadowDepthRoot} {
			src, err := s.GetShaderSource(BaseName(lang), RootData(root, lang))
			if err != nil {
				t.Fatalf("%s/%s: %v", lang, root, err)
			}
			points, err := features.TemplateMarkers(src)
			if err != nil {
				t.Fatalf("%s/%s: %v", lang, root, err)
			}
			if len(points) != len(features.InjectionPoints()) {
				t.Errorf("%s/%s exposes %v", lang, root, points)
			}
		}
	}
}

func TestDepthOnlyVariant(t *testing.T) {
	s, err := NewShaderer()
	if err != nil {
		t.Fatal(err)
	}
	geometry, err := s.GetShaderSource("base.glsl", RootData(GeometryRoot, features.GLSL))
	if err != nil {
		t.Fatal(err)
	}
	depth, err := s.GetShaderSource("base.glsl", RootData(ShadowDepthRoot, features.GLSL))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(geometry, "frag_colour = final_color;") {
		t.Error("geometry variant does not output final_color")
	}
	if !strings.Contains(depth, "gl_FragCoord.z") {
		t.Error("depth variant does not output depth")
	}
	if strings.Contains(geometry, "{{") || strings.Contains(depth, "{{") {
		t.Error("template actions left in output")
	}
}

func TestTemplateNames(t *testing.T) {
	s, err := NewShaderer()
	if err != nil {
		t.Fatal(err)
	}
	names := s.TemplateNames()
	for _, want := range []string{"base.wgsl", "base.glsl"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing template %s in %v", want, names)
		}
	}
}

func TestLoadShaderer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.glsl")
	err := os.WriteFile(path, []byte("// {{ .Root }}\n// INJECT_FRAGMENTMAIN\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	s, err := LoadShaderer(path)
	if err != nil {
		t.Fatal(err)
	}
	src, err := s.GetShaderSource(TemplateName(path), RootData("custom", features.GLSL))
	if err != nil {
		t.Fatal(err)
	}
	if src != "// custom\n// INJECT_FRAGMENTMAIN\n" {
		t.Errorf("got %q", src)
	}
}
