package templates

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/fosdem/lumen/lib/features"
)

//go:embed *.wgsl *.glsl
var templateDir embed.FS

const (
	GeometryRoot    = "geometry"
	ShadowDepthRoot = "shadow_depth"
)

type Shaderer struct {
	templates *template.Template
}

// NewShaderer loads the embedded base templates.
func NewShaderer() (*Shaderer, error) {
	s := &Shaderer{}

	var err error

	s.templates, err = template.ParseFS(templateDir, "*.wgsl", "*.glsl")

	return s, err
}

// LoadShaderer parses base templates from disk. Each template is named after
// its file's base name.
func LoadShaderer(paths ...string) (*Shaderer, error) {
	t, err := template.ParseFiles(paths...)
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %w", err)
	}
	return &Shaderer{templates: t}, nil
}

// ShaderData contains stuff that gets passed to the base templates
type ShaderData struct {
	Root      string
	Language  features.Language
	DepthOnly bool
}

func (s *Shaderer) GetShaderSource(name string, data *ShaderData) (string, error) {
	var b bytes.Buffer
	err := s.templates.ExecuteTemplate(&b, name, data)
	if err != nil {
		return "", fmt.Errorf("error while rendering template: %s", err)
	}

	return b.String(), nil
}

func (s *Shaderer) TemplateNames() []string {
	var names []string
	for _, t := range s.templates.Templates() {
		names = append(names, t.Name())
	}
	return names
}

// BaseName is the embedded template name for a language, e.g. "base.glsl".
func BaseName(lang features.Language) string {
	return "base." + string(lang)
}

// TemplateName maps a template path to the name LoadShaderer registers it under.
func TemplateName(path string) string {
	return filepath.Base(path)
}

// RootData returns the template data for one of the builtin pipeline roots.
func RootData(root string, lang features.Language) *ShaderData {
	return &ShaderData{
		Root:      root,
		Language:  lang,
		DepthOnly: root == ShadowDepthRoot,
	}
}
