package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/utils"
	yaml "github.com/goccy/go-yaml"
)

type Config struct {
	Language         string
	Window           *WindowCfg
	Pipelines        []*PipelineCfg
	Features         []*FeatureCfg
	DebugOutput      *DebugOutputCfg `yaml:"debug_output"`
	AutoRebuild      bool            `yaml:"auto_rebuild"`
	WatchTemplates   bool            `yaml:"watch_templates"`
	BackgroundColour string          `yaml:"background_colour"`
	Api              *ApiCfg
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			_ = fmt.Errorf("could not close %s: %s", filename, err)
		}
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	return Decode(f)
}

// Decode reads a config from r, fills in defaults and validates it. Relative
// paths resolve against UnmarshalBase.
func Decode(r io.Reader) (*Config, error) {
	m := yaml.NewDecoder(r)
	cfg := &Config{}
	err := m.Decode(cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, err
}

func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = string(features.GLSL)
	}
	if c.Window == nil {
		c.Window = &WindowCfg{}
	}
	if c.Window.Title == "" {
		c.Window.Title = "lumen"
	}
	if c.Window.Width == 0 {
		c.Window.Width = 1280
	}
	if c.Window.Height == 0 {
		c.Window.Height = 720
	}
	if len(c.Pipelines) == 0 {
		c.Pipelines = []*PipelineCfg{{Name: "geometry"}, {Name: "shadow_depth"}}
	}
	if c.DebugOutput == nil {
		c.DebugOutput = &DebugOutputCfg{}
	}
	if c.DebugOutput.Path == "" {
		c.DebugOutput.Path = features.DebugOutputPathFor(features.Language(c.Language))
	}
	if c.BackgroundColour == "" {
		c.BackgroundColour = "#101018ff"
	}
}

func (c *Config) Validate() error {
	var err error
	if err = features.Language(c.Language).Validate(); err != nil {
		return err
	}
	if len(c.Features) < 1 {
		return fmt.Errorf("at least one feature should be defined")
	}
	if c.Window.Width < 1 || c.Window.Height < 1 {
		return fmt.Errorf("window size %dx%d is invalid", c.Window.Width, c.Window.Height)
	}

	pipelines := make(map[string]bool)
	for i, p := range c.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("pipeline %d has no name", i)
		}
		if pipelines[p.Name] {
			return fmt.Errorf("pipeline %s is defined twice", p.Name)
		}
		pipelines[p.Name] = true
	}
	if c.WatchTemplates && len(c.TemplatePaths()) == 0 {
		return fmt.Errorf("watch_templates needs at least one pipeline with a template path")
	}

	names := make(map[string]bool)
	for i, f := range c.Features {
		err = f.Validate()
		if err != nil {
			return fmt.Errorf("feature %d (%s) is invalid: %w", i, f.FeatureName(), err)
		}
		if names[f.FeatureName()] {
			return fmt.Errorf("feature name %s is used twice", f.FeatureName())
		}
		names[f.FeatureName()] = true
	}

	if !utils.ColourValidate(c.BackgroundColour) {
		return fmt.Errorf("%s is not a valid RGBA hex colour", c.BackgroundColour)
	}
	if c.Api != nil && c.Api.Bind == "" {
		return fmt.Errorf("api needs a bind address")
	}
	return nil
}

// TemplatePaths returns the template files referenced by pipelines.
func (c *Config) TemplatePaths() []string {
	var paths []string
	for _, p := range c.Pipelines {
		if p.Template != "" {
			paths = append(paths, string(p.Template))
		}
	}
	return paths
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Language: %s\n", c.Language))

	b.WriteString("\nPipelines:\n")
	for _, p := range c.Pipelines {
		if p.Template == "" {
			b.WriteString(fmt.Sprintf("  %s (builtin template)\n", p.Name))
		} else {
			b.WriteString(fmt.Sprintf("  %s (%s)\n", p.Name, p.Template))
		}
	}

	b.WriteString("\nFeatures:\n")
	for _, f := range c.Features {
		state := "enabled"
		if !f.IsEnabled() {
			state = "disabled"
		}
		b.WriteString(fmt.Sprintf("  %s (%s, %s)\n", f.FeatureName(), f.Type, state))
	}

	return b.String()
}

type WindowCfg struct {
	Title  string
	Width  int
	Height int
}

type PipelineCfg struct {
	Name     string
	Template CfgPath
}

type DebugOutputCfg struct {
	Enabled bool
	Path    string
}

type ApiCfg struct {
	Bind           string
	EnableProfiler bool `yaml:"enable_profiler"`
}

type Valid interface {
	Validate() error
}

type FeatureCfgStub struct {
	Type    string
	Name    string
	Enabled *bool
}

type FeatureCfg struct {
	FeatureCfgStub
	Cfg Valid
}

// FeatureName is the registry name: the configured name, or the type.
func (f *FeatureCfg) FeatureName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Type
}

func (f *FeatureCfg) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

type BaseGeometryCfg struct {
}

type MaterialsCfg struct {
	BaseColour string `yaml:"base_colour"`
	Roughness  float32
	Metallic   float32
}

type LightingCfg struct {
	Direction []float32
	Intensity float32
	// PulseTo and PulseSeconds animate the intensity back and forth.
	PulseTo       float32 `yaml:"pulse_to"`
	PulseSeconds  float32 `yaml:"pulse_seconds"`
	RotationSpeed float32 `yaml:"rotation_speed"`
}

type ShadowMappingCfg struct {
	Size      int
	Direction []float32
	Bias      float32
}

type BloomCfg struct {
	Intensity float32
	Threshold float32
}

type GlobalIlluminationCfg struct {
	SkyColour    string `yaml:"sky_colour"`
	GroundColour string `yaml:"ground_colour"`
	Strength     float32
}

type BillboardCfg struct {
	Position []float32
	Size     float32
	Colour   string
}

type BillboardsCfg struct {
	Billboards []BillboardCfg
}

func (f *FeatureCfg) UnmarshalYAML(b []byte) error {
	err := yaml.Unmarshal(b, &f.FeatureCfgStub)
	if err != nil {
		return err
	}

	switch f.Type {
	case "base_geometry":
		cfg := BaseGeometryCfg{}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "basic_materials":
		cfg := MaterialsCfg{BaseColour: "#ccccccff", Roughness: 0.5}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "basic_lighting":
		cfg := LightingCfg{Direction: []float32{0.5, -1.0, 0.3}, Intensity: 1.0}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "shadow_mapping":
		cfg := ShadowMappingCfg{Size: 2048, Direction: []float32{0.5, -1.0, 0.3}, Bias: 0.005}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "bloom":
		cfg := BloomCfg{Intensity: 0.3, Threshold: 1.0}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "global_illumination":
		cfg := GlobalIlluminationCfg{SkyColour: "#8cb4ffff", GroundColour: "#4d3f33ff", Strength: 0.3}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "billboards":
		cfg := BillboardsCfg{}
		f.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	default:
		return fmt.Errorf("unknown feature type: %s", f.Type)
	}
}

func (f *FeatureCfg) Validate() error {
	if f.Cfg == nil {
		return fmt.Errorf("feature type must be specified")
	}
	return f.Cfg.Validate()
}

func (s *BaseGeometryCfg) Validate() error {
	return nil
}

func (s *MaterialsCfg) Validate() error {
	if !utils.ColourValidate(s.BaseColour) {
		return fmt.Errorf("%s is not a valid RGBA hex colour", s.BaseColour)
	}
	if s.Roughness < 0 || s.Roughness > 1 {
		return fmt.Errorf("roughness must be between 0 and 1")
	}
	if s.Metallic < 0 || s.Metallic > 1 {
		return fmt.Errorf("metallic must be between 0 and 1")
	}
	return nil
}

func (s *LightingCfg) Validate() error {
	if err := validateDirection(s.Direction); err != nil {
		return err
	}
	if s.Intensity < 0 {
		return fmt.Errorf("intensity must be nonnegative")
	}
	if s.PulseSeconds < 0 {
		return fmt.Errorf("pulse_seconds must be nonnegative")
	}
	if s.PulseSeconds > 0 && s.PulseTo < 0 {
		return fmt.Errorf("pulse_to must be nonnegative")
	}
	return nil
}

func (s *ShadowMappingCfg) Validate() error {
	if s.Size < 1 || s.Size&(s.Size-1) != 0 {
		return fmt.Errorf("shadow map size %d must be a power of two", s.Size)
	}
	return validateDirection(s.Direction)
}

func (s *BloomCfg) Validate() error {
	if s.Threshold <= 0 {
		return fmt.Errorf("bloom threshold must be positive")
	}
	return nil
}

func (s *GlobalIlluminationCfg) Validate() error {
	for _, c := range []string{s.SkyColour, s.GroundColour} {
		if !utils.ColourValidate(c) {
			return fmt.Errorf("%s is not a valid RGBA hex colour", c)
		}
	}
	if s.Strength < 0 {
		return fmt.Errorf("strength must be nonnegative")
	}
	return nil
}

func (s *BillboardsCfg) Validate() error {
	if len(s.Billboards) > MaxBillboards {
		return fmt.Errorf("at most %d billboards are supported", MaxBillboards)
	}
	for i, b := range s.Billboards {
		if len(b.Position) != 3 {
			return fmt.Errorf("billboard %d needs a 3 component position", i)
		}
		if b.Size <= 0 {
			return fmt.Errorf("billboard %d needs a positive size", i)
		}
		if b.Colour != "" && !utils.ColourValidate(b.Colour) {
			return fmt.Errorf("%s is not a valid RGBA hex colour", b.Colour)
		}
	}
	return nil
}

// MaxBillboards bounds the uniform array the billboard fragment declares.
const MaxBillboards = 8

func validateDirection(d []float32) error {
	if len(d) != 3 {
		return fmt.Errorf("direction needs 3 components, got %d", len(d))
	}
	if d[0] == 0 && d[1] == 0 && d[2] == 0 {
		return fmt.Errorf("direction must not be zero")
	}
	return nil
}
