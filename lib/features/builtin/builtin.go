// Package builtin holds the stock features a lumen config can enable.
package builtin

import (
	"embed"
	"fmt"
	"log/slog"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
)

//go:embed shaders/*.wgsl shaders/*.glsl
var shaderDir embed.FS

// Types lists the feature types New understands, in the order a full
// config would usually declare them.
var Types = []string{
	"base_geometry",
	"basic_materials",
	"basic_lighting",
	"shadow_mapping",
	"bloom",
	"global_illumination",
	"billboards",
}

// New builds the feature described by cfg for the given shading language. The
// enabled flag is taken from cfg as well.
func New(cfg *config.FeatureCfg, lang features.Language) (features.Feature, error) {
	if err := lang.Validate(); err != nil {
		return nil, err
	}

	var f features.Feature
	name := cfg.FeatureName()
	switch fc := cfg.Cfg.(type) {
	case *config.BaseGeometryCfg:
		f = NewBaseGeometry(name)
	case *config.MaterialsCfg:
		f = NewMaterials(name, fc, lang)
	case *config.LightingCfg:
		f = NewLighting(name, fc, lang)
	case *config.ShadowMappingCfg:
		f = NewShadowMapping(name, fc, lang)
	case *config.BloomCfg:
		f = NewBloom(name, fc, lang)
	case *config.GlobalIlluminationCfg:
		f = NewGlobalIllumination(name, fc, lang)
	case *config.BillboardsCfg:
		f = NewBillboards(name, fc, lang)
	default:
		return nil, fmt.Errorf("unhandled feature type: %s", cfg.Type)
	}
	f.SetEnabled(cfg.IsEnabled())
	return f, nil
}

// FromConfig builds a registry holding every feature in cfg, in config order.
func FromConfig(cfg *config.Config) (*features.Registry, error) {
	lang := features.Language(cfg.Language)
	b := features.NewBuilder().
		DebugOutput(cfg.DebugOutput.Enabled).
		DebugOutputPath(cfg.DebugOutput.Path)
	for _, fc := range cfg.Features {
		f, err := New(fc, lang)
		if err != nil {
			return nil, err
		}
		b = b.WithFeature(f)
	}
	return b.Build()
}

func fragment(name string, lang features.Language) string {
	b, err := shaderDir.ReadFile("shaders/" + name + "." + string(lang))
	if err != nil {
		panic(fmt.Sprintf("missing shader fragment %s for %s", name, lang))
	}
	return string(b)
}

// perLang holds a statement spelled once per shading language, since the
// varyings are named differently in each base template.
type perLang struct {
	wgsl string
	glsl string
}

func (p perLang) in(lang features.Language) string {
	if lang == features.WGSL {
		return p.wgsl
	}
	return p.glsl
}

func featureLogger(name string) *slog.Logger {
	return slog.Default().With(slog.String("module", "features"), slog.String("feature", name))
}
