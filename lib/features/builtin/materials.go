package builtin

import (
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/utils"
)

// MaterialProperties is what Materials exports under "properties".
type MaterialProperties struct {
	BaseColour [4]float32
	Roughness  float32
	Metallic   float32
}

type Materials struct {
	features.Base
	lang  features.Language
	props MaterialProperties
}

func NewMaterials(name string, cfg *config.MaterialsCfg, lang features.Language) *Materials {
	return &Materials{
		Base: features.NewBase(name),
		lang: lang,
		props: MaterialProperties{
			BaseColour: utils.ColourVec4(cfg.BaseColour),
			Roughness:  cfg.Roughness,
			Metallic:   cfg.Metallic,
		},
	}
}

var materialApply = perLang{
	wgsl: "    final_color = material_base_color(input.uv);",
	glsl: "    final_color = material_base_color(v_uv);",
}

func (m *Materials) Init(ctx *features.Context) error {
	m.upload(ctx)
	return nil
}

func (m *Materials) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("material_bindings", m.lang), -10),
		features.WithPriority(features.FragmentPreamble, fragment("material_functions", m.lang), -5),
		features.WithPriority(features.FragmentMain, materialApply.in(m.lang), -10),
	}
}

func (m *Materials) PrepareFrame(ctx *features.Context) {
	m.upload(ctx)
}

func (m *Materials) upload(ctx *features.Context) {
	c := m.props.BaseColour
	ctx.Uniforms.Set("u_base_color", c[0], c[1], c[2], c[3])
	ctx.Uniforms.Set("u_roughness", m.props.Roughness)
	ctx.Uniforms.Set("u_metallic", m.props.Metallic)
}

func (m *Materials) Cleanup(ctx *features.Context) {
}

func (m *Materials) Properties() MaterialProperties {
	return m.props
}

func (m *Materials) ExportData() map[string]any {
	return map[string]any{"properties": m.props}
}
