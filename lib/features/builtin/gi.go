package builtin

import (
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/utils"
)

// GlobalIllumination adds hemisphere ambient light. Metallic surfaces take
// less of it, when a materials feature exports its properties.
type GlobalIllumination struct {
	features.Base
	lang features.Language

	sky      [4]float32
	ground   [4]float32
	strength float32
}

func NewGlobalIllumination(name string, cfg *config.GlobalIlluminationCfg, lang features.Language) *GlobalIllumination {
	return &GlobalIllumination{
		Base:     features.NewBase(name),
		lang:     lang,
		sky:      utils.ColourVec4(cfg.SkyColour),
		ground:   utils.ColourVec4(cfg.GroundColour),
		strength: cfg.Strength,
	}
}

var giApply = perLang{
	wgsl: "    final_color = apply_global_illumination(normalize(input.world_normal), final_color);",
	glsl: "    final_color = apply_global_illumination(normalize(v_world_normal), final_color);",
}

func (g *GlobalIllumination) Init(ctx *features.Context) error {
	g.upload(ctx, g.strength)
	return nil
}

func (g *GlobalIllumination) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("gi_uniforms", g.lang), -20),
		features.WithPriority(features.FragmentPreamble, fragment("gi_irradiance", g.lang), -15),
		features.WithPriority(features.FragmentPreamble, fragment("gi_apply", g.lang), -10),
		features.WithPriority(features.FragmentColorCalculation, giApply.in(g.lang), 100),
	}
}

func (g *GlobalIllumination) PrepareFrame(ctx *features.Context) {
	g.upload(ctx, g.EffectiveStrength(ctx.Exports))
}

// EffectiveStrength scales the configured strength by the exported material
// properties, if any.
func (g *GlobalIllumination) EffectiveStrength(exports features.ExportLookup) float32 {
	if exports == nil {
		return g.strength
	}
	v, ok := exports.ExportedData("basic_materials", "properties")
	if !ok {
		return g.strength
	}
	props, ok := v.(MaterialProperties)
	if !ok {
		return g.strength
	}
	return g.strength * (1 - 0.5*props.Metallic)
}

func (g *GlobalIllumination) upload(ctx *features.Context, strength float32) {
	ctx.Uniforms.Set("u_gi_sky_color", g.sky[:]...)
	ctx.Uniforms.Set("u_gi_ground_color", g.ground[:]...)
	ctx.Uniforms.Set("u_gi_strength", strength)
}

func (g *GlobalIllumination) Cleanup(ctx *features.Context) {
}
