package builtin

import (
	"fmt"

	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/templates"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowMapping renders the shadow_depth pipeline into a square depth target
// from the light's point of view and samples it in the main pass.
type ShadowMapping struct {
	features.Base
	lang features.Language

	size      int
	direction mgl32.Vec3
	bias      float32

	target        features.Target
	lightViewProj mgl32.Mat4
	uniforms      *features.Uniforms
}

func NewShadowMapping(name string, cfg *config.ShadowMappingCfg, lang features.Language) *ShadowMapping {
	s := &ShadowMapping{
		Base:      features.NewBase(name),
		lang:      lang,
		size:      cfg.Size,
		direction: mgl32.Vec3{cfg.Direction[0], cfg.Direction[1], cfg.Direction[2]}.Normalize(),
		bias:      cfg.Bias,
		uniforms:  features.NewUniforms(),
	}
	s.lightViewProj = s.computeLightViewProj()
	return s
}

var shadowApply = perLang{
	wgsl: "    final_color = apply_shadow(final_color, input.world_position, normalize(input.world_normal));",
	glsl: "    final_color = apply_shadow(final_color, v_world_position, normalize(v_world_normal));",
}

func (s *ShadowMapping) Init(ctx *features.Context) error {
	if ctx.Device == nil {
		featureLogger(s.Name()).Warn("no device, shadow pass disabled")
		return nil
	}
	t, err := ctx.Device.CreateTarget(features.TargetDesc{
		Label:  "shadow_map",
		Width:  s.size,
		Height: s.size,
		Depth:  true,
	})
	if err != nil {
		return fmt.Errorf("could not create %dx%d shadow map: %w", s.size, s.size, err)
	}
	s.target = t
	return nil
}

func (s *ShadowMapping) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("shadow_functions", s.lang), 5),
		features.WithPriority(features.FragmentColorCalculation, shadowApply.in(s.lang), 10),
	}
}

// PrepareFrame follows the light exported by a lighting feature when there
// is one, so rotating the light moves the shadows too.
func (s *ShadowMapping) PrepareFrame(ctx *features.Context) {
	if ctx.Exports != nil {
		if d, ok := ctx.Exports.ExportedData("basic_lighting", "direction"); ok {
			if dir, ok := d.(mgl32.Vec3); ok && dir.Len() > 0 {
				s.direction = dir.Normalize()
			}
		}
	}
	s.lightViewProj = s.computeLightViewProj()

	m := s.lightViewProj
	s.uniforms.Set("u_light_view_proj", m[:]...)
	ctx.Uniforms.Set("u_light_view_proj", m[:]...)
	ctx.Uniforms.Set("u_shadow_bias", s.bias)
	if s.target != nil {
		ctx.Uniforms.SetTexture("u_shadow_map", s.target)
	}
}

func (s *ShadowMapping) PreRenderPass(enc features.Encoder, ctx *features.Context) {
	if s.target == nil {
		return
	}
	enc.BeginPass("shadow_pass", s.target)
	enc.Draw(templates.ShadowDepthRoot, s.uniforms)
	enc.EndPass()
}

func (s *ShadowMapping) computeLightViewProj() mgl32.Mat4 {
	lightPos := s.direction.Mul(-20)
	view := mgl32.LookAtV(lightPos, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	projection := mgl32.Ortho(-15, 15, -15, 15, 0.1, 50)
	return projection.Mul4(view)
}

func (s *ShadowMapping) LightViewProj() mgl32.Mat4 {
	return s.lightViewProj
}

func (s *ShadowMapping) Target() features.Target {
	return s.target
}

func (s *ShadowMapping) Cleanup(ctx *features.Context) {
	if s.target != nil && ctx.Device != nil {
		ctx.Device.DestroyTarget(s.target)
	}
	s.target = nil
}

func (s *ShadowMapping) ExportData() map[string]any {
	return map[string]any{
		"light_view_proj": s.lightViewProj,
		"size":            s.size,
	}
}
