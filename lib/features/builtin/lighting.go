package builtin

import (
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Lighting is a single directional light. The intensity can pulse between
// two values and the direction can spin around the Y axis.
type Lighting struct {
	features.Base
	lang features.Language

	direction     mgl32.Vec3
	intensity     float32
	rotationSpeed float32
	angle         float32

	pulse        *gween.Tween
	pulseFrom    float32
	pulseTo      float32
	pulseSeconds float32
}

func NewLighting(name string, cfg *config.LightingCfg, lang features.Language) *Lighting {
	l := &Lighting{
		Base:          features.NewBase(name),
		lang:          lang,
		direction:     mgl32.Vec3{cfg.Direction[0], cfg.Direction[1], cfg.Direction[2]}.Normalize(),
		intensity:     cfg.Intensity,
		rotationSpeed: cfg.RotationSpeed,
		pulseFrom:     cfg.Intensity,
		pulseTo:       cfg.PulseTo,
		pulseSeconds:  cfg.PulseSeconds,
	}
	if l.pulseSeconds > 0 {
		l.pulse = gween.New(l.pulseFrom, l.pulseTo, l.pulseSeconds, ease.InOutSine)
	}
	return l
}

var lightingApply = perLang{
	wgsl: "    final_color = apply_basic_lighting(normalize(input.world_normal), final_color);",
	glsl: "    final_color = apply_basic_lighting(normalize(v_world_normal), final_color);",
}

func (l *Lighting) Init(ctx *features.Context) error {
	l.upload(ctx)
	return nil
}

func (l *Lighting) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("lighting_functions", l.lang), 0),
		features.WithPriority(features.FragmentColorCalculation, lightingApply.in(l.lang), 0),
	}
}

func (l *Lighting) PrepareFrame(ctx *features.Context) {
	dt := float32(ctx.DeltaTime.Seconds())

	if l.pulse != nil {
		val, finished := l.pulse.Update(dt)
		l.intensity = val
		if finished {
			l.pulseFrom, l.pulseTo = l.pulseTo, l.pulseFrom
			l.pulse = gween.New(l.pulseFrom, l.pulseTo, l.pulseSeconds, ease.InOutSine)
		}
	}
	if l.rotationSpeed != 0 {
		l.angle += l.rotationSpeed * dt
	}

	l.upload(ctx)
}

func (l *Lighting) upload(ctx *features.Context) {
	d := l.Direction()
	ctx.Uniforms.Set("u_light_direction", d[0], d[1], d[2])
	ctx.Uniforms.Set("u_light_intensity", l.intensity)
	ctx.Uniforms.Set("u_light_specular", 0.25)
}

// Direction is the current light direction, rotation included.
func (l *Lighting) Direction() mgl32.Vec3 {
	if l.angle == 0 {
		return l.direction
	}
	return mgl32.Rotate3DY(l.angle).Mul3x1(l.direction)
}

func (l *Lighting) Intensity() float32 {
	return l.intensity
}

// ScaleIntensity multiplies the intensity, and both pulse bounds when pulsing.
func (l *Lighting) ScaleIntensity(factor float32) {
	l.intensity *= factor
	if l.pulse == nil {
		return
	}
	l.pulseFrom *= factor
	l.pulseTo *= factor
	l.pulse = gween.New(l.intensity, l.pulseTo, l.pulseSeconds, ease.InOutSine)
}

func (l *Lighting) Cleanup(ctx *features.Context) {
}

func (l *Lighting) ExportData() map[string]any {
	return map[string]any{
		"direction": l.Direction(),
		"intensity": l.intensity,
	}
}
