package builtin

import (
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
)

type Bloom struct {
	features.Base
	lang      features.Language
	intensity float32
	threshold float32
}

func NewBloom(name string, cfg *config.BloomCfg, lang features.Language) *Bloom {
	b := &Bloom{
		Base:      features.NewBase(name),
		lang:      lang,
		threshold: cfg.Threshold,
	}
	b.SetIntensity(cfg.Intensity)
	return b
}

func (b *Bloom) Init(ctx *features.Context) error {
	b.upload(ctx)
	return nil
}

func (b *Bloom) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("bloom", b.lang), 15),
		features.WithPriority(features.FragmentColorCalculation, "    final_color = apply_bloom(final_color);", 20),
	}
}

func (b *Bloom) PrepareFrame(ctx *features.Context) {
	b.upload(ctx)
}

func (b *Bloom) upload(ctx *features.Context) {
	ctx.Uniforms.Set("u_bloom_intensity", b.intensity)
	ctx.Uniforms.Set("u_bloom_threshold", b.threshold)
}

// SetIntensity clamps to [0, 1].
func (b *Bloom) SetIntensity(v float32) {
	b.intensity = min(max(v, 0), 1)
}

func (b *Bloom) Intensity() float32 {
	return b.intensity
}

func (b *Bloom) Cleanup(ctx *features.Context) {
}
