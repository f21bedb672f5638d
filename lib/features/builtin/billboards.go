package builtin

import (
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/utils"
)

// Billboards draws flat discs on the ground plane at configured positions.
type Billboards struct {
	features.Base
	lang features.Language

	items  []float32
	colors []float32
	count  int
}

func NewBillboards(name string, cfg *config.BillboardsCfg, lang features.Language) *Billboards {
	b := &Billboards{
		Base:   features.NewBase(name),
		lang:   lang,
		items:  make([]float32, 4*config.MaxBillboards),
		colors: make([]float32, 4*config.MaxBillboards),
		count:  len(cfg.Billboards),
	}
	for i, bb := range cfg.Billboards {
		copy(b.items[4*i:], bb.Position)
		b.items[4*i+3] = bb.Size

		colour := bb.Colour
		if colour == "" {
			colour = "#ffffffff"
		}
		c := utils.ColourVec4(colour)
		copy(b.colors[4*i:], c[:])
	}
	return b
}

var billboardApply = perLang{
	wgsl: "    final_color = draw_billboards(final_color, input.world_position);",
	glsl: "    final_color = draw_billboards(final_color, v_world_position);",
}

func (b *Billboards) Init(ctx *features.Context) error {
	b.upload(ctx)
	return nil
}

func (b *Billboards) ShaderInjections() []features.ShaderInjection {
	return []features.ShaderInjection{
		features.WithPriority(features.FragmentPreamble, fragment("billboard", b.lang), 50),
		features.WithPriority(features.FragmentPostProcess, billboardApply.in(b.lang), 50),
	}
}

func (b *Billboards) PrepareFrame(ctx *features.Context) {
	b.upload(ctx)
}

func (b *Billboards) upload(ctx *features.Context) {
	ctx.Uniforms.Set("u_billboards", b.items...)
	ctx.Uniforms.Set("u_billboard_colors", b.colors...)
	ctx.Uniforms.Set("u_billboard_count", float32(b.count))
}

func (b *Billboards) Count() int {
	return b.count
}

func (b *Billboards) Cleanup(ctx *features.Context) {
}
