package builtin

import (
	"github.com/fosdem/lumen/lib/features"
)

// BaseGeometry stands for the fullscreen ground plane every base template
// draws. It injects nothing; keeping it in the registry makes the geometry
// show up in listings and lets other features look up its vertex count.
type BaseGeometry struct {
	features.Base
}

func NewBaseGeometry(name string) *BaseGeometry {
	return &BaseGeometry{Base: features.NewBase(name)}
}

func (g *BaseGeometry) Init(ctx *features.Context) error {
	featureLogger(g.Name()).Info("geometry ready", "surface_width", ctx.SurfaceWidth, "surface_height", ctx.SurfaceHeight)
	return nil
}

func (g *BaseGeometry) ShaderInjections() []features.ShaderInjection {
	return nil
}

func (g *BaseGeometry) Cleanup(ctx *features.Context) {
}

func (g *BaseGeometry) ExportData() map[string]any {
	return map[string]any{"vertex_count": 3}
}
