package features

import (
	"fmt"
	"time"
)

// Feature is a toggleable rendering capability. A feature contributes shader
// code through ShaderInjections and owns whatever GPU resources it creates in
// Init until Cleanup.
type Feature interface {
	Name() string
	Init(ctx *Context) error
	Enabled() bool
	SetEnabled(enabled bool)
	// ShaderInjections must be a pure function of the feature's current
	// configuration; it is called on every composition.
	ShaderInjections() []ShaderInjection
	Cleanup(ctx *Context)
}

// FramePreparer is implemented by features that update per-frame state.
type FramePreparer interface {
	PrepareFrame(ctx *Context)
}

// PrePasser is implemented by features that render before the main pass,
// e.g. into a shadow map.
type PrePasser interface {
	PreRenderPass(enc Encoder, ctx *Context)
}

// PostPasser is implemented by features that render after the main pass.
type PostPasser interface {
	PostRenderPass(enc Encoder, ctx *Context)
}

// Exporter is implemented by features that share data with other features.
type Exporter interface {
	ExportData() map[string]any
}

// Base carries the name and enabled flag every feature needs. Embed it.
type Base struct {
	name    string
	enabled bool
}

func NewBase(name string) Base {
	return Base{name: name, enabled: true}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Enabled() bool {
	return b.enabled
}

func (b *Base) SetEnabled(enabled bool) {
	b.enabled = enabled
}

type Language string

const (
	WGSL Language = "wgsl"
	GLSL Language = "glsl"
)

func (l Language) Validate() error {
	switch l {
	case WGSL, GLSL:
		return nil
	default:
		return fmt.Errorf("unsupported shading language %q", string(l))
	}
}

// Target is a GPU render target created through a Device.
type Target interface {
	Label() string
	Size() (width, height int)
}

type TargetDesc struct {
	Label  string
	Width  int
	Height int
	Depth  bool
}

// Device allocates GPU resources on behalf of features.
type Device interface {
	CreateTarget(desc TargetDesc) (Target, error)
	DestroyTarget(t Target)
}

// Encoder records render passes. A nil target selects the default
// framebuffer. Draw renders the fullscreen geometry with the pipeline composed
// for the named root.
type Encoder interface {
	BeginPass(label string, target Target)
	Draw(root string, uniforms *Uniforms)
	EndPass()
}

// ExportLookup resolves data exported by another feature.
type ExportLookup interface {
	ExportedData(feature, key string) (any, bool)
}

// Context is handed to features during init, per-frame hooks and cleanup.
type Context struct {
	Language Language
	Device   Device

	SurfaceWidth  int
	SurfaceHeight int

	FrameIndex uint64
	DeltaTime  time.Duration

	// Uniforms is uploaded before the main pass.
	Uniforms *Uniforms
	Exports  ExportLookup
}

func NewContext(lang Language, device Device, width, height int) *Context {
	return &Context{
		Language:      lang,
		Device:        device,
		SurfaceWidth:  width,
		SurfaceHeight: height,
		Uniforms:      NewUniforms(),
	}
}

func (c *Context) UpdateFrame(frameIndex uint64, dt time.Duration) {
	c.FrameIndex = frameIndex
	c.DeltaTime = dt
}

func (c *Context) UpdateSurfaceSize(width, height int) {
	c.SurfaceWidth = width
	c.SurfaceHeight = height
}
