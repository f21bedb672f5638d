package rendering

import (
	"fmt"
	"log/slog"

	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/fosdem/lumen/lib/rendering/shaders"
	"github.com/fosdem/lumen/lib/utils"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Programs resolves the live pipeline of a root.
type Programs interface {
	Pipeline(root string) (pipeline.Pipeline, bool)
}

// Encoder draws the fullscreen triangle of the base templates with whatever
// program is currently live for a root. It implements features.Encoder.
type Encoder struct {
	Programs Programs
	// Globals is uploaded before any per-draw uniforms.
	Globals *features.Uniforms

	BGColour utils.Colour

	width, height int
	current       *Target

	VAO       uint32
	locations map[*shaders.GLProgram]map[string]int32

	DrawCalls uint64

	logger *slog.Logger
}

func NewEncoder(programs Programs, globals *features.Uniforms, bgColour utils.Colour) *Encoder {
	return &Encoder{
		Programs:  programs,
		Globals:   globals,
		BGColour:  bgColour,
		locations: make(map[*shaders.GLProgram]map[string]int32),
		logger:    slog.Default().With(slog.String("module", "rendering")),
	}
}

// Start allocates the vertex array. The geometry is generated from
// gl_VertexID, so no buffers are bound to it.
func (e *Encoder) Start() {
	gl.GenVertexArrays(1, &e.VAO)
	gl.BindVertexArray(e.VAO)
	gl.ClearColor(e.BGColour.R, e.BGColour.G, e.BGColour.B, e.BGColour.A)
}

func (e *Encoder) Stop() {
	gl.DeleteVertexArrays(1, &e.VAO)
}

func (e *Encoder) SetSurfaceSize(width, height int) {
	e.width = width
	e.height = height
}

// ForgetPrograms drops cached uniform locations. Call it after pipelines were
// rebuilt.
func (e *Encoder) ForgetPrograms() {
	clear(e.locations)
}

func (e *Encoder) BeginPass(label string, target features.Target) {
	if target == nil {
		e.current = nil
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(e.width), int32(e.height))
		gl.ClearColor(e.BGColour.R, e.BGColour.G, e.BGColour.B, e.BGColour.A)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		return
	}

	t, ok := target.(*Target)
	if !ok {
		e.logger.Error(fmt.Sprintf("pass %s: foreign target %T", label, target))
		return
	}
	e.current = t
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FramebufferID)
	gl.Viewport(0, 0, int32(t.width), int32(t.height))
	if t.depth {
		gl.Enable(gl.DEPTH_TEST)
		gl.ClearDepth(1)
		gl.Clear(gl.DEPTH_BUFFER_BIT)
	} else {
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}
}

func (e *Encoder) Draw(root string, uniforms *features.Uniforms) {
	p, ok := e.Programs.Pipeline(root)
	if !ok {
		e.logger.Debug("no pipeline to draw", "root", root)
		return
	}
	prog, ok := p.(*shaders.GLProgram)
	if !ok {
		e.logger.Error(fmt.Sprintf("pipeline for %s is %T, not a GL program", root, p))
		return
	}

	gl.UseProgram(prog.ID)
	unit := int32(0)
	if e.Globals != nil {
		e.upload(prog, e.Globals, &unit)
	}
	if uniforms != nil && uniforms != e.Globals {
		e.upload(prog, uniforms, &unit)
	}

	gl.BindVertexArray(e.VAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 1*3)
	e.DrawCalls++
}

func (e *Encoder) EndPass() {
	if e.current != nil && e.current.depth {
		gl.Disable(gl.DEPTH_TEST)
	}
	e.current = nil
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (e *Encoder) location(prog *shaders.GLProgram, name string) int32 {
	locs, ok := e.locations[prog]
	if !ok {
		locs = make(map[string]int32)
		e.locations[prog] = locs
	}
	loc, ok := locs[name]
	if !ok {
		loc = gl.GetUniformLocation(prog.ID, gl.Str(name+"\x00"))
		locs[name] = loc
	}
	return loc
}

// upload pushes every uniform the program actually declares. Float slices map
// onto GLSL types by length: 1..4 are float..vec4, 16 is a mat4 and other
// multiples of 4 are vec4 arrays.
func (e *Encoder) upload(prog *shaders.GLProgram, us *features.Uniforms, unit *int32) {
	for _, u := range us.All() {
		loc := e.location(prog, u.Name)
		if loc < 0 {
			continue
		}

		if u.Texture != nil {
			t, ok := u.Texture.(*Target)
			// never sample the target being rendered into
			if !ok || t == e.current {
				continue
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(*unit))
			gl.BindTexture(gl.TEXTURE_2D, t.TextureID)
			gl.Uniform1i(loc, *unit)
			*unit++
			continue
		}

		v := u.Values
		switch n := len(v); {
		case n == 0:
		case n == 1:
			gl.Uniform1f(loc, v[0])
		case n == 2:
			gl.Uniform2fv(loc, 1, &v[0])
		case n == 3:
			gl.Uniform3fv(loc, 1, &v[0])
		case n == 4:
			gl.Uniform4fv(loc, 1, &v[0])
		case n == 16:
			gl.UniformMatrix4fv(loc, 1, false, &v[0])
		case n%4 == 0:
			gl.Uniform4fv(loc, int32(n/4), &v[0])
		default:
			e.logger.Warn(fmt.Sprintf("cannot upload uniform %s with %d values", u.Name, n))
		}
	}
}
