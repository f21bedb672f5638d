package shaders

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/go-gl/gl/v4.1-core/gl"
)

const glslVersion = "#version 410 core"

// GLProgram is a linked program built from one composed root.
type GLProgram struct {
	root string
	ID   uint32
}

func (p *GLProgram) Root() string {
	return p.root
}

// GLBackend compiles composed GLSL into programs. The composed source holds
// both stages; each is selected with a VERTEX_SHADER or FRAGMENT_SHADER define.
// Must be used from the thread that owns the GL context.
type GLBackend struct {
	// DebugDir receives <root>.vert and <root>.frag for every program built,
	// when set.
	DebugDir string

	logger *slog.Logger
}

func NewGLBackend(debugDir string) *GLBackend {
	return &GLBackend{
		DebugDir: debugDir,
		logger:   slog.Default().With(slog.String("module", "shaders")),
	}
}

// StageSource prepends the version line and the stage define.
func StageSource(source string, stage string) string {
	var b strings.Builder
	b.WriteString(glslVersion)
	b.WriteString("\n#define ")
	b.WriteString(stage)
	b.WriteString("\n")
	b.WriteString(source)
	return b.String()
}

func (b *GLBackend) CreatePipeline(root, source string) (pipeline.Pipeline, error) {
	vertexShader := StageSource(source, "VERTEX_SHADER")
	fragmentShader := StageSource(source, "FRAGMENT_SHADER")

	if b.DebugDir != "" {
		b.writeFileDebug(filepath.Join(b.DebugDir, root+".vert"), vertexShader)
		b.writeFileDebug(filepath.Join(b.DebugDir, root+".frag"), fragmentShader)
	}

	program, err := newProgram(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("could not build program for %s: %w", root, err)
	}
	b.logger.Debug("linked program", "root", root, "id", program)

	return &GLProgram{root: root, ID: program}, nil
}

func (b *GLBackend) DestroyPipeline(p pipeline.Pipeline) {
	prog, ok := p.(*GLProgram)
	if !ok {
		b.logger.Error(fmt.Sprintf("cannot destroy foreign pipeline %T", p))
		return
	}
	gl.DeleteProgram(prog.ID)
}

func newProgram(vertexShaderSource, fragmentShaderSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex stage: %w", err)
	}

	fragmentShader, err := compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, fmt.Errorf("fragment stage: %w", err)
	}

	program := gl.CreateProgram()

	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		logmsg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logmsg))
		gl.DeleteProgram(program)

		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(logmsg, "\x00"))
	}

	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source)
	size := int32(len(source))
	gl.ShaderSource(shader, 1, csources, &size)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		clog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(clog))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile: %v", strings.TrimRight(clog, "\x00"))
	}

	return shader, nil
}

func (b *GLBackend) writeFileDebug(filename string, content string) {
	f, err := os.Create(filename)
	if err != nil {
		b.logger.Error(fmt.Sprintf("could not create debug file %s: %s", filename, err))
		return
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			return
		}
	}(f)

	_, err = fmt.Fprintf(f, "%s", content)
	if err != nil {
		b.logger.Error(fmt.Sprintf("could not write to debug file: %s", err))
		return
	}
}
