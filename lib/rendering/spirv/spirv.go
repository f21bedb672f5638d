// Package spirv compiles composed WGSL into SPIR-V modules. It needs no GPU,
// which makes it usable for offline validation of compositions.
package spirv

import (
	"fmt"
	"log/slog"

	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/gogpu/naga"
)

// Magic is the first word of every SPIR-V module.
const Magic = 0x07230203

type Module struct {
	root  string
	Words []uint32
}

func (m *Module) Root() string {
	return m.root
}

// Compile translates WGSL source to SPIR-V words.
func Compile(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("SPIR-V output is %d bytes, not a whole number of words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Backend is a pipeline.Backend producing SPIR-V modules instead of GPU
// pipelines.
type Backend struct {
	logger *slog.Logger
}

func NewBackend() *Backend {
	return &Backend{logger: slog.Default().With(slog.String("module", "spirv"))}
}

func (b *Backend) CreatePipeline(root, source string) (pipeline.Pipeline, error) {
	words, err := Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", root, err)
	}
	if len(words) == 0 || words[0] != Magic {
		return nil, fmt.Errorf("%s: compiler returned an invalid module", root)
	}
	b.logger.Debug("compiled module", "root", root, "words", len(words))
	return &Module{root: root, Words: words}, nil
}

func (b *Backend) DestroyPipeline(pipeline.Pipeline) {
}
