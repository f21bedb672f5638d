package rendering

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Init loads the GL entry points for the current context.
func Init() error {
	err := gl.Init()
	if err != nil {
		return fmt.Errorf("could not initialise OpenGL context: %w", err)
	}
	return nil
}
