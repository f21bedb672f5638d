// Package window opens the GLFW window whose context the renderer draws into.
package window

import (
	"fmt"
	"log/slog"

	"github.com/fosdem/lumen/lib/config"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// New creates a window with a current OpenGL 4.1 core context. It must be
// called from the locked main thread, before rendering.Init. onResize gets the
// framebuffer size, which differs from the window size on HiDPI screens.
func New(cfg *config.WindowCfg, onResize func(width, height int)) (*glfw.Window, error) {
	logger := slog.Default().With(slog.String("module", "window"))
	logger.Debug("initializing window")
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("could not create window: %w", err)
	}

	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if onResize != nil {
		window.SetFramebufferSizeCallback(func(w *glfw.Window, width int, height int) {
			logger.Debug(fmt.Sprintf("framebuffer resized to %dx%d", width, height))
			onResize(width, height)
		})
	}
	return window, nil
}

// LogContext reports the GL implementation. Only valid after gl.Init.
func LogContext() {
	vendor := gl.GoStr(gl.GetString(gl.VENDOR))
	renderer := gl.GoStr(gl.GetString(gl.RENDERER))
	version := gl.GoStr(gl.GetString(gl.VERSION))
	slog.Info(fmt.Sprintf("OpenGL version %s / %s / %s", vendor, renderer, version), slog.String("module", "window"))
}

func Close(window *glfw.Window) {
	window.Destroy()
	glfw.Terminate()
}
