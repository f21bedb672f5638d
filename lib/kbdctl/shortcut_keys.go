// Package kbdctl maps window key presses onto engine actions. GLFW runs the
// callbacks inside PollEvents, on the render goroutine, so they call the
// engine directly instead of going through Submit.
package kbdctl

import (
	"fmt"
	"log/slog"

	"github.com/fosdem/lumen/lib/engine"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// IntensityScaler is implemented by features whose light output can be
// scaled from the keyboard.
type IntensityScaler interface {
	ScaleIntensity(factor float32)
}

func SetupShortcutKeys(e *engine.Engine, w *glfw.Window) {
	w.SetKeyCallback(keyCallback(e))
}

func Poll() {
	glfw.PollEvents()
}

func keyCallback(e *engine.Engine) func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	logger := slog.Default().With(slog.String("module", "kbdctl"))

	return func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			if key == glfw.KeyEscape || (key == glfw.KeyQ &&
				mods&glfw.ModControl != 0 &&
				mods&glfw.ModShift != 0) {
				logger.Info("told to quit, exiting")
				e.RequestShutdown()
			}
			return
		}
		if action != glfw.Press {
			return
		}

		switch {
		case key >= glfw.Key0 && key <= glfw.Key9:
			// 1 is the first feature, 0 the tenth
			selected := (int(key-glfw.Key0) + 9) % 10
			names := e.Registry.FeatureNames()
			if selected > len(names)-1 {
				logger.Warn(fmt.Sprintf("feature %d out of range", selected+1))
				return
			}
			enabled, err := e.ToggleFeature(names[selected])
			if err != nil {
				logger.Error(err.Error())
				return
			}
			logger.Info(fmt.Sprintf("[%d] %s: %s", selected+1, names[selected], onOff(enabled)))
			if err := e.RebuildPipeline(); err != nil {
				logger.Error(fmt.Sprintf("rebuild failed: %s", err))
			}
		case key == glfw.KeyR:
			if err := e.RebuildPipeline(); err != nil {
				logger.Error(fmt.Sprintf("rebuild failed: %s", err))
			}
		case key == glfw.KeyEqual || key == glfw.KeyKPAdd:
			scaleLights(e, 1.2)
		case key == glfw.KeyMinus || key == glfw.KeyKPSubtract:
			scaleLights(e, 0.8)
		}
	}
}

func scaleLights(e *engine.Engine, factor float32) {
	for _, f := range e.Registry.EnabledFeatures() {
		if s, ok := f.(IntensityScaler); ok {
			s.ScaleIntensity(factor)
		}
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}
