package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"runtime"

	"github.com/fosdem/lumen/lib/api"
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/engine"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/kbdctl"
	lumenlog "github.com/fosdem/lumen/lib/log"
	"github.com/fosdem/lumen/lib/rendering"
	"github.com/fosdem/lumen/lib/rendering/shaders"
	"github.com/fosdem/lumen/lib/utils"
	"github.com/fosdem/lumen/lib/watch"
	"github.com/fosdem/lumen/lib/window"
)

func init() {
	// The OpenGL stuff must be in one thread
	runtime.LockOSThread()
}

func main() {
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <config file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := lumenlog.Setup(*logLevel); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Parse(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if features.Language(cfg.Language) != features.GLSL {
		log.Fatalf("the window renderer runs glsl configs only, use lumen-compose for %s", cfg.Language)
	}

	var e *engine.Engine
	var enc *rendering.Encoder
	win, err := window.New(cfg.Window, func(width, height int) {
		e.Resize(width, height)
		enc.SetSurfaceSize(width, height)
	})
	if err != nil {
		log.Fatalf("could not open window: %s", err)
	}
	defer window.Close(win)

	err = rendering.Init()
	if err != nil {
		log.Fatalf("could not initialise renderer: %s", err)
	}
	window.LogContext()

	debugDir := ""
	if cfg.DebugOutput.Enabled {
		debugDir = os.TempDir()
	}
	e, err = engine.New(cfg, shaders.NewGLBackend(debugDir), &rendering.Device{})
	if err != nil {
		log.Fatalf("could not build engine: %s", err)
	}

	enc = rendering.NewEncoder(e.Cache, e.Context.Uniforms, utils.ColourFromHex(cfg.BackgroundColour))
	width, height := win.GetFramebufferSize()
	e.Resize(width, height)
	enc.SetSurfaceSize(width, height)
	enc.Start()
	defer enc.Stop()
	e.OnRebuild(enc.ForgetPrograms)

	err = e.Start()
	if err != nil {
		log.Fatalf("could not start engine: %s", err)
	}
	defer e.Stop()

	kbdctl.SetupShortcutKeys(e, win)

	capture := func() image.Image {
		w, h := win.GetFramebufferSize()
		return rendering.ReadPixels(w, h)
	}
	theApi := api.ServeInBackground(e, cfg.Api, capture)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.WatchTemplates {
		w, err := watch.New(e, cfg.TemplatePaths())
		if err != nil {
			log.Fatalf("could not watch templates: %s", err)
		}
		go w.Run(ctx)
	}

	var deltaTimer utils.DeltaTimer
	for !e.ShutdownRequested {
		dt := deltaTimer.Next()
		if err := e.Frame(enc, dt); err != nil {
			slog.Error(fmt.Sprintf("frame failed: %s", err), slog.String("module", "main"))
		}
		e.Stats.SetRenderCounters(enc.DrawCalls, rendering.TargetBytes)

		win.SwapBuffers()
		if win.ShouldClose() {
			e.RequestShutdown()
		}
		kbdctl.Poll()
	}

	if theApi != nil {
		_ = theApi.Shutdown(ctx)
	}
}
