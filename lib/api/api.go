// Package api serves the control surface of a running engine over HTTP.
//
//	@title			lumen API
//	@version		1.0
//	@description	Toggle shader features and inspect the composed pipelines.
//	@BasePath		/
package api

//go:generate go tool swag init -g api.go -o docs --outputTypes go

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/fosdem/lumen/lib/api/docs"
	"github.com/fosdem/lumen/lib/config"
	"github.com/fosdem/lumen/lib/engine"
	"github.com/fosdem/lumen/lib/features"
	"github.com/fosdem/lumen/lib/metrics"
	"github.com/fosdem/lumen/lib/pipeline"
	"github.com/fosdem/lumen/lib/stats"
)

//go:embed static/*
var content embed.FS
var contentFS, _ = fs.Sub(content, "static")

// engine commands queue behind a frame; anything slower means the render loop
// is stuck
const commandTimeout = 5 * time.Second

type Api struct {
	srv    http.Server
	mux    *http.ServeMux
	cfg    *config.ApiCfg
	engine *engine.Engine

	Stats *stats.Stats

	// Capture reads back the surface. The screenshot route answers 501 while
	// it is nil.
	Capture func() image.Image

	wsClients map[*websocket.Conn]*wsClient
	wsMutex   sync.Mutex

	logger *slog.Logger
}

func New(cfg *config.ApiCfg, e *engine.Engine) *Api {
	a := &Api{}
	a.cfg = cfg
	a.mux = http.NewServeMux()
	a.engine = e
	a.srv.Addr = cfg.Bind
	a.srv.Handler = a.mux
	a.wsClients = make(map[*websocket.Conn]*wsClient)
	a.Stats = e.Stats
	a.logger = slog.Default().With(slog.String("module", "api"))

	for _, event := range []string{engine.EventFeatureToggled, engine.EventPipelineRebuilt, engine.EventPipelineFailed} {
		e.AddEventListener(event, func(_ *engine.Engine, data interface{}) {
			packet, err := json.Marshal(data)
			if err != nil {
				a.logger.Error(fmt.Sprintf("could not encode %s event: %s", event, err))
				return
			}
			a.broadcast(packet)
		})
	}

	a.routes()
	return a
}

func (a *Api) routes() {
	if a.cfg.EnableProfiler {
		a.mux.HandleFunc("/prof", a.profileCPU)
	}
	a.mux.HandleFunc("POST /api/kill", a.suicide)
	a.mux.HandleFunc("GET /api/stats", a.getStats)
	a.mux.HandleFunc("GET /api/config", a.handleConfig)
	a.mux.HandleFunc("GET /api/features", a.handleFeatures)
	a.mux.HandleFunc("PUT /api/features/{name}", a.handleSetFeature)
	a.mux.HandleFunc("POST /api/features/{name}/toggle", a.handleToggleFeature)
	a.mux.HandleFunc("POST /api/rebuild", a.handleRebuild)
	a.mux.HandleFunc("GET /api/pipelines", a.handlePipelines)
	a.mux.HandleFunc("GET /api/pipelines/{root}/source", a.handlePipelineSource)
	a.mux.HandleFunc("GET /api/screenshot", a.handleScreenshot)
	a.mux.HandleFunc("/api/ws", a.handleWebsocket)
	a.mux.Handle("GET /metrics", metrics.Handler())
	a.mux.Handle("/api/docs/", httpSwagger.WrapHandler)
	a.mux.Handle("/", http.FileServer(http.FS(contentFS)))
}

// Handler exposes the routes without listening.
func (a *Api) Handler() http.Handler {
	return a.mux
}

func (a *Api) Serve() error {
	return a.srv.ListenAndServe()
}

func (a *Api) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}

// submit runs fn on the render loop, bounded by the request context.
func (a *Api) submit(req *http.Request, fn func(e *engine.Engine) error) error {
	ctx, cancel := context.WithTimeout(req.Context(), commandTimeout)
	defer cancel()
	return a.engine.Submit(ctx, fn)
}

func (a *Api) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, features.ErrUnknownFeature), errors.Is(err, pipeline.ErrUnknownRoot):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	http.Error(w, err.Error(), status)
}

func (a *Api) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	err := encoder.Encode(v)
	if err != nil {
		a.logger.Error(fmt.Sprintf("could not write response: %s", err))
	}
}

func (a *Api) profileCPU(w http.ResponseWriter, _ *http.Request) {
	err := pprof.StartCPUProfile(w)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not start CPU profile: %s", err), http.StatusInternalServerError)
		return
	}
	time.Sleep(10 * time.Second)
	pprof.StopCPUProfile()
}

// @Summary	Stop the engine
// @Router		/api/kill [post]
// @Tags		base
// @Success	200
func (a *Api) suicide(w http.ResponseWriter, req *http.Request) {
	a.logger.Info("shutting down as per api request")
	err := a.submit(req, func(e *engine.Engine) error {
		e.RequestShutdown()
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, "ok")
}

// @Summary	Render loop and pipeline counters
// @Router		/api/stats [get]
// @Tags		base
// @Produce	json
// @Success	200	{object}	stats.Stats
func (a *Api) getStats(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, a.Stats)
}

type Config struct {
	Language    string   `json:"language" example:"glsl"`
	MainRoot    string   `json:"main_root" example:"geometry"`
	Roots       []string `json:"roots"`
	Features    []string `json:"features"`
	AutoRebuild bool     `json:"auto_rebuild"`
}

// @Summary	Summary of the loaded configuration
// @Router		/api/config [get]
// @Tags		base
// @Produce	json
// @Success	200	{object}	Config
func (a *Api) handleConfig(w http.ResponseWriter, req *http.Request) {
	var result Config
	err := a.submit(req, func(e *engine.Engine) error {
		result = Config{
			Language:    e.Config().Language,
			MainRoot:    e.MainRoot(),
			Roots:       e.Cache.Roots(),
			Features:    e.Registry.FeatureNames(),
			AutoRebuild: e.Config().AutoRebuild,
		}
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, result)
}

// @Summary	PNG of the next presented frame
// @Router		/api/screenshot [get]
// @Tags		base
// @Produce	png
// @Success	200
// @Failure	501	{string}	string	"No surface to capture"
func (a *Api) handleScreenshot(w http.ResponseWriter, req *http.Request) {
	if a.Capture == nil {
		http.Error(w, "no surface to capture", http.StatusNotImplemented)
		return
	}
	shot := make(chan image.Image, 1)
	err := a.submit(req, func(e *engine.Engine) error {
		e.AfterFrame(func() { shot <- a.Capture() })
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), commandTimeout)
	defer cancel()
	select {
	case img := <-shot:
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, img); err != nil {
			a.logger.Error(fmt.Sprintf("could not encode screenshot: %s", err))
		}
	case <-ctx.Done():
		a.fail(w, ctx.Err())
	}
}

// ServeInBackground starts the API when cfg is set. capture may be nil.
func ServeInBackground(e *engine.Engine, cfg *config.ApiCfg, capture func() image.Image) *Api {
	var theApi *Api
	if cfg != nil {
		theApi = New(cfg, e)
		theApi.Capture = capture

		theApi.logger.Info(fmt.Sprintf("starting web server on %s", cfg.Bind))
		go func() {
			err := theApi.Serve()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				theApi.logger.Error(fmt.Sprintf("web server stopped: %s", err))
			}
		}()
	}
	return theApi
}
