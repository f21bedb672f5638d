package api

import (
	"fmt"
	"net/http"

	"github.com/fosdem/lumen/lib/engine"
	"github.com/fosdem/lumen/lib/pipeline"
)

type PipelinesResp struct {
	Stale bool                  `json:"stale"`
	Roots []pipeline.RootStatus `json:"roots"`
}

type RebuildError struct {
	Error string `json:"error"`
}

// @Summary	State of every pipeline root
// @Router		/api/pipelines [get]
// @Tags		pipelines
// @Produce	json
// @Success	200	{object}	PipelinesResp
func (a *Api) handlePipelines(w http.ResponseWriter, req *http.Request) {
	var resp PipelinesResp
	err := a.submit(req, func(e *engine.Engine) error {
		resp = PipelinesResp{Stale: e.Cache.Stale(), Roots: e.Cache.Status()}
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, resp)
}

// @Summary	Recompose and rebuild every stale pipeline. On failure the previous pipelines stay live.
// @Router		/api/rebuild [post]
// @Tags		pipelines
// @Produce	json
// @Success	200	{object}	PipelinesResp
// @Failure	422	{object}	RebuildError
func (a *Api) handleRebuild(w http.ResponseWriter, req *http.Request) {
	var resp PipelinesResp
	var rebuildErr error
	err := a.submit(req, func(e *engine.Engine) error {
		rebuildErr = e.RebuildPipeline()
		resp = PipelinesResp{Stale: e.Cache.Stale(), Roots: e.Cache.Status()}
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	if rebuildErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		a.writeJSON(w, RebuildError{Error: rebuildErr.Error()})
		return
	}
	a.writeJSON(w, resp)
}

// @Summary	Last successfully composed source of a root
// @Router		/api/pipelines/{root}/source [get]
// @Tags		pipelines
// @Param		root	path	string	true	"Pipeline root"
// @Produce	plain
// @Success	200	{string}	string
// @Failure	404	{string}	string	"Unknown or unbuilt root"
func (a *Api) handlePipelineSource(w http.ResponseWriter, req *http.Request) {
	root := req.PathValue("root")
	var src string
	err := a.submit(req, func(e *engine.Engine) error {
		var ok bool
		src, ok = e.Cache.Source(root)
		if !ok {
			return fmt.Errorf("%w: %s", pipeline.ErrUnknownRoot, root)
		}
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err = fmt.Fprint(w, src)
	if err != nil {
		a.logger.Error(fmt.Sprintf("could not write response: %s", err))
	}
}
