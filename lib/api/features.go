package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fosdem/lumen/lib/engine"
)

type FeatureReq struct {
	Enabled bool `json:"enabled" example:"true"`
}

// @Summary	List the registered features in registration order
// @Router		/api/features [get]
// @Tags		features
// @Produce	json
// @Success	200	{array}	engine.FeatureState
func (a *Api) handleFeatures(w http.ResponseWriter, req *http.Request) {
	var states []engine.FeatureState
	err := a.submit(req, func(e *engine.Engine) error {
		states = e.FeatureStates()
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, states)
}

// @Summary	Flip a feature on or off. The pipelines are rebuilt on the next rebuild request, or the next frame with auto_rebuild.
// @Router		/api/features/{name}/toggle [post]
// @Tags		features
// @Param		name	path	string	true	"Feature name"
// @Produce	json
// @Success	200	{object}	engine.FeatureState
// @Failure	404	{string}	string	"Unknown feature"
func (a *Api) handleToggleFeature(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	var state engine.FeatureState
	err := a.submit(req, func(e *engine.Engine) error {
		_, err := e.ToggleFeature(name)
		if err != nil {
			return err
		}
		state = featureState(e, name)
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, state)
}

// @Summary	Enable or disable a feature
// @Router		/api/features/{name} [put]
// @Tags		features
// @Param		name		path	string		true	"Feature name"
// @Param		featureReq	body	FeatureReq	true	"Desired state"
// @Accept		json
// @Produce	json
// @Success	200	{object}	engine.FeatureState
// @Failure	400	{string}	string	"Could not decode json request"
// @Failure	404	{string}	string	"Unknown feature"
func (a *Api) handleSetFeature(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	var featureReq FeatureReq
	err := json.NewDecoder(req.Body).Decode(&featureReq)
	if err != nil {
		http.Error(w, fmt.Sprintf("could not decode json request: %s", err), http.StatusBadRequest)
		return
	}

	var state engine.FeatureState
	err = a.submit(req, func(e *engine.Engine) error {
		if err := e.SetFeatureEnabled(name, featureReq.Enabled); err != nil {
			return err
		}
		state = featureState(e, name)
		return nil
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeJSON(w, state)
}

func featureState(e *engine.Engine, name string) engine.FeatureState {
	for _, s := range e.FeatureStates() {
		if s.Name == name {
			return s
		}
	}
	return engine.FeatureState{Name: name}
}
