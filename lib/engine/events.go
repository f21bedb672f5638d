package engine

type EventListener func(e *Engine, data interface{})

const (
	EventFeatureToggled  = "feature-toggled"
	EventPipelineRebuilt = "pipeline-rebuilt"
	EventPipelineFailed  = "pipeline-failed"
)

type EventDataFeatureToggled struct {
	Event   string `json:"event"`
	Feature string `json:"feature"`
	Enabled bool   `json:"enabled"`
}

type EventDataPipelineRebuilt struct {
	Event    string   `json:"event"`
	Roots    []string `json:"roots"`
	Duration float64  `json:"duration"`
}

type EventDataPipelineFailed struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// AddEventListener registers a callback for an event. Listeners run on their
// own goroutine and must not touch the registry; use Submit for that.
func (e *Engine) AddEventListener(event string, callback EventListener) {
	e.listener[event] = append(e.listener[event], callback)
}

func (e *Engine) invoke(event string, data interface{}) {
	for _, listener := range e.listener[event] {
		go listener(e, data)
	}
}
