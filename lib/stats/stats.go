package stats

import (
	"encoding/json"
	"sync"
	"time"
)

type Stats struct {
	Uptime          float64 `json:"uptime"`
	FPS             uint64  `json:"fps"`
	Frames          uint64  `json:"frames"`
	EnabledFeatures int     `json:"enabled_features"`
	TotalFeatures   int     `json:"total_features"`
	Rebuilds        uint64  `json:"rebuilds"`
	RebuildFailures uint64  `json:"rebuild_failures"`
	DrawCalls       uint64  `json:"draw_calls"`
	TargetBytes     uint64  `json:"target_bytes"`
	WsClients       int     `json:"ws_clients"`

	mu           sync.Mutex
	frameCounter uint64
	frameTimer   time.Time
	start        time.Time
}

func New() *Stats {
	s := &Stats{}
	s.start = time.Now()
	return s
}

// Update is called once per rendered frame.
func (s *Stats) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Frames++
	s.frameCounter++
	if time.Since(s.frameTimer) > 1*time.Second {
		s.FPS = s.frameCounter
		s.frameCounter = 0
		s.frameTimer = time.Now()
	}

	s.Uptime = float64(time.Since(s.start).Nanoseconds()) / 1e9
}

func (s *Stats) SetFeatures(enabled, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnabledFeatures = enabled
	s.TotalFeatures = total
}

func (s *Stats) PipelineRebuilt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rebuilds++
}

func (s *Stats) PipelineFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RebuildFailures++
}

func (s *Stats) SetRenderCounters(drawCalls, targetBytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DrawCalls = drawCalls
	s.TargetBytes = targetBytes
}

func (s *Stats) SetWsClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WsClients = n
}

// MarshalJSON encodes a consistent snapshot.
func (s *Stats) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type plain struct {
		Uptime          float64 `json:"uptime"`
		FPS             uint64  `json:"fps"`
		Frames          uint64  `json:"frames"`
		EnabledFeatures int     `json:"enabled_features"`
		TotalFeatures   int     `json:"total_features"`
		Rebuilds        uint64  `json:"rebuilds"`
		RebuildFailures uint64  `json:"rebuild_failures"`
		DrawCalls       uint64  `json:"draw_calls"`
		TargetBytes     uint64  `json:"target_bytes"`
		WsClients       int     `json:"ws_clients"`
	}
	return json.Marshal(plain{
		Uptime:          s.Uptime,
		FPS:             s.FPS,
		Frames:          s.Frames,
		EnabledFeatures: s.EnabledFeatures,
		TotalFeatures:   s.TotalFeatures,
		Rebuilds:        s.Rebuilds,
		RebuildFailures: s.RebuildFailures,
		DrawCalls:       s.DrawCalls,
		TargetBytes:     s.TargetBytes,
		WsClients:       s.WsClients,
	})
}
