package client

import (
	"slices"
	"strings"
	"sync"

	"github.com/mattjoyce/lvsctl/internal/protocol"
)

// Phase is a step in the client lifecycle. Transitions are linear.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseShuttingDown
	PhaseClosed
)

var phaseNames = [...]string{
	PhaseCreated:      "created",
	PhaseStarting:     "starting",
	PhaseRunning:      "running",
	PhaseShuttingDown: "shutting_down",
	PhaseClosed:       "closed",
}

func (p Phase) String() string {
	if p < PhaseCreated || p > PhaseClosed {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a consistent snapshot of what the client knows about the engine.
type State struct {
	// PresetQueue is in engine order. Use SortedQueue for display.
	PresetQueue []protocol.PresetQueueEntry `json:"presetQueue"`
	// LastTimestampMs is the last timestamp this client sent.
	LastTimestampMs uint64 `json:"lastTimestampMs"`
	// EngineTimestampMs is the engine's lastReceivedTimestampMs from the latest CURRENT_STATE.
	EngineTimestampMs uint64 `json:"engineTimestampMs"`
	IsPreviewPlaying  bool   `json:"isPreviewPlaying"`
	Phase             Phase  `json:"phase"`
}

// SortedQueue returns the queue ordered by timestamp, then name.
func (s State) SortedQueue() []protocol.PresetQueueEntry {
	out := slices.Clone(s.PresetQueue)
	slices.SortStableFunc(out, func(a, b protocol.PresetQueueEntry) int {
		switch {
		case a.TimestampMs < b.TimestampMs:
			return -1
		case a.TimestampMs > b.TimestampMs:
			return 1
		default:
			return strings.Compare(a.PresetName, b.PresetName)
		}
	})
	return out
}

// store guards State with a single mutex.
// previewGen counts authoritative preview updates so an optimistic write
// racing with one can tell it lost.
type store struct {
	mu         sync.Mutex
	state      State
	previewGen uint64
}

func newStore() *store {
	return &store{state: State{PresetQueue: []protocol.PresetQueueEntry{}}}
}

func (s *store) snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.PresetQueue = slices.Clone(s.state.PresetQueue)
	return out
}

func (s *store) replaceQueue(entries []protocol.PresetQueueEntry, engineTimestampMs uint64) {
	queue := slices.Clone(entries)
	if queue == nil {
		queue = []protocol.PresetQueueEntry{}
	}

	s.mu.Lock()
	s.state.PresetQueue = queue
	s.state.EngineTimestampMs = engineTimestampMs
	s.mu.Unlock()
}

func (s *store) setLastTimestamp(ms uint64) {
	s.mu.Lock()
	s.state.LastTimestampMs = ms
	s.mu.Unlock()
}

func (s *store) previewGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewGen
}

func (s *store) setPreviewAuthoritative(playing bool) {
	s.mu.Lock()
	s.state.IsPreviewPlaying = playing
	s.previewGen++
	s.mu.Unlock()
}

// setPreviewOptimistic applies playing only if no authoritative update
// happened since gen was read.
func (s *store) setPreviewOptimistic(playing bool, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.previewGen != gen {
		return false
	}
	s.state.IsPreviewPlaying = playing
	return true
}

func (s *store) phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase
}

func (s *store) setPhase(p Phase) {
	s.mu.Lock()
	s.state.Phase = p
	s.mu.Unlock()
}
