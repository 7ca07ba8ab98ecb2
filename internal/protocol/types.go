package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the purpose and payload shape of an envelope.
// Values are part of the wire format and must not be renumbered.
type Kind int

const (
	// Controller -> engine.
	KindSetTimestamp Kind = 0
	KindLoadPreset   Kind = 1
	KindDeletePreset Kind = 2
	KindStartPreview Kind = 3
	KindStopPreview  Kind = 4

	// Engine -> controller.
	KindPresetLoaded  Kind = 5
	KindCurrentState  Kind = 6
	KindPreviewStatus Kind = 7
	KindError         Kind = 8
)

var kindNames = [...]string{
	KindSetTimestamp:  "SET_TIMESTAMP",
	KindLoadPreset:    "LOAD_PRESET",
	KindDeletePreset:  "DELETE_PRESET",
	KindStartPreview:  "START_PREVIEW",
	KindStopPreview:   "STOP_PREVIEW",
	KindPresetLoaded:  "PRESET_LOADED",
	KindCurrentState:  "CURRENT_STATE",
	KindPreviewStatus: "PREVIEW_STATUS",
	KindError:         "ERROR",
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	return k >= KindSetTimestamp && k <= KindError
}

// Inbound reports whether k is sent by the engine.
func (k Kind) Inbound() bool {
	return k >= KindPresetLoaded && k <= KindError
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("KIND(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind by its wire name (case-insensitive) or number.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == upper {
			return Kind(i), nil
		}
	}
	if n, err := strconv.Atoi(upper); err == nil && Kind(n).Valid() {
		return Kind(n), nil
	}
	return 0, fmt.Errorf("unknown message kind %q", s)
}

// Message is a decoded, kind-specific payload.
type Message interface {
	Kind() Kind
}

// SetTimestamp tells the engine the controller's current playback position.
type SetTimestamp struct {
	TimestampMs uint64 `json:"timestampMs"`
}

// LoadPreset schedules a preset activation.
type LoadPreset struct {
	PresetName       string `json:"presetName"`
	StartTimestampMs uint64 `json:"startTimestampMs"`
}

// DeletePreset removes a scheduled activation.
type DeletePreset struct {
	PresetName  string `json:"presetName"`
	TimestampMs uint64 `json:"timestampMs"`
}

// StartPreview starts engine playback from a position.
type StartPreview struct {
	FromTimestampMs uint64 `json:"fromTimestampMs"`
}

// StopPreview stops engine playback. It carries an empty payload.
type StopPreview struct{}

// PresetLoaded confirms that the engine accepted a LoadPreset.
type PresetLoaded struct {
	PresetName       string `json:"presetName"`
	StartTimestampMs uint64 `json:"startTimestampMs"`
}

// PresetQueueEntry is one scheduled preset activation.
type PresetQueueEntry struct {
	PresetName  string `json:"presetName"`
	TimestampMs uint64 `json:"timestampMs"`
}

// CurrentState is the engine's authoritative view of its preset queue.
type CurrentState struct {
	LastReceivedTimestampMs uint64             `json:"lastReceivedTimestampMs"`
	Presets                 []PresetQueueEntry `json:"presets"`
}

// PreviewStatus reports whether engine playback is running.
type PreviewStatus struct {
	IsPlaying          bool   `json:"isPlaying"`
	CurrentTimestampMs uint64 `json:"currentTimestampMs"`
}

// ErrorReport carries an engine-side error message.
type ErrorReport struct {
	Error string `json:"error"`
}

func (SetTimestamp) Kind() Kind  { return KindSetTimestamp }
func (LoadPreset) Kind() Kind    { return KindLoadPreset }
func (DeletePreset) Kind() Kind  { return KindDeletePreset }
func (StartPreview) Kind() Kind  { return KindStartPreview }
func (StopPreview) Kind() Kind   { return KindStopPreview }
func (PresetLoaded) Kind() Kind  { return KindPresetLoaded }
func (CurrentState) Kind() Kind  { return KindCurrentState }
func (PreviewStatus) Kind() Kind { return KindPreviewStatus }
func (ErrorReport) Kind() Kind   { return KindError }

// Direction tells which way a line travelled on the pipe.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)
