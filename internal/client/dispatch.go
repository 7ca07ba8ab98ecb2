package client

import (
	"time"

	"github.com/mattjoyce/lvsctl/internal/protocol"
)

// handle applies one inbound message to the state store and notifies subscribers.
// It runs on the listener goroutine.
func (c *Client) handle(msg protocol.Message, receivedAt time.Time) {
	switch m := msg.(type) {
	case protocol.PresetLoaded:
		c.logger.Info("preset loaded", "preset", m.PresetName, "start_ms", m.StartTimestampMs)

	case protocol.CurrentState:
		c.store.replaceQueue(m.Presets, m.LastReceivedTimestampMs)
		c.logger.Debug("current state", "presets", len(m.Presets), "engine_ts_ms", m.LastReceivedTimestampMs)

	case protocol.PreviewStatus:
		c.store.setPreviewAuthoritative(m.IsPlaying)
		c.logger.Debug("preview status", "playing", m.IsPlaying, "current_ms", m.CurrentTimestampMs)

	case protocol.ErrorReport:
		c.logger.Warn("engine reported error", "error", m.Error)

	default:
		// Outbound kinds echoed back by the engine carry no state for us.
		c.logger.Warn("ignoring unexpected inbound message", "kind", msg.Kind().String())
		return
	}

	c.stats.dispatched.Add(1)
	c.subs.publish(Notification{
		Kind:       msg.Kind(),
		Message:    msg,
		ReceivedAt: receivedAt,
	})
}
