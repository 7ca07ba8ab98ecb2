package client

import (
	"fmt"

	"github.com/mattjoyce/lvsctl/internal/protocol"
)

// SetTimestamp sends the current playback position and remembers it once sent.
func (c *Client) SetTimestamp(ms uint64) error {
	if err := c.send(protocol.SetTimestamp{TimestampMs: ms}); err != nil {
		return err
	}
	c.store.setLastTimestamp(ms)
	return nil
}

// LoadPreset schedules name to start at startMs. The queue only changes
// when the engine answers with CURRENT_STATE.
func (c *Client) LoadPreset(name string, startMs uint64) error {
	if name == "" {
		return fmt.Errorf("load preset: %w: preset name is empty", ErrInvalidArgument)
	}
	return c.send(protocol.LoadPreset{PresetName: name, StartTimestampMs: startMs})
}

// DeletePreset removes the activation of name at atMs.
func (c *Client) DeletePreset(name string, atMs uint64) error {
	if name == "" {
		return fmt.Errorf("delete preset: %w: preset name is empty", ErrInvalidArgument)
	}
	return c.send(protocol.DeletePreset{PresetName: name, TimestampMs: atMs})
}

// StartPreview starts playback from fromMs and optimistically marks the preview as playing.
func (c *Client) StartPreview(fromMs uint64) error {
	return c.sendPreview(protocol.StartPreview{FromTimestampMs: fromMs}, true)
}

// StopPreview stops playback and optimistically marks the preview as stopped.
func (c *Client) StopPreview() error {
	return c.sendPreview(protocol.StopPreview{}, false)
}

func (c *Client) sendPreview(msg protocol.Message, playing bool) error {
	gen := c.store.previewGeneration()
	if err := c.send(msg); err != nil {
		return err
	}
	if !c.store.setPreviewOptimistic(playing, gen) {
		c.logger.Debug("engine preview status arrived during send; keeping it", "kind", msg.Kind().String())
	}
	return nil
}

func (c *Client) send(msg protocol.Message) error {
	if phase := c.store.phase(); phase != PhaseRunning {
		return fmt.Errorf("send %s: %w (phase %s)", msg.Kind(), ErrNotRunning, phase)
	}

	line, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}

	if err := c.transport.WriteLine(line); err != nil {
		c.stats.sendErrors.Add(1)
		c.logger.Warn("send failed", "kind", msg.Kind().String(), "error", err)
		return fmt.Errorf("send %s: %w", msg.Kind(), err)
	}

	c.stats.sent.Add(1)
	c.logger.Debug("sent", "kind", msg.Kind().String())
	c.record(protocol.Outbound, msg, line)
	return nil
}
