package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/transport"
)

// listen is the single reader of the engine's output. It runs until ctx is
// cancelled or the engine closes stdout, and is never restarted.
func (c *Client) listen(ctx context.Context) {
	defer close(c.listenerDone)

	c.logger.Debug("listener started")
	defer c.logger.Debug("listener stopped")

	for {
		line, err := c.transport.ReadLine(ctx)
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrTimeout):
				continue
			case ctx.Err() != nil:
				return
			case errors.Is(err, io.EOF):
				c.logger.Info("engine closed its output")
				c.setListenerErr(io.EOF)
				return
			default:
				c.logger.Error("engine read failed", "error", err)
				c.setListenerErr(err)
				return
			}
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		c.stats.received.Add(1)

		msg, err := protocol.Decode(line)
		if err != nil {
			c.stats.decodeErrors.Add(1)
			c.logger.Warn("dropping undecodable line", "error", err)
			c.record(protocol.Inbound, nil, line)
			continue
		}

		c.record(protocol.Inbound, msg, line)
		c.handle(msg, time.Now())
	}
}

func (c *Client) setListenerErr(err error) {
	c.listenerMu.Lock()
	c.listenerErr = err
	c.listenerMu.Unlock()
}

// ListenerErr reports why the listener stopped: io.EOF when the engine closed
// its output, another error on a read failure, nil if still running or cancelled.
func (c *Client) ListenerErr() error {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	return c.listenerErr
}
