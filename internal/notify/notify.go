// Package notify announces the set of loaded plugins to a socket.io server.
package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Announcer emits a single event per Announce call.
type Announcer struct {
	cfg config.Notify
}

// New returns an Announcer for cfg. cfg is expected to be normalized.
func New(cfg *config.Notify) *Announcer {
	return &Announcer{cfg: *cfg}
}

// Announce connects, emits payload under the configured event and
// disconnects. With an ack event configured it waits for the server to emit
// it before returning. The whole exchange is bounded by the configured
// timeout.
func (a *Announcer) Announce(ctx context.Context, payload any) error {
	cfg := a.cfg
	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", cfg.URL, "namespace", cfg.Namespace, "event", cfg.Event)
	logger.Debug("Announcement started.")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("failed to parse URL: %q has no scheme or host", cfg.URL)
	}

	opCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	io.Once(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Debug("Connected.", "sid", io.Id())
		io.Emit(cfg.Event, payload)
		logger.Info("Announcement emitted.")
		if cfg.AckEvent == "" {
			finish(nil)
		}
	})

	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		finish(fmt.Errorf("socket.io connection failed: %w", err))
	})

	if cfg.AckEvent != "" {
		io.Once(types.EventName(cfg.AckEvent), func(...any) {
			logger.Debug("Acknowledgement received.", "ack_event", cfg.AckEvent)
			finish(nil)
		})
	}

	io.Connect()

	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		if connected.Load() {
			return fmt.Errorf("timed out after connecting while waiting for event '%s'", cfg.AckEvent)
		}
		return errors.New("timed out while waiting for initial connection")
	}
}
