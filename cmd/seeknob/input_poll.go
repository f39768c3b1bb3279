//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// deviceListener runs the read loop for one device.
//
// Each device gets its own goroutine:
//   - poll() with a short timeout so cancellation is seen within one interval
//   - on readiness, drain everything the kernel has queued (non-blocking reads)
//   - only EV_KEY presses are resolved; repeat and release are dropped
//   - resolved actions go to the router over a single channel, in arrival order
//
// Device errors are isolated: a failing device ends its own loop only.
type deviceListener struct {
	dev      *Device
	bindings *BindingTable
	out      chan<- Event
	logger   *slog.Logger

	raw     []byte
	pending []byte
	batch   []inputEvent
}

func newDeviceListener(dev *Device, bindings *BindingTable, out chan<- Event, logger *slog.Logger) *deviceListener {
	return &deviceListener{
		dev:      dev,
		bindings: bindings,
		out:      out,
		logger:   logger.With("device", dev.Name),
		raw:      make([]byte, deviceReadBatch*inputEventSize),
		batch:    make([]inputEvent, 0, deviceReadBatch),
	}
}

// runDeviceListener blocks until ctx is cancelled (returns nil) or the device
// fails (returns an error wrapping ErrDeviceUnavailable).
func runDeviceListener(ctx context.Context, dev *Device, bindings *BindingTable, out chan<- Event, logger *slog.Logger) error {
	return newDeviceListener(dev, bindings, out, logger).run(ctx)
}

// serveDevice runs the listener for dev and closes the device if the
// listener fails. The error is logged, not returned.
func serveDevice(ctx context.Context, dev *Device, bindings *BindingTable, out chan<- Event, logger *slog.Logger) {
	err := runDeviceListener(ctx, dev, bindings, out, logger)
	if err == nil {
		return
	}
	logger.Error("device listener stopped", "device", dev.Name, "path", dev.Path, "error", err)
	if cerr := dev.Close(); cerr != nil {
		logger.Warn("device close failed", "device", dev.Name, "error", cerr)
	}
}

func (l *deviceListener) run(ctx context.Context) error {
	fds := []unix.PollFd{{Fd: int32(l.dev.fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fds[0].Revents = 0
		n, err := unix.Poll(fds, devicePollTimeoutMS)
		if err != nil {
			// Handle interrupted system call (e.g., SIGINT)
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("%w: poll %s: %v", ErrDeviceUnavailable, l.dev.Name, err)
		}
		if n == 0 {
			continue
		}

		revents := fds[0].Revents
		if revents&unix.POLLIN != 0 {
			if err := l.drain(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: read %s: %v", ErrDeviceUnavailable, l.dev.Name, err)
			}
		}
		if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return fmt.Errorf("%w: device error/hangup: %s", ErrDeviceUnavailable, l.dev.Name)
		}
	}
}

// drain reads until the descriptor would block, handling each decoded event in order.
func (l *deviceListener) drain(ctx context.Context) error {
	for {
		nr, err := unix.Read(l.dev.fd, l.raw)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				return nil
			}
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if nr == 0 {
			return io.EOF
		}

		l.pending = append(l.pending, l.raw[:nr]...)
		var consumed int
		l.batch, consumed = decodeInputEvents(l.pending, l.batch[:0])
		l.pending = l.pending[:copy(l.pending, l.pending[consumed:])]

		for _, ev := range l.batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.handle(ctx, ev)
		}
	}
}

func (l *deviceListener) handle(ctx context.Context, ev inputEvent) {
	if ev.Type != EV_KEY || ev.Value != evValuePress {
		return
	}

	action, ok := l.bindings.Resolve(l.dev.Name, ev.Code)
	if !ok {
		l.logger.Debug("unmapped key", "key", keyName(ev.Code))
		return
	}

	l.logger.Debug("key resolved", "key", keyName(ev.Code), "action", action.String())
	select {
	case l.out <- ActionEvent{Device: l.dev.Name, Action: action, At: time.Now()}:
	case <-ctx.Done():
	}
}
