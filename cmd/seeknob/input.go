package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sys/unix"
)

// ErrDeviceUnavailable is returned when an input device cannot be opened or read.
var ErrDeviceUnavailable = errors.New("device unavailable")

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// Device is an opened raw input source.
type Device struct {
	Name string
	Path string
	fd   int
}

// OpenDevice opens path read-only and non-blocking.
func OpenDevice(name, path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrDeviceUnavailable, name, path, err)
	}
	return &Device{Name: name, Path: path, fd: fd}, nil
}

// newDeviceFromFD wraps an already-open descriptor. The descriptor must be non-blocking.
func newDeviceFromFD(name string, fd int) *Device {
	return &Device{Name: name, Path: fmt.Sprintf("fd:%d", fd), fd: fd}
}

// Close releases the device handle. Safe to call more than once.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// DeviceRegistry holds every device that opened successfully at startup.
type DeviceRegistry struct {
	devices []*Device
}

// OpenDevices opens each configured device once. A device that fails to open
// is logged and left out; the others still load.
func OpenDevices(paths map[string]string, logger *slog.Logger) *DeviceRegistry {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	r := &DeviceRegistry{}
	for _, name := range names {
		dev, err := OpenDevice(name, paths[name])
		if err != nil {
			logger.Warn("input device not available", "device", name, "path", paths[name], "error", err)
			continue
		}
		logger.Info("opened input device", "device", name, "path", dev.Path)
		r.devices = append(r.devices, dev)
	}
	return r
}

// Devices returns the opened devices in name order.
func (r *DeviceRegistry) Devices() []*Device {
	return r.devices
}

// Close closes every device handle.
func (r *DeviceRegistry) Close() {
	for _, d := range r.devices {
		_ = d.Close()
	}
}

// decodeInputEvents parses whole input_event records from buf and returns
// the number of bytes consumed. A trailing partial record is left for the caller.
func decodeInputEvents(buf []byte, out []inputEvent) ([]inputEvent, int) {
	reader := bytes.NewReader(nil)
	consumed := 0
	for len(buf)-consumed >= inputEventSize {
		reader.Reset(buf[consumed : consumed+inputEventSize])
		consumed += inputEventSize

		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}
		out = append(out, ev)
	}
	return out, consumed
}
