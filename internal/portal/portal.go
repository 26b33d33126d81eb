// Package portal owns the virtual device of one process: the figure
// registry and USB front end of the configured family, the transfer thread
// completing its transfers, and the optional trace and figure library.
package portal

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/device/emulated/infinity"
	"github.com/ardnew/softportal/device/emulated/skylander"
	"github.com/ardnew/softportal/internal/config"
	"github.com/ardnew/softportal/internal/library"
	"github.com/ardnew/softportal/internal/trace"
	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

// Slot describes one figure position.
type Slot struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Figure  string `json:"figure,omitempty"`
}

// Option configures a [Device].
type Option func(*options)

type options struct {
	clock device.Clock
}

// WithClock overrides the transfer thread's clock. A non-realtime
// configuration otherwise gets a manual clock reading the current time.
func WithClock(c device.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Device is the virtual device context.
type Device struct {
	cfg    config.Config
	thread *device.TransferThread
	dev    device.Emulated

	base   *infinity.Base
	portal *skylander.Portal

	trace   *trace.Writer
	library *library.Library

	mutex sync.Mutex
}

// New builds the device described by cfg, loads its configured figures and
// attaches it.
func New(cfg config.Config, opts ...Option) (*Device, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		if cfg.Timing.Realtime {
			o.clock = device.SystemClock{}
		} else {
			o.clock = device.NewManualClock(time.Now())
		}
	}

	d := &Device{
		cfg:    cfg,
		thread: device.NewTransferThread(device.WithClock(o.clock)),
	}
	switch cfg.Family {
	case config.FamilyInfinity:
		d.base = infinity.NewBase()
		d.dev = infinity.NewUSB(d.base, d.thread)
	case config.FamilySkylander:
		d.portal = skylander.NewPortal()
		d.dev = skylander.NewUSB(d.portal, d.thread)
	}

	if cfg.Trace.Dir != "" {
		d.trace = trace.NewWriter(cfg.Trace.Dir, cfg.Trace.Prefix)
	}
	if cfg.Library.Path != "" {
		lib, err := library.Open(cfg.Library.Path)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.library = lib
	}

	for _, f := range cfg.Figures {
		if _, err := d.Load(f.Slot, f.Path); err != nil {
			d.Close()
			return nil, err
		}
	}
	if err := d.dev.Attach(); err != nil {
		d.Close()
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentDevice, "device ready",
		"family", cfg.Family,
		"id", fmt.Sprintf("%#016x", d.dev.ID()),
		"figures", len(cfg.Figures))
	return d, nil
}

// Family returns the configured family name.
func (d *Device) Family() string {
	return d.cfg.Family
}

// Emulated returns the USB front end.
func (d *Device) Emulated() device.Emulated {
	return d.dev
}

// Thread returns the transfer thread completing the device's transfers.
func (d *Device) Thread() *device.TransferThread {
	return d.thread
}

// Library returns the figure library, or nil if none is configured.
func (d *Device) Library() *library.Library {
	return d.library
}

// Submit hands t to the device. With a trace configured, t is recorded
// when it completes.
func (d *Device) Submit(t *device.Transfer) error {
	if d.trace != nil {
		request := append([]byte(nil), t.Buffer...)
		submitted := d.thread.Clock().Now()
		next := t.Callback
		t.WithCallback(func(t *device.Transfer) {
			if err := d.trace.Write(trace.NewRecord(d.cfg.Family, t, request, submitted)); err != nil {
				pkg.LogWarn(pkg.ComponentTrace, "transfer not traced", "error", err)
			}
			if next != nil {
				next(t)
			}
		})
	}
	return d.dev.Submit(t)
}

// Start runs the transfer thread in the background. A non-realtime device
// is driven by [Device.Drain] instead and Start does nothing.
func (d *Device) Start(ctx context.Context) error {
	if _, manual := d.thread.Clock().(*device.ManualClock); manual {
		return nil
	}
	return d.thread.Start(ctx)
}

// Drain completes every scheduled transfer.
func (d *Device) Drain(ctx context.Context) (int, error) {
	return d.thread.Drain(ctx)
}

// Activate turns the registry on as the host's activation command would.
func (d *Device) Activate() {
	if d.base != nil {
		d.base.Activate()
	} else {
		d.portal.Activate()
	}
}

// Deactivate turns the registry off.
func (d *Device) Deactivate() {
	if d.base != nil {
		d.base.Deactivate()
	} else {
		d.portal.Deactivate()
	}
}

// Load places the figure file at path on slot and returns where it landed.
// The file stays open and receives the host's block writes.
func (d *Device) Load(slot, path string) (Slot, error) {
	if err := config.ValidateSlot(d.cfg.Family, slot); err != nil {
		return Slot{}, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.base != nil {
		role, _ := infinity.ParseRole(slot)
		f, data, err := storage.OpenFigure(path, infinity.FigureSize)
		if err != nil {
			return Slot{}, err
		}
		d.base.RemoveFigure(role)
		name, err := d.base.LoadFigure(data, f, role)
		if err != nil {
			_ = f.Close()
			return Slot{}, err
		}
		if name == "" {
			pkg.LogWarn(pkg.ComponentBase, "figure not in catalog", "path", path)
		}
		return Slot{Name: role.String(), Present: true, Figure: name}, nil
	}

	f, data, err := storage.OpenFigure(path, skylander.FigureSize)
	if err != nil {
		return Slot{}, err
	}
	n, err := d.portal.LoadFigure(data, f)
	if err != nil {
		_ = f.Close()
		return Slot{}, err
	}
	if slot != "" && slot != strconv.Itoa(n) {
		pkg.LogInfo(pkg.ComponentPortal, "figure placed in another slot", "requested", slot, "slot", n)
	}
	return Slot{Name: strconv.Itoa(n), Present: true, Figure: fmt.Sprintf("%08x", binary.LittleEndian.Uint32(data[:4]))}, nil
}

// Remove takes the figure off slot.
func (d *Device) Remove(slot string) error {
	if slot == "" {
		return fmt.Errorf("empty slot: %w", pkg.ErrSlotInvalid)
	}
	if err := config.ValidateSlot(d.cfg.Family, slot); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.base != nil {
		role, _ := infinity.ParseRole(slot)
		d.base.RemoveFigure(role)
		return nil
	}
	n, _ := strconv.Atoi(slot)
	return d.portal.RemoveFigure(n)
}

// Create writes a new figure file for the catalog number and records it in
// the library. Only the Infinity family builds figures.
func (d *Device) Create(ctx context.Context, path string, number uint16) (infinity.Entry, error) {
	if d.base == nil {
		return infinity.Entry{}, fmt.Errorf("create on %s: %w", d.cfg.Family, pkg.ErrNotSupported)
	}
	e, err := infinity.CreateFigure(path, number)
	if err != nil {
		return e, err
	}
	if d.library != nil {
		uid := e.UIDBytes()
		err := d.library.Record(ctx, library.Entry{
			Path:   path,
			Family: d.cfg.Family,
			Name:   e.Name,
			Number: int(e.Number),
			UID:    hex.EncodeToString(uid[:]),
		})
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

// Slots returns a snapshot of every slot.
func (d *Device) Slots() []Slot {
	if d.base != nil {
		figs := d.base.Figures()
		out := make([]Slot, 0, len(figs))
		for _, f := range figs {
			out = append(out, Slot{Name: f.Role.String(), Present: f.Present, Figure: f.Name})
		}
		return out
	}
	figs := d.portal.Figures()
	out := make([]Slot, 0, len(figs))
	for _, f := range figs {
		s := Slot{Name: strconv.Itoa(f.Slot), Present: f.Present}
		if f.Present {
			s.Figure = fmt.Sprintf("%08x", f.Serial)
		}
		out = append(out, s)
	}
	return out
}

// Close stops the transfer thread and releases every file.
func (d *Device) Close() error {
	d.thread.Stop()
	if d.base != nil {
		d.base.Close()
	}
	if d.portal != nil {
		d.portal.Close()
	}
	var err error
	if d.trace != nil {
		err = d.trace.Close()
	}
	if d.library != nil {
		if cerr := d.library.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
