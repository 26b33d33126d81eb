package infinity

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/pkg"
)

// USB is the Infinity base as seen by the host's USB stack. Command frames
// and polls both arrive as interrupt transfers; each command is echoed and
// its reply handed to the oldest waiting poll.
type USB struct {
	base  *Base
	sched device.Scheduler
	desc  device.Descriptors
	std   *device.StandardRequestHandler

	mutex    sync.Mutex
	attached bool
	iface    uint8

	parked  device.Queue[*device.Transfer]
	queries device.Queue[[ReportSize]byte]
}

var _ device.Emulated = (*USB)(nil)

// NewUSB creates the USB front end of base, completing transfers through
// sched.
func NewUSB(base *Base, sched device.Scheduler) *USB {
	u := &USB{
		base:  base,
		sched: sched,
		desc:  Descriptors(),
	}
	u.std = device.NewStandardRequestHandler(&u.desc)
	return u
}

// Base returns the figure registry behind the device.
func (u *USB) Base() *Base {
	return u.base
}

// ID implements device.Emulated.
func (u *USB) ID() uint64 {
	return u.desc.ID()
}

// Descriptors implements device.Emulated.
func (u *USB) Descriptors() *device.Descriptors {
	return &u.desc
}

// Attach implements device.Emulated.
func (u *USB) Attach() error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.attached {
		return nil
	}
	u.log("opening device")
	u.attached = true
	return nil
}

// AttachAndChangeInterface implements device.Emulated.
func (u *USB) AttachAndChangeInterface(iface uint8) error {
	if err := u.Attach(); err != nil {
		return err
	}
	u.mutex.Lock()
	active := u.iface
	u.mutex.Unlock()
	if iface != active {
		return u.ChangeInterface(iface)
	}
	return nil
}

// ChangeInterface implements device.Emulated.
func (u *USB) ChangeInterface(iface uint8) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.log("changing interface", "to", iface)
	u.iface = iface
	return nil
}

// CancelTransfer implements device.Emulated. It always succeeds and leaves
// scheduled transfers in place; each one still completes at its expected
// time.
func (u *USB) CancelTransfer(ep uint8) error {
	pkg.LogInfo(pkg.ComponentBase, "cancelling transfers",
		"vid", fmt.Sprintf("%04x", VendorID),
		"pid", fmt.Sprintf("%04x", ProductID),
		"endpoint", fmt.Sprintf("%#02x", ep))
	return nil
}

// Submit implements device.Emulated.
func (u *USB) Submit(t *device.Transfer) error {
	switch t.Kind {
	case device.TransferKindControl:
		return u.submitControl(t)
	case device.TransferKindInterrupt:
		return u.submitInterrupt(t)
	case device.TransferKindBulk, device.TransferKindIsochronous:
		u.log(t.Kind.String(),
			"length", t.Len(),
			"endpoint", fmt.Sprintf("%#02x", t.Endpoint),
			"packets", t.NumPackets)
		t.Complete(pkg.TransferStatusError)
		return fmt.Errorf("%s transfer: %w", t.Kind, pkg.ErrNotSupported)
	default:
		return fmt.Errorf("transfer kind %d: %w", t.Kind, pkg.ErrInvalidParameter)
	}
}

func (u *USB) log(msg string, kv ...any) {
	args := append([]any{
		"vid", fmt.Sprintf("%04x", VendorID),
		"pid", fmt.Sprintf("%04x", ProductID),
	}, kv...)
	pkg.LogDebug(pkg.ComponentBase, msg, args...)
}

// submitControl answers enumeration requests. Class requests carry no
// protocol for the base and are left uncompleted.
func (u *USB) submitControl(t *device.Transfer) error {
	u.log("control", "setup", t.Setup.String())
	if !t.Setup.IsStandard() {
		return nil
	}
	resp, err := u.std.HandleSetup(&t.Setup)
	if err != nil {
		t.Complete(pkg.TransferStatusStall)
		return fmt.Errorf("control %s: %w", t.Setup.String(), err)
	}
	u.sched.Schedule(t, resp, len(resp), ControlDelay)
	return nil
}

func (u *USB) submitInterrupt(t *device.Transfer) error {
	u.log("interrupt", "length", t.Len(), "endpoint", fmt.Sprintf("%#02x", t.Endpoint))

	buf := t.Buffer
	if len(buf) == 0 {
		return nil
	}

	switch buf[0] {
	case FramePoll:
		u.parked.Push(t)

	case FrameReply, FrameNotification:
		if frame, ok := u.base.PopNotification(); ok {
			u.sched.Schedule(t, frame[:], ReportSize, ReplyDelay)
		} else if reply, ok := u.queries.Pop(); ok {
			u.sched.Schedule(t, reply[:], ReportSize, ReplyDelay)
		} else {
			u.parked.Push(t)
		}

	case FrameCommand:
		u.submitCommand(t)

	default:
		u.log("unrecognized frame", "marker", fmt.Sprintf("%#02x", buf[0]))
	}
	return nil
}

// submitCommand handles an FF frame: FF, length, command, sequence, data...,
// checksum, where length counts command, sequence and data.
func (u *USB) submitCommand(t *device.Transfer) {
	buf := t.Buffer
	if len(buf) < 4 {
		u.log("truncated frame", "length", len(buf))
		return
	}
	command, sequence := buf[2], buf[3]
	if need, ok := commandMinLength[command]; ok && len(buf) < need {
		u.log("truncated command",
			"command", fmt.Sprintf("%#02x", command),
			"length", len(buf),
			"want", need)
		return
	}
	if end := 2 + int(buf[1]); end < len(buf) && Checksum(buf[:end]) != buf[end] {
		u.log("checksum mismatch",
			"command", fmt.Sprintf("%#02x", command),
			"got", fmt.Sprintf("%#02x", buf[end]),
			"want", fmt.Sprintf("%#02x", Checksum(buf[:end])))
	}

	reply, ok := u.dispatch(command, sequence, buf)

	var echo [ReportSize]byte
	copy(echo[:], buf)
	u.sched.Schedule(t, echo[:], ReportSize, EchoDelay)

	if !ok {
		return
	}
	if poll, ok := u.parked.Pop(); ok {
		u.sched.Schedule(poll, reply[:], ReportSize, ReplyDelay)
	} else {
		u.queries.Push(reply)
	}
}

// dispatch runs one command against the base. Returns false for commands
// the base does not know.
func (u *USB) dispatch(command, sequence uint8, buf []byte) ([ReportSize]byte, bool) {
	switch {
	case command == CommandActivate:
		u.base.Activate()
		var reply [ReportSize]byte
		copy(reply[:], activationReply[:])
		return reply, true

	case command == CommandSeed:
		u.base.SeedRandom(binary.BigEndian.Uint64(buf[4:12]))
		return BlankResponse(sequence), true

	case command == CommandNextRandom:
		return u.base.NextRandom(sequence), true

	case command == CommandPresent:
		return u.base.PresentFigures(sequence), true

	case command == CommandReadBlock:
		return u.base.QueryBlock(buf[4], buf[5], sequence), true

	case command == CommandWriteBlock:
		return u.base.WriteBlock(buf[4], buf[5], buf[7:7+BlockSize], sequence), true

	case command == CommandTagID:
		return u.base.FigureIdentifier(buf[4], sequence), true

	case command == CommandStatus,
		command >= CommandColorFirst && command <= CommandColorLast:
		return BlankResponse(sequence), true
	}

	pkg.LogWarn(pkg.ComponentBase, "unknown command",
		"command", fmt.Sprintf("%#02x", command),
		"sequence", sequence)
	return [ReportSize]byte{}, false
}
