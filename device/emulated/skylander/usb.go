package skylander

import (
	"fmt"
	"sync"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/pkg"
)

// USB is the Skylander portal as seen by the host's USB stack. Commands
// arrive as HID SET_REPORT control transfers; their replies are queued and
// handed out by later interrupt polls.
type USB struct {
	portal *Portal
	sched  device.Scheduler
	desc   device.Descriptors
	std    *device.StandardRequestHandler

	mutex    sync.Mutex
	attached bool
	iface    uint8

	replies device.Queue[[BufferSize]byte]
}

var _ device.Emulated = (*USB)(nil)

// NewUSB creates the USB front end of portal, completing transfers through
// sched.
func NewUSB(portal *Portal, sched device.Scheduler) *USB {
	u := &USB{
		portal: portal,
		sched:  sched,
		desc:   Descriptors(),
	}
	u.std = device.NewStandardRequestHandler(&u.desc)
	return u
}

// Portal returns the figure registry behind the device.
func (u *USB) Portal() *Portal {
	return u.portal
}

// ID implements device.Emulated.
func (u *USB) ID() uint64 {
	return u.desc.ID()
}

// Descriptors implements device.Emulated.
func (u *USB) Descriptors() *device.Descriptors {
	return &u.desc
}

// Attach implements device.Emulated. The first attach announces figures
// loaded before the host opened the portal.
func (u *USB) Attach() error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.attached {
		return nil
	}
	u.log("opening device")
	u.attached = true
	u.portal.UpdateStatus()
	return nil
}

// AttachAndChangeInterface implements device.Emulated.
func (u *USB) AttachAndChangeInterface(iface uint8) error {
	if err := u.Attach(); err != nil {
		return err
	}
	return u.ChangeInterface(iface)
}

// ChangeInterface implements device.Emulated.
func (u *USB) ChangeInterface(iface uint8) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	u.log("changing interface", "to", iface)
	u.iface = iface
	return nil
}

// CancelTransfer implements device.Emulated. Transfers still waiting on
// their completion time cannot be abandoned.
func (u *USB) CancelTransfer(ep uint8) error {
	pkg.LogInfo(pkg.ComponentPortal, "cancelling transfers",
		"vid", fmt.Sprintf("%04x", VendorID),
		"pid", fmt.Sprintf("%04x", ProductID),
		"endpoint", fmt.Sprintf("%#02x", ep))
	if n := u.sched.Pending(); n > 0 {
		return fmt.Errorf("%d transfers in flight: %w", n, pkg.ErrBusy)
	}
	u.sched.Clear()
	return nil
}

// Submit implements device.Emulated.
func (u *USB) Submit(t *device.Transfer) error {
	switch t.Kind {
	case device.TransferKindControl:
		return u.submitControl(t)
	case device.TransferKindInterrupt:
		u.submitInterrupt(t)
		return nil
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
	pkg.LogDebug(pkg.ComponentPortal, msg, args...)
}

func (u *USB) submitControl(t *device.Transfer) error {
	u.log("control", "setup", t.Setup.String())

	if t.Setup.IsStandard() {
		resp, err := u.std.HandleSetup(&t.Setup)
		if err != nil {
			t.Complete(pkg.TransferStatusStall)
			return fmt.Errorf("control %s: %w", t.Setup.String(), err)
		}
		u.sched.Schedule(t, resp, len(resp), ControlDelay)
		return nil
	}

	var echo []byte
	count := 0
	switch {
	case t.Setup.IsSetReport():
		var prefix []byte
		prefix, count = u.command(t.Buffer)
		echo = make([]byte, count)
		copy(echo, prefix)
	case t.Setup.IsClass() && (t.Setup.Request == device.RequestHIDSetIdle || t.Setup.Request == device.RequestHIDSetProtocol):
		count = 8
	default:
		pkg.LogWarn(pkg.ComponentPortal, "unhandled request", "setup", t.Setup.String())
	}
	u.sched.Schedule(t, echo, count, ControlDelay)
	return nil
}

// command runs one SET_REPORT payload. It returns the command bytes echoed
// into the control transfer and its expected count. The echo is zero
// padded to that count. Payloads of the wrong length return neither and
// queue nothing.
func (u *USB) command(buf []byte) ([]byte, int) {
	n := len(buf)
	if n == 0 {
		u.log("empty report")
		return nil, 0
	}

	switch buf[0] {
	case CommandActivate:
		if n != 2 && n != 32 {
			break
		}
		var reply [BufferSize]byte
		copy(reply[:], []byte{CommandActivate, buf[1], 0xFF, 0x77})
		u.replies.Push(reply)
		u.portal.Activate()
		return buf[:2], 10

	case CommandColor:
		if n != 4 && n != 32 {
			break
		}
		u.portal.SetLEDs(SideBoth, Color{buf[1], buf[2], buf[3]})
		return buf[:4], 12

	case CommandFade:
		if n != 7 {
			break
		}
		u.portal.SetLEDs(Side(buf[1]), Color{buf[2], buf[3], buf[4]})
		var reply [BufferSize]byte
		reply[0] = CommandFade
		u.replies.Push(reply)
		return buf[:7], 15

	case CommandLight:
		if n != 5 {
			break
		}
		side := SideRight
		switch buf[1] {
		case 0x01:
			side = SideTrap
		case 0x02:
			side = SideLeft
		}
		u.portal.SetLEDs(side, Color{buf[2], buf[3], buf[4]})
		return buf[:5], 13

	case CommandAudio:
		if n != 2 {
			break
		}
		var reply [BufferSize]byte
		copy(reply[:], []byte{CommandAudio, buf[1], 0x00, 0x19})
		u.replies.Push(reply)
		return buf[:2], 10

	case CommandQuery:
		if n < 3 {
			break
		}
		u.replies.Push(u.portal.QueryBlock(buf[1]&0x0F, buf[2]))
		return buf[:3], 11

	case CommandReady:
		if n != 2 && n != 32 {
			break
		}
		var reply [BufferSize]byte
		copy(reply[:], []byte{CommandReady, 0x02, 0x1B})
		u.replies.Push(reply)
		return []byte{CommandReady, 0x00}, 10

	case CommandStatus:
		return buf[:1], 9

	case CommandVersion:
		if n < 4 {
			break
		}
		return buf[:4], 12

	case CommandWrite:
		if n < 19 {
			break
		}
		u.replies.Push(u.portal.WriteBlock(buf[1]&0x0F, buf[2], buf[3:19]))
		return buf[:19], 19

	default:
		pkg.LogWarn(pkg.ComponentPortal, "unknown command", "command", fmt.Sprintf("%#02x", buf[0]))
		return nil, 0
	}

	u.log("unexpected report length", "command", string(rune(buf[0])), "length", n)
	return nil, 0
}

func (u *USB) submitInterrupt(t *device.Transfer) {
	u.log("interrupt", "length", t.Len(), "endpoint", fmt.Sprintf("%#02x", t.Endpoint))

	if n := t.Len(); n > ReportSize {
		var audio [BufferSize]byte
		copy(audio[:], t.Buffer)
		u.sched.Schedule(t, audio[:], n, AudioDelay)
		return
	}
	if reply, ok := u.replies.Pop(); ok {
		u.sched.Schedule(t, reply[:], ReportSize, ReplyDelay)
		return
	}
	status := u.portal.Status()
	u.sched.Schedule(t, status[:], ReportSize, StatusDelay)
}
