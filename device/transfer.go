package device

import (
	"sync"
	"time"

	"github.com/ardnew/softportal/pkg"
)

// TransferCallback is called when a transfer completes.
type TransferCallback func(t *Transfer)

// Transfer represents one USB transfer submitted to an emulated device.
//
// Buffer is a view of the guest memory region named by the request; its
// length is the declared transfer length and every access is bounds-checked
// against it. After dispatch the device records how many bytes the guest
// should see (ExpectedCount) and the earliest time the transfer may be
// completed (ExpectedTime).
type Transfer struct {
	Kind     TransferKind
	Endpoint uint8 // Endpoint address including direction

	// Setup packet for control transfers
	Setup SetupPacket

	// Data buffer
	Buffer []byte

	// Isochronous packet count
	NumPackets int

	// Filled in by the device when the transfer is scheduled
	ExpectedCount int
	ExpectedTime  time.Time

	// Completion
	Status   pkg.TransferStatus
	Length   int // Bytes copied into Buffer
	Callback TransferCallback

	mutex     sync.Mutex
	completed bool
}

// NewControlTransfer creates a new control transfer. The declared length is
// taken from the setup packet and buf is truncated to it.
func NewControlTransfer(setup SetupPacket, buf []byte) *Transfer {
	if int(setup.Length) < len(buf) {
		buf = buf[:setup.Length]
	}
	return &Transfer{
		Kind:   TransferKindControl,
		Setup:  setup,
		Buffer: buf,
	}
}

// NewBulkTransfer creates a new bulk transfer.
func NewBulkTransfer(ep uint8, buf []byte) *Transfer {
	return &Transfer{
		Kind:     TransferKindBulk,
		Endpoint: ep,
		Buffer:   buf,
	}
}

// NewInterruptTransfer creates a new interrupt transfer.
func NewInterruptTransfer(ep uint8, buf []byte) *Transfer {
	return &Transfer{
		Kind:     TransferKindInterrupt,
		Endpoint: ep,
		Buffer:   buf,
	}
}

// NewIsochronousTransfer creates a new isochronous transfer.
// numPackets is clamped to MaxIsoPackets.
func NewIsochronousTransfer(ep uint8, buf []byte, numPackets int) *Transfer {
	if numPackets > MaxIsoPackets {
		numPackets = MaxIsoPackets
	}
	return &Transfer{
		Kind:       TransferKindIsochronous,
		Endpoint:   ep,
		Buffer:     buf,
		NumPackets: numPackets,
	}
}

// WithCallback sets the completion callback.
func (t *Transfer) WithCallback(cb TransferCallback) *Transfer {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Callback = cb
	return t
}

// Len returns the declared transfer length.
func (t *Transfer) Len() int {
	return len(t.Buffer)
}

// Data returns the first n bytes of the transfer buffer, or nil if the
// buffer is shorter than n.
func (t *Transfer) Data(n int) []byte {
	if n < 0 || n > len(t.Buffer) {
		return nil
	}
	return t.Buffer[:n]
}

// FillBuffer copies at most min(count, len(Buffer), len(data)) bytes of
// data into the transfer buffer and returns the number copied.
func (t *Transfer) FillBuffer(data []byte, count int) int {
	if count < 0 {
		count = 0
	}
	n := min(count, len(t.Buffer), len(data))
	copy(t.Buffer[:n], data[:n])
	t.mutex.Lock()
	t.Length = n
	t.mutex.Unlock()
	return n
}

// Complete marks the transfer as completed with the given status.
// Only the first call has any effect.
func (t *Transfer) Complete(status pkg.TransferStatus) {
	t.mutex.Lock()
	if t.completed {
		t.mutex.Unlock()
		return
	}
	t.completed = true
	t.Status = status
	cb := t.Callback
	t.mutex.Unlock()

	if cb != nil {
		cb(t)
	}
}

// IsCompleted returns true if the transfer is complete.
func (t *Transfer) IsCompleted() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.completed
}

// IsSuccess returns true if the transfer completed successfully.
func (t *Transfer) IsSuccess() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.completed && t.Status == pkg.TransferStatusSuccess
}

// Direction returns the transfer direction based on the setup packet for
// control transfers and on the endpoint address otherwise.
func (t *Transfer) Direction() uint8 {
	if t.Kind == TransferKindControl {
		return t.Setup.Direction()
	}
	return t.Endpoint & EndpointDirectionIn
}

// IsIn returns true if this is an IN transfer (device to host).
func (t *Transfer) IsIn() bool {
	return t.Direction() == EndpointDirectionIn
}

// IsOut returns true if this is an OUT transfer (host to device).
func (t *Transfer) IsOut() bool {
	return t.Direction() == EndpointDirectionOut
}
