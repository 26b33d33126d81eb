package device

// Emulated is the contract between a host-side virtual USB layer and an
// emulated peripheral. Every transfer enters through Submit; the device
// switches on [Transfer.Kind] and hands response bytes and a completion
// delay to its [Scheduler].
type Emulated interface {
	// ID returns the packed vendor/product id (see [DeviceID]).
	ID() uint64

	// Descriptors returns the fixed descriptor tables reported during
	// enumeration.
	Descriptors() *Descriptors

	// Attach opens the device. Attaching an attached device is a no-op.
	Attach() error

	// AttachAndChangeInterface attaches and selects interface iface.
	AttachAndChangeInterface(iface uint8) error

	// ChangeInterface selects the active interface.
	ChangeInterface(iface uint8) error

	// CancelTransfer cancels pending transfers on endpoint ep. It fails
	// with pkg.ErrBusy when the device cannot abandon an in-flight transfer.
	CancelTransfer(ep uint8) error

	// Submit dispatches one transfer.
	Submit(t *Transfer) error
}
