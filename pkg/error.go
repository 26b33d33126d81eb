package pkg

import "errors"

// Transfer and device errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrCancelled indicates a cancelled transfer.
	ErrCancelled = errors.New("transfer cancelled")

	// ErrBusy indicates a transfer is still in flight.
	ErrBusy = errors.New("resource busy")

	// ErrNotSupported indicates an unsupported operation or transfer kind.
	ErrNotSupported = errors.New("not supported")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidRequest indicates an unsupported or malformed control request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyRunning indicates a transfer thread is already running.
	ErrAlreadyRunning = errors.New("already running")
)

// Figure and registry errors.
var (
	// ErrFigureNotFound indicates a numeric id that is not in the catalog.
	ErrFigureNotFound = errors.New("figure not found")

	// ErrFigureTooSmall indicates a figure file shorter than the family's data size.
	ErrFigureTooSmall = errors.New("figure file too small")

	// ErrFigureCorrupt indicates figure metadata that fails its checksum.
	ErrFigureCorrupt = errors.New("figure metadata corrupt")

	// ErrSlotInvalid indicates an unknown slot or role name.
	ErrSlotInvalid = errors.New("invalid slot")

	// ErrSlotEmpty indicates an operation on a slot with no figure.
	ErrSlotEmpty = errors.New("slot empty")

	// ErrNoFreeSlot indicates every slot of a portal is occupied.
	ErrNoFreeSlot = errors.New("no free slot")

	// ErrUnknownFamily indicates an unsupported portal family name.
	ErrUnknownFamily = errors.New("unknown portal family")
)

// TransferStatus represents the completion status of a USB transfer.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess   TransferStatus = iota // Transfer completed successfully
	TransferStatusError                           // Transfer failed with error
	TransferStatusStall                           // Endpoint stalled
	TransferStatusCancelled                       // Transfer was cancelled
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusError:
		return "error"
	case TransferStatusStall:
		return "stall"
	case TransferStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status. A device
// completes a transfer it cannot carry with TransferStatusError.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusSuccess:
		return nil
	case TransferStatusStall:
		return ErrStall
	case TransferStatusCancelled:
		return ErrCancelled
	default:
		return ErrNotSupported
	}
}
