package device

import "fmt"

// Limits for fixed-size arrays.
const (
	// MaxEndpointsPerInterface is the maximum number of endpoints per interface.
	MaxEndpointsPerInterface = 16

	// MaxInterfacesPerConfiguration is the maximum number of interfaces per configuration.
	MaxInterfacesPerConfiguration = 8

	// MaxIsoPackets is the maximum number of isochronous packets per transfer.
	MaxIsoPackets = 256

	// MaxConfigurationSize bounds the full configuration descriptor blob.
	MaxConfigurationSize = 512
)

// TransferKind identifies the USB transfer category of a [Transfer].
type TransferKind uint8

// Transfer kinds. Values match the endpoint attribute transfer type bits.
const (
	TransferKindControl     TransferKind = EndpointTypeControl
	TransferKindIsochronous TransferKind = EndpointTypeIsochronous
	TransferKindBulk        TransferKind = EndpointTypeBulk
	TransferKindInterrupt   TransferKind = EndpointTypeInterrupt
)

// String returns a human-readable transfer kind.
func (k TransferKind) String() string {
	switch k {
	case TransferKindControl:
		return "control"
	case TransferKindIsochronous:
		return "isochronous"
	case TransferKindBulk:
		return "bulk"
	case TransferKindInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseTransferKind returns the transfer kind named by s.
func ParseTransferKind(s string) (TransferKind, bool) {
	for _, k := range []TransferKind{
		TransferKindControl,
		TransferKindIsochronous,
		TransferKindBulk,
		TransferKindInterrupt,
	} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	EndpointTypeControl     = 0x00 // Control transfer
	EndpointTypeIsochronous = 0x01 // Isochronous transfer
	EndpointTypeBulk        = 0x02 // Bulk transfer
	EndpointTypeInterrupt   = 0x03 // Interrupt transfer
)

// EndpointTypeMask selects the transfer type bits of endpoint attributes.
const EndpointTypeMask = 0x03

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)

// EndpointNumber returns the endpoint number (0-15) of an endpoint address.
func EndpointNumber(addr uint8) uint8 {
	return addr & 0x0F
}

// EndpointIsIn returns true if addr names an IN endpoint (device to host).
func EndpointIsIn(addr uint8) bool {
	return addr&EndpointDirectionIn != 0
}
