package device

import (
	"encoding/binary"
	"sync"

	"github.com/ardnew/softportal/pkg"
)

// Standard request codes (USB 2.0 Spec Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestSetDescriptor    = 0x07
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
	RequestSynchFrame       = 0x0C
)

// MaxDescriptorResponseSize is the maximum size for descriptor responses.
const MaxDescriptorResponseSize = MaxConfigurationSize

// StandardRequestHandler answers chapter 9 requests for an emulated device
// from its fixed descriptor tables. Emulated devices route standard control
// transfers here and handle class requests themselves.
type StandardRequestHandler struct {
	desc *Descriptors

	mutex         sync.Mutex
	address       uint8
	configuration uint8
	altSetting    uint8

	responseBuf [MaxDescriptorResponseSize]byte
}

// NewStandardRequestHandler creates a handler serving desc.
func NewStandardRequestHandler(desc *Descriptors) *StandardRequestHandler {
	return &StandardRequestHandler{desc: desc}
}

// HandleSetup processes a standard SETUP request and returns the IN data
// stage (truncated to wLength), which is nil for OUT requests.
// The returned slice references an internal buffer and is valid until the
// next call.
func (h *StandardRequestHandler) HandleSetup(setup *SetupPacket) ([]byte, error) {
	if !setup.IsStandard() {
		return nil, pkg.ErrInvalidRequest
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	var n int
	switch setup.Request {
	case RequestGetStatus:
		// Bus powered, no remote wakeup, no halted endpoints.
		binary.LittleEndian.PutUint16(h.responseBuf[:2], 0)
		n = 2
	case RequestClearFeature, RequestSetFeature:
		return nil, nil
	case RequestSetAddress:
		h.address = uint8(setup.Value & 0x7F)
		return nil, nil
	case RequestGetDescriptor:
		var err error
		if n, err = h.getDescriptor(setup); err != nil {
			return nil, err
		}
	case RequestGetConfiguration:
		h.responseBuf[0] = h.configuration
		n = 1
	case RequestSetConfiguration:
		value := uint8(setup.Value)
		if value != 0 && h.desc.Configuration(value) == nil {
			return nil, pkg.ErrInvalidRequest
		}
		h.configuration = value
		return nil, nil
	case RequestGetInterface:
		h.responseBuf[0] = h.altSetting
		n = 1
	case RequestSetInterface:
		h.altSetting = uint8(setup.Value)
		return nil, nil
	default:
		return nil, pkg.ErrNotSupported
	}

	if n > int(setup.Length) {
		n = int(setup.Length)
	}
	return h.responseBuf[:n], nil
}

func (h *StandardRequestHandler) getDescriptor(setup *SetupPacket) (int, error) {
	switch setup.DescriptorType() {
	case DescriptorTypeDevice:
		return h.desc.Device.MarshalTo(h.responseBuf[:]), nil
	case DescriptorTypeConfiguration:
		n := h.desc.MarshalConfiguration(int(setup.DescriptorIndex()), h.responseBuf[:])
		if n == 0 {
			return 0, pkg.ErrInvalidRequest
		}
		return n, nil
	default:
		return 0, pkg.ErrNotSupported
	}
}

// Address returns the address assigned by SET_ADDRESS.
func (h *StandardRequestHandler) Address() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.address
}

// Configuration returns the value selected by SET_CONFIGURATION.
func (h *StandardRequestHandler) Configuration() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.configuration
}
