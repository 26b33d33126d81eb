package skylander

import (
	"time"

	"github.com/ardnew/softportal/device"
)

// USB identity of the portal.
const (
	VendorID  = 0x1430
	ProductID = 0x0150
)

// Endpoint addresses.
const (
	EndpointIn  = 0x81
	EndpointOut = 0x02
)

// Figure geometry.
const (
	BlockSize  = 16
	BlockCount = 64
	FigureSize = BlockSize * BlockCount
	MaxFigures = 16
)

// ReportSize is the length of a status or reply report. BufferSize bounds
// every response buffer, including audio echoes.
const (
	ReportSize = 32
	BufferSize = 64
)

// Command letters carried in the first byte of a SET_REPORT payload.
const (
	CommandActivate = 'A'
	CommandColor    = 'C'
	CommandFade     = 'J'
	CommandLight    = 'L'
	CommandAudio    = 'M'
	CommandQuery    = 'Q'
	CommandReady    = 'R'
	CommandStatus   = 'S'
	CommandVersion  = 'V'
	CommandWrite    = 'W'
)

// Per-slot status bits.
const (
	statusPresent = 0x01
	statusChanged = 0x02
)

// Completion delays.
const (
	ControlDelay = 100 * time.Microsecond
	AudioDelay   = 1 * time.Millisecond
	StatusDelay  = 2 * time.Millisecond
	ReplyDelay   = 22 * time.Millisecond
)

// Descriptors returns the descriptor tables reported by the portal.
func Descriptors() device.Descriptors {
	return device.Descriptors{
		Device: device.DeviceDescriptor{
			Length:            18,
			DescriptorType:    device.DescriptorTypeDevice,
			USBVersion:        0x0200,
			MaxPacketSize0:    64,
			VendorID:          VendorID,
			ProductID:         ProductID,
			DeviceVersion:     0x0100,
			ManufacturerIndex: 1,
			ProductIndex:      2,
			NumConfigurations: 1,
		},
		Configurations: []device.ConfigurationDescriptor{{
			Length:             9,
			DescriptorType:     device.DescriptorTypeConfiguration,
			TotalLength:        41,
			NumInterfaces:      1,
			ConfigurationValue: 1,
			Attributes:         device.ConfigAttrBusPowered,
			MaxPower:           250,
		}},
		Interfaces: []device.InterfaceDescriptor{{
			Length:         9,
			DescriptorType: device.DescriptorTypeInterface,
			NumEndpoints:   2,
			InterfaceClass: device.ClassHID,
		}},
		Endpoints: []device.EndpointDescriptor{
			{
				Length:          7,
				DescriptorType:  device.DescriptorTypeEndpoint,
				EndpointAddress: EndpointIn,
				Attributes:      device.EndpointTypeInterrupt,
				MaxPacketSize:   64,
				Interval:        1,
			},
			{
				Length:          7,
				DescriptorType:  device.DescriptorTypeEndpoint,
				EndpointAddress: EndpointOut,
				Attributes:      device.EndpointTypeInterrupt,
				MaxPacketSize:   64,
				Interval:        1,
			},
		},
	}
}
