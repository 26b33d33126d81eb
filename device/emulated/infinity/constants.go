package infinity

import (
	"time"

	"github.com/ardnew/softportal/device"
)

// USB identity of the base.
const (
	VendorID  = 0x0E6F
	ProductID = 0x0129
)

// Endpoint addresses.
const (
	EndpointIn  = 0x81
	EndpointOut = 0x01
)

// Figure file geometry. A figure is 5 pages of 0x40 bytes; frames address
// it in 16-byte blocks.
const (
	PageSize   = 0x40
	PageCount  = 5
	FigureSize = PageSize * PageCount
	BlockSize  = 16
	UIDSize    = 7
)

// ReportSize is the length of every frame exchanged on the interrupt
// endpoints.
const ReportSize = 32

// Frame markers.
const (
	FrameCommand      = 0xFF // Host to base
	FrameReply        = 0xAA // Base to host, answer to a command
	FrameNotification = 0xAB // Base to host, figure added or removed
	FramePoll         = 0x00 // First poll after attach
)

// Command codes carried in byte 2 of a command frame.
const (
	CommandActivate   = 0x80
	CommandSeed       = 0x81
	CommandNextRandom = 0x83
	CommandPresent    = 0xA1
	CommandReadBlock  = 0xA2
	CommandWriteBlock = 0xA3
	CommandTagID      = 0xB4
	CommandStatus     = 0xB5
	CommandColorFirst = 0x90
	CommandColorLast  = 0x96
)

const (
	figureMarker        = 0x09
	notificationAdded   = 0x00
	notificationRemoved = 0x01
	orderUnassigned     = 0xFF
)

// Minimum transfer lengths for commands that read attached data.
var commandMinLength = map[byte]int{
	CommandSeed:       12,
	CommandReadBlock:  6,
	CommandWriteBlock: 23,
	CommandTagID:      5,
}

// Completion delays.
const (
	EchoDelay    = 500 * time.Millisecond
	ReplyDelay   = 1000 * time.Millisecond
	ControlDelay = 100 * time.Microsecond
)

// activationReply is the fixed answer to CommandActivate.
var activationReply = [...]byte{
	0xAA, 0x15, 0x00, 0x00, 0x0F, 0x01, 0x00, 0x03, 0x02, 0x09, 0x09, 0x43,
	0x20, 0x32, 0x62, 0x36, 0x36, 0x4B, 0x34, 0x99, 0x67, 0x31, 0x93, 0x8C,
}

// Descriptors returns the descriptor tables reported by the base.
func Descriptors() device.Descriptors {
	return device.Descriptors{
		Device: device.DeviceDescriptor{
			Length:            0x12,
			DescriptorType:    device.DescriptorTypeDevice,
			USBVersion:        0x0200,
			MaxPacketSize0:    0x20,
			VendorID:          VendorID,
			ProductID:         ProductID,
			DeviceVersion:     0x0200,
			ManufacturerIndex: 1,
			ProductIndex:      2,
			SerialNumberIndex: 3,
			NumConfigurations: 1,
		},
		Configurations: []device.ConfigurationDescriptor{{
			Length:             9,
			DescriptorType:     device.DescriptorTypeConfiguration,
			TotalLength:        0x29,
			NumInterfaces:      1,
			ConfigurationValue: 1,
			Attributes:         device.ConfigAttrBusPowered,
			MaxPower:           0xFA,
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
				MaxPacketSize:   0x20,
				Interval:        1,
			},
			{
				Length:          7,
				DescriptorType:  device.DescriptorTypeEndpoint,
				EndpointAddress: EndpointOut,
				Attributes:      device.EndpointTypeInterrupt,
				MaxPacketSize:   0x20,
				Interval:        1,
			},
		},
	}
}
