package device

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softportal/pkg"
)

// USB Descriptor Types (USB 2.0 Spec Table 9-5).
const (
	DescriptorTypeDevice           = 0x01
	DescriptorTypeConfiguration    = 0x02
	DescriptorTypeString           = 0x03
	DescriptorTypeInterface        = 0x04
	DescriptorTypeEndpoint         = 0x05
	DescriptorTypeDeviceQualifier  = 0x06
	DescriptorTypeOtherSpeedConfig = 0x07
	DescriptorTypeHID              = 0x21
	DescriptorTypeHIDReport        = 0x22
)

// USB Class Codes.
const (
	ClassPerInterface = 0x00 // Class defined at interface level
	ClassHID          = 0x03 // Human Interface Device
	ClassVendor       = 0xFF // Vendor Specific
)

// checkHeader verifies data holds at least size bytes of a descriptor
// of type typ.
func checkHeader(data []byte, size int, typ uint8) error {
	if len(data) < size {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != typ {
		return pkg.ErrDescriptorTypeMismatch
	}
	return nil
}

// DeviceDescriptor represents a USB device descriptor (18 bytes).
type DeviceDescriptor struct {
	Length            uint8  // Size of this descriptor (18)
	DescriptorType    uint8  // Device descriptor type (0x01)
	USBVersion        uint16 // USB specification version (BCD)
	DeviceClass       uint8  // Class code
	DeviceSubClass    uint8  // Subclass code
	DeviceProtocol    uint8  // Protocol code
	MaxPacketSize0    uint8  // Max packet size for EP0
	VendorID          uint16 // Vendor ID
	ProductID         uint16 // Product ID
	DeviceVersion     uint16 // Device release number (BCD)
	ManufacturerIndex uint8  // Index of manufacturer string
	ProductIndex      uint8  // Index of product string
	SerialNumberIndex uint8  // Index of serial number string
	NumConfigurations uint8  // Number of configurations
}

// DeviceDescriptorSize is the size of a device descriptor in bytes.
const DeviceDescriptorSize = 18

// MarshalTo serializes the device descriptor to buf.
// Returns the number of bytes written (always 18 if buf is large enough).
func (d *DeviceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < DeviceDescriptorSize {
		return 0
	}
	buf[0] = DeviceDescriptorSize
	buf[1] = DescriptorTypeDevice
	binary.LittleEndian.PutUint16(buf[2:4], d.USBVersion)
	buf[4] = d.DeviceClass
	buf[5] = d.DeviceSubClass
	buf[6] = d.DeviceProtocol
	buf[7] = d.MaxPacketSize0
	binary.LittleEndian.PutUint16(buf[8:10], d.VendorID)
	binary.LittleEndian.PutUint16(buf[10:12], d.ProductID)
	binary.LittleEndian.PutUint16(buf[12:14], d.DeviceVersion)
	buf[14] = d.ManufacturerIndex
	buf[15] = d.ProductIndex
	buf[16] = d.SerialNumberIndex
	buf[17] = d.NumConfigurations
	return DeviceDescriptorSize
}

// ParseDeviceDescriptor parses a device descriptor from bytes into out.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if err := checkHeader(data, DeviceDescriptorSize, DescriptorTypeDevice); err != nil {
		return err
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.USBVersion = binary.LittleEndian.Uint16(data[2:4])
	out.DeviceClass = data[4]
	out.DeviceSubClass = data[5]
	out.DeviceProtocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = binary.LittleEndian.Uint16(data[8:10])
	out.ProductID = binary.LittleEndian.Uint16(data[10:12])
	out.DeviceVersion = binary.LittleEndian.Uint16(data[12:14])
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialNumberIndex = data[16]
	out.NumConfigurations = data[17]
	return nil
}

// ConfigurationDescriptor represents a USB configuration descriptor (9 bytes).
type ConfigurationDescriptor struct {
	Length             uint8  // Size of this descriptor (9)
	DescriptorType     uint8  // Configuration descriptor type (0x02)
	TotalLength        uint16 // Total length of configuration data
	NumInterfaces      uint8  // Number of interfaces
	ConfigurationValue uint8  // Configuration value for SET_CONFIGURATION
	ConfigurationIndex uint8  // Index of string descriptor
	Attributes         uint8  // Configuration attributes
	MaxPower           uint8  // Maximum power consumption (2mA units)
}

// Configuration attribute bits.
const (
	ConfigAttrBusPowered   = 0x80 // Bus-powered (required)
	ConfigAttrSelfPowered  = 0x40 // Self-powered
	ConfigAttrRemoteWakeup = 0x20 // Remote wakeup capable
)

// ConfigurationDescriptorSize is the size of a configuration descriptor in bytes.
const ConfigurationDescriptorSize = 9

// MarshalTo serializes the configuration descriptor to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (c *ConfigurationDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ConfigurationDescriptorSize {
		return 0
	}
	buf[0] = ConfigurationDescriptorSize
	buf[1] = DescriptorTypeConfiguration
	binary.LittleEndian.PutUint16(buf[2:4], c.TotalLength)
	buf[4] = c.NumInterfaces
	buf[5] = c.ConfigurationValue
	buf[6] = c.ConfigurationIndex
	buf[7] = c.Attributes
	buf[8] = c.MaxPower
	return ConfigurationDescriptorSize
}

// ParseConfigurationDescriptor parses a configuration descriptor from bytes into out.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if err := checkHeader(data, ConfigurationDescriptorSize, DescriptorTypeConfiguration); err != nil {
		return err
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.TotalLength = binary.LittleEndian.Uint16(data[2:4])
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return nil
}

// InterfaceDescriptor represents a USB interface descriptor (9 bytes).
type InterfaceDescriptor struct {
	Length            uint8 // Size of this descriptor (9)
	DescriptorType    uint8 // Interface descriptor type (0x04)
	InterfaceNumber   uint8 // Interface number
	AlternateSetting  uint8 // Alternate setting number
	NumEndpoints      uint8 // Number of endpoints (excluding EP0)
	InterfaceClass    uint8 // Class code
	InterfaceSubClass uint8 // Subclass code
	InterfaceProtocol uint8 // Protocol code
	InterfaceIndex    uint8 // Index of string descriptor
}

// InterfaceDescriptorSize is the size of an interface descriptor in bytes.
const InterfaceDescriptorSize = 9

// MarshalTo serializes the interface descriptor to buf.
// Returns the number of bytes written (always 9 if buf is large enough).
func (i *InterfaceDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < InterfaceDescriptorSize {
		return 0
	}
	buf[0] = InterfaceDescriptorSize
	buf[1] = DescriptorTypeInterface
	buf[2] = i.InterfaceNumber
	buf[3] = i.AlternateSetting
	buf[4] = i.NumEndpoints
	buf[5] = i.InterfaceClass
	buf[6] = i.InterfaceSubClass
	buf[7] = i.InterfaceProtocol
	buf[8] = i.InterfaceIndex
	return InterfaceDescriptorSize
}

// ParseInterfaceDescriptor parses an interface descriptor from bytes into out.
func ParseInterfaceDescriptor(data []byte, out *InterfaceDescriptor) error {
	if err := checkHeader(data, InterfaceDescriptorSize, DescriptorTypeInterface); err != nil {
		return err
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.InterfaceNumber = data[2]
	out.AlternateSetting = data[3]
	out.NumEndpoints = data[4]
	out.InterfaceClass = data[5]
	out.InterfaceSubClass = data[6]
	out.InterfaceProtocol = data[7]
	out.InterfaceIndex = data[8]
	return nil
}

// EndpointDescriptor represents a USB endpoint descriptor (7 bytes).
type EndpointDescriptor struct {
	Length          uint8  // Size of this descriptor (7)
	DescriptorType  uint8  // Endpoint descriptor type (0x05)
	EndpointAddress uint8  // Endpoint address (including direction)
	Attributes      uint8  // Endpoint attributes (transfer type, etc.)
	MaxPacketSize   uint16 // Maximum packet size
	Interval        uint8  // Polling interval (for interrupt/isochronous)
}

// EndpointDescriptorSize is the size of an endpoint descriptor in bytes.
const EndpointDescriptorSize = 7

// MarshalTo serializes the endpoint descriptor to buf.
// Returns the number of bytes written (always 7 if buf is large enough).
func (e *EndpointDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < EndpointDescriptorSize {
		return 0
	}
	buf[0] = EndpointDescriptorSize
	buf[1] = DescriptorTypeEndpoint
	buf[2] = e.EndpointAddress
	buf[3] = e.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], e.MaxPacketSize)
	buf[6] = e.Interval
	return EndpointDescriptorSize
}

// ParseEndpointDescriptor parses an endpoint descriptor from bytes into out.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) error {
	if err := checkHeader(data, EndpointDescriptorSize, DescriptorTypeEndpoint); err != nil {
		return err
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.EndpointAddress = data[2]
	out.Attributes = data[3]
	out.MaxPacketSize = binary.LittleEndian.Uint16(data[4:6])
	out.Interval = data[6]
	return nil
}

// Number returns the endpoint number (0-15).
func (e *EndpointDescriptor) Number() uint8 {
	return EndpointNumber(e.EndpointAddress)
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *EndpointDescriptor) IsIn() bool {
	return EndpointIsIn(e.EndpointAddress)
}

// Type returns the transfer type from the attribute bits.
func (e *EndpointDescriptor) Type() uint8 {
	return e.Attributes & EndpointTypeMask
}

// Descriptors groups the fixed descriptor set an emulated device reports
// during enumeration: one device descriptor and, for each configuration,
// its interfaces and their endpoints. The tables are never mutated once a
// device is constructed.
type Descriptors struct {
	Device         DeviceDescriptor
	Configurations []ConfigurationDescriptor
	Interfaces     []InterfaceDescriptor
	Endpoints      []EndpointDescriptor
}

// DeviceID packs a vendor and product id into the 64-bit device id used to
// register emulated devices with a host: vid<<32 | pid<<16 | 9<<8 | 1.
func DeviceID(vid, pid uint16) uint64 {
	return uint64(vid)<<32 | uint64(pid)<<16 | uint64(9)<<8 | uint64(1)
}

// ID returns the device id derived from the device descriptor.
func (d *Descriptors) ID() uint64 {
	return DeviceID(d.Device.VendorID, d.Device.ProductID)
}

// Configuration returns the configuration with the given value, or nil.
func (d *Descriptors) Configuration(value uint8) *ConfigurationDescriptor {
	for i := range d.Configurations {
		if d.Configurations[i].ConfigurationValue == value {
			return &d.Configurations[i]
		}
	}
	return nil
}

// InterfaceEndpoints returns the endpoints declared for interface number
// iface. Every endpoint belongs to the single interface of the emulated
// portals, so the endpoint table is returned whole when iface exists.
func (d *Descriptors) InterfaceEndpoints(iface uint8) []EndpointDescriptor {
	for i := range d.Interfaces {
		if d.Interfaces[i].InterfaceNumber == iface {
			return d.Endpoints
		}
	}
	return nil
}

// Endpoint returns the endpoint descriptor with the given address, or nil.
func (d *Descriptors) Endpoint(addr uint8) *EndpointDescriptor {
	for i := range d.Endpoints {
		if d.Endpoints[i].EndpointAddress == addr {
			return &d.Endpoints[i]
		}
	}
	return nil
}

// MarshalConfiguration serializes the configuration with index idx followed
// by its interface and endpoint descriptors into buf, in the order a host
// expects from GET_DESCRIPTOR(Configuration). The configuration's declared
// TotalLength is written unchanged. Returns the number of bytes written, or
// 0 if idx is out of range or buf is too small.
func (d *Descriptors) MarshalConfiguration(idx int, buf []byte) int {
	if idx < 0 || idx >= len(d.Configurations) {
		return 0
	}
	size := ConfigurationDescriptorSize +
		len(d.Interfaces)*InterfaceDescriptorSize +
		len(d.Endpoints)*EndpointDescriptorSize
	if len(buf) < size {
		return 0
	}
	n := d.Configurations[idx].MarshalTo(buf)
	for i := range d.Interfaces {
		n += d.Interfaces[i].MarshalTo(buf[n:])
	}
	for i := range d.Endpoints {
		n += d.Endpoints[i].MarshalTo(buf[n:])
	}
	return n
}

// ParseDescriptors walks a chain of descriptors as returned by
// GET_DESCRIPTOR, such as a device descriptor followed by a full
// configuration. Descriptor types it does not model (strings, HID class
// descriptors) are skipped.
func ParseDescriptors(data []byte) (Descriptors, error) {
	var d Descriptors
	for off := 0; off < len(data); {
		n := 0
		if len(data)-off >= 2 {
			n = int(data[off])
		}
		if n < 2 || off+n > len(data) {
			return d, fmt.Errorf("descriptor at offset %d: %w", off, pkg.ErrDescriptorTooShort)
		}
		chunk := data[off : off+n]

		var err error
		switch chunk[1] {
		case DescriptorTypeDevice:
			err = ParseDeviceDescriptor(chunk, &d.Device)
		case DescriptorTypeConfiguration:
			var c ConfigurationDescriptor
			if err = ParseConfigurationDescriptor(chunk, &c); err == nil {
				d.Configurations = append(d.Configurations, c)
			}
		case DescriptorTypeInterface:
			var i InterfaceDescriptor
			if err = ParseInterfaceDescriptor(chunk, &i); err == nil {
				d.Interfaces = append(d.Interfaces, i)
			}
		case DescriptorTypeEndpoint:
			var e EndpointDescriptor
			if err = ParseEndpointDescriptor(chunk, &e); err == nil {
				d.Endpoints = append(d.Endpoints, e)
			}
		}
		if err != nil {
			return d, fmt.Errorf("descriptor at offset %d: %w", off, err)
		}
		off += n
	}
	return d, nil
}
