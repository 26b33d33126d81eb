package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/internal/portal"
)

func runDescriptors(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("descriptors", stderr)
	configPath := fs.String("config", "", "configuration file")
	family := fs.String("family", "", "portal family (overrides the configuration)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: descriptors [-config c.yaml] [-family f]", errUsage)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *family != "" {
		cfg.Family = *family
	}
	cfg.Timing.Realtime = false

	dev, err := portal.New(cfg, portal.WithClock(device.NewManualClock(replayEpoch)))
	if err != nil {
		return err
	}
	defer dev.Close()

	desc, err := enumerate(ctx, dev)
	if err != nil {
		return err
	}
	printDescriptors(stdout, &desc)
	return nil
}

// enumerate reads the device and first configuration descriptors the way
// a host does: the configuration header first, then its full length.
func enumerate(ctx context.Context, dev *portal.Device) (device.Descriptors, error) {
	data, err := getDescriptor(ctx, dev, device.DescriptorTypeDevice, device.DeviceDescriptorSize)
	if err != nil {
		return device.Descriptors{}, err
	}
	head, err := getDescriptor(ctx, dev, device.DescriptorTypeConfiguration, device.ConfigurationDescriptorSize)
	if err != nil {
		return device.Descriptors{}, err
	}
	var cfg device.ConfigurationDescriptor
	if err := device.ParseConfigurationDescriptor(head, &cfg); err != nil {
		return device.Descriptors{}, err
	}
	full, err := getDescriptor(ctx, dev, device.DescriptorTypeConfiguration, int(cfg.TotalLength))
	if err != nil {
		return device.Descriptors{}, err
	}
	return device.ParseDescriptors(append(data, full...))
}

func getDescriptor(ctx context.Context, dev *portal.Device, typ uint8, length int) ([]byte, error) {
	setup := device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeStandard | device.RequestRecipientDevice,
		Request:     device.RequestGetDescriptor,
		Value:       uint16(typ) << 8,
		Length:      uint16(length),
	}
	t := device.NewControlTransfer(setup, make([]byte, length))
	if err := dev.Submit(t); err != nil {
		return nil, err
	}
	if _, err := dev.Drain(ctx); err != nil {
		return nil, err
	}
	if !t.IsSuccess() {
		return nil, fmt.Errorf("get descriptor %#02x: %w", typ, t.Status.Error())
	}
	return append([]byte(nil), t.Data(t.Length)...), nil
}

func printDescriptors(w io.Writer, d *device.Descriptors) {
	dd := &d.Device
	fmt.Fprintf(w, "device     vid=%04x pid=%04x usb=%04x class=%#02x ep0=%d configurations=%d\n",
		dd.VendorID, dd.ProductID, dd.USBVersion, dd.DeviceClass, dd.MaxPacketSize0, dd.NumConfigurations)
	for _, c := range d.Configurations {
		fmt.Fprintf(w, "config     %d interfaces=%d total=%d attributes=%#02x power=%dmA\n",
			c.ConfigurationValue, c.NumInterfaces, c.TotalLength, c.Attributes, int(c.MaxPower)*2)
	}
	for _, i := range d.Interfaces {
		fmt.Fprintf(w, "interface  %d class=%#02x endpoints=%d\n", i.InterfaceNumber, i.InterfaceClass, i.NumEndpoints)
		for _, e := range d.InterfaceEndpoints(i.InterfaceNumber) {
			dir := "out"
			if e.IsIn() {
				dir = "in"
			}
			fmt.Fprintf(w, "endpoint   %#02x %s %s size=%d interval=%d\n",
				e.EndpointAddress, dir, device.TransferKind(e.Type()), e.MaxPacketSize, e.Interval)
		}
	}
}
