package device

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/softportal/pkg"
)

func TestStandardRequestHandler_GetDescriptor(t *testing.T) {
	h := NewStandardRequestHandler(testDescriptors())

	setup := SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: DescriptorTypeDevice << 8, Length: 64}
	data, err := h.HandleSetup(&setup)
	if err != nil {
		t.Fatalf("HandleSetup(device) error = %v", err)
	}
	if len(data) != DeviceDescriptorSize || data[0] != 0x12 || data[1] != DescriptorTypeDevice {
		t.Errorf("device descriptor = % X", data)
	}

	setup = SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: DescriptorTypeConfiguration << 8, Length: 9}
	data, err = h.HandleSetup(&setup)
	if err != nil {
		t.Fatalf("HandleSetup(config) error = %v", err)
	}
	want := []byte{0x09, 0x02, 0x29, 0x00, 0x01, 0x01, 0x00, 0x80, 0xFA}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("config descriptor mismatch (-want +got):\n%s", diff)
	}

	setup = SetupPacket{RequestType: 0x80, Request: RequestGetDescriptor, Value: DescriptorTypeString << 8, Length: 255}
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrNotSupported) {
		t.Errorf("HandleSetup(string) error = %v, want %v", err, pkg.ErrNotSupported)
	}
}

func TestStandardRequestHandler_Configuration(t *testing.T) {
	h := NewStandardRequestHandler(testDescriptors())

	if _, err := h.HandleSetup(&SetupPacket{Request: RequestSetAddress, Value: 5}); err != nil {
		t.Fatalf("SET_ADDRESS error = %v", err)
	}
	if h.Address() != 5 {
		t.Errorf("Address() = %d, want 5", h.Address())
	}

	if _, err := h.HandleSetup(&SetupPacket{Request: RequestSetConfiguration, Value: 1}); err != nil {
		t.Fatalf("SET_CONFIGURATION error = %v", err)
	}
	data, err := h.HandleSetup(&SetupPacket{RequestType: 0x80, Request: RequestGetConfiguration, Length: 1})
	if err != nil || len(data) != 1 || data[0] != 1 {
		t.Errorf("GET_CONFIGURATION = %v, %v", data, err)
	}

	if _, err := h.HandleSetup(&SetupPacket{Request: RequestSetConfiguration, Value: 7}); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("SET_CONFIGURATION(7) error = %v, want %v", err, pkg.ErrInvalidRequest)
	}
	if h.Configuration() != 1 {
		t.Errorf("Configuration() = %d, want 1", h.Configuration())
	}
}

func TestStandardRequestHandler_RejectsClass(t *testing.T) {
	h := NewStandardRequestHandler(testDescriptors())
	var setup SetupPacket
	SetReportSetup(&setup, 32)
	if _, err := h.HandleSetup(&setup); !errors.Is(err, pkg.ErrInvalidRequest) {
		t.Errorf("HandleSetup(SET_REPORT) error = %v, want %v", err, pkg.ErrInvalidRequest)
	}
}

func TestStandardRequestHandler_GetStatus(t *testing.T) {
	h := NewStandardRequestHandler(testDescriptors())
	data, err := h.HandleSetup(&SetupPacket{RequestType: 0x80, Request: RequestGetStatus, Length: 2})
	if err != nil {
		t.Fatalf("GET_STATUS error = %v", err)
	}
	if diff := cmp.Diff([]byte{0, 0}, data); diff != "" {
		t.Errorf("GET_STATUS mismatch (-want +got):\n%s", diff)
	}
}
