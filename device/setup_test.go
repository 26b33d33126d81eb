package device

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSetupPacket(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    SetupPacket
		wantErr bool
	}{
		{
			name: "SET_REPORT output",
			data: []byte{0x21, 0x09, 0x00, 0x02, 0x00, 0x00, 0x20, 0x00},
			want: SetupPacket{RequestType: 0x21, Request: 0x09, Value: 0x0200, Length: 32},
		},
		{
			name: "SET_IDLE",
			data: []byte{0x21, 0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
			want: SetupPacket{RequestType: 0x21, Request: 0x0A},
		},
		{
			name:    "too short",
			data:    []byte{0x21, 0x09, 0x00},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SetupPacket
			err := ParseSetupPacket(tt.data, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSetupPacket() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSetupPacket() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetupPacketMarshalTo(t *testing.T) {
	setup := SetupPacket{RequestType: 0x21, Request: 0x09, Value: 0x0200, Index: 0x0001, Length: 0x0020}
	buf := make([]byte, SetupPacketSize)
	if n := setup.MarshalTo(buf); n != SetupPacketSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, SetupPacketSize)
	}
	want := []byte{0x21, 0x09, 0x00, 0x02, 0x01, 0x00, 0x20, 0x00}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("MarshalTo() mismatch (-want +got):\n%s", diff)
	}

	if n := setup.MarshalTo(make([]byte, 4)); n != 0 {
		t.Errorf("MarshalTo(short) = %d, want 0", n)
	}
}

func TestSetReportSetup(t *testing.T) {
	var setup SetupPacket
	SetReportSetup(&setup, 32)

	if !setup.IsSetReport() {
		t.Errorf("IsSetReport() = false for %s", setup.String())
	}
	if !setup.IsClass() || !setup.IsHostToDevice() || !setup.IsInterfaceRecipient() {
		t.Errorf("unexpected request type 0x%02X", setup.RequestType)
	}
	if setup.ReportType() != HIDReportTypeOutput {
		t.Errorf("ReportType() = %d, want %d", setup.ReportType(), HIDReportTypeOutput)
	}
	if setup.Length != 32 {
		t.Errorf("Length = %d, want 32", setup.Length)
	}
}

func TestSetupPacketIsSetReport(t *testing.T) {
	tests := []struct {
		name  string
		setup SetupPacket
		want  bool
	}{
		{"set report", SetupPacket{RequestType: 0x21, Request: 0x09}, true},
		{"set idle", SetupPacket{RequestType: 0x21, Request: 0x0A}, false},
		{"standard set configuration", SetupPacket{RequestType: 0x00, Request: 0x09}, false},
		{"get report", SetupPacket{RequestType: 0xA1, Request: 0x01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.setup.IsSetReport(); got != tt.want {
				t.Errorf("IsSetReport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetupPacketString(t *testing.T) {
	setup := SetupPacket{RequestType: 0x21, Request: 0x09, Length: 2}
	s := setup.String()
	for _, want := range []string{"OUT", "Class", "Interface", "Request=0x09"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
