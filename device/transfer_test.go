package device

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/softportal/pkg"
)

func TestNewControlTransfer_TruncatesToDeclaredLength(t *testing.T) {
	var setup SetupPacket
	SetReportSetup(&setup, 2)
	tr := NewControlTransfer(setup, []byte{'A', 0x01, 0xEE, 0xEE})

	if tr.Kind != TransferKindControl {
		t.Errorf("Kind = %v, want control", tr.Kind)
	}
	if tr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tr.Len())
	}
	if !tr.IsOut() {
		t.Error("IsOut() = false for SET_REPORT")
	}
}

func TestTransferConstructors(t *testing.T) {
	tests := []struct {
		name string
		tr   *Transfer
		kind TransferKind
		in   bool
	}{
		{"interrupt in", NewInterruptTransfer(0x81, make([]byte, 32)), TransferKindInterrupt, true},
		{"interrupt out", NewInterruptTransfer(0x01, make([]byte, 32)), TransferKindInterrupt, false},
		{"bulk", NewBulkTransfer(0x82, nil), TransferKindBulk, true},
		{"isochronous", NewIsochronousTransfer(0x83, nil, 8), TransferKindIsochronous, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.tr.Kind, tt.kind)
			}
			if tt.tr.IsIn() != tt.in {
				t.Errorf("IsIn() = %v, want %v", tt.tr.IsIn(), tt.in)
			}
		})
	}

	iso := NewIsochronousTransfer(0x83, nil, MaxIsoPackets+10)
	if iso.NumPackets != MaxIsoPackets {
		t.Errorf("NumPackets = %d, want %d", iso.NumPackets, MaxIsoPackets)
	}
}

func TestTransfer_Data(t *testing.T) {
	tr := NewInterruptTransfer(0x01, []byte{1, 2, 3})
	if got := tr.Data(2); !cmp.Equal(got, []byte{1, 2}) {
		t.Errorf("Data(2) = %v", got)
	}
	if got := tr.Data(4); got != nil {
		t.Errorf("Data(4) = %v, want nil", got)
	}
	if got := tr.Data(-1); got != nil {
		t.Errorf("Data(-1) = %v, want nil", got)
	}
}

func TestTransfer_FillBuffer(t *testing.T) {
	tests := []struct {
		name   string
		bufLen int
		data   []byte
		count  int
		want   int
	}{
		{"count limits", 8, []byte{1, 2, 3, 4}, 2, 2},
		{"data limits", 8, []byte{1, 2, 3}, 32, 3},
		{"buffer limits", 2, []byte{1, 2, 3, 4}, 4, 2},
		{"negative count", 8, []byte{1}, -1, 0},
		{"nil data", 8, nil, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewInterruptTransfer(0x81, make([]byte, tt.bufLen))
			if got := tr.FillBuffer(tt.data, tt.count); got != tt.want {
				t.Errorf("FillBuffer() = %d, want %d", got, tt.want)
			}
			if tr.Length != tt.want {
				t.Errorf("Length = %d, want %d", tr.Length, tt.want)
			}
			if !bytes.Equal(tt.data[:tt.want], tr.Buffer[:tt.want]) {
				t.Errorf("buffer = % X, want % X", tr.Buffer[:tt.want], tt.data[:tt.want])
			}
		})
	}
}

func TestTransfer_Complete(t *testing.T) {
	calls := 0
	tr := NewInterruptTransfer(0x81, nil).WithCallback(func(*Transfer) { calls++ })

	tr.Complete(pkg.TransferStatusSuccess)
	tr.Complete(pkg.TransferStatusError)

	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
	if !tr.IsCompleted() || !tr.IsSuccess() {
		t.Errorf("IsCompleted() = %v, IsSuccess() = %v", tr.IsCompleted(), tr.IsSuccess())
	}
}
