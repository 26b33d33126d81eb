package infinity

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

func TestBuildFigure_Layout(t *testing.T) {
	buf, err := BuildFigure(0x4246)
	if err != nil {
		t.Fatalf("BuildFigure() error = %v", err)
	}
	if len(buf) != FigureSize {
		t.Fatalf("len = %d, want %d", len(buf), FigureSize)
	}

	wantUID := []byte{0x04, 0x18, 0x79, 0x69, 0x56, 0x84, 0x80, 0x89, 0x44, 0x00, 0xC2, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(wantUID, buf[:BlockSize]); diff != "" {
		t.Errorf("block 0 mismatch (-want +got):\n%s", diff)
	}
	if !bytes.Equal(buf[0x36:0x39], []byte{0x17, 0x87, 0x8E}) {
		t.Errorf("first marker = % X", buf[0x36:0x39])
	}
	for page := 1; page < PageCount; page++ {
		off := page*PageSize + 0x34
		if !bytes.Equal(buf[off:off+3], []byte{0x77, 0x87, 0x88}) {
			t.Errorf("page %d marker = % X", page, buf[off:off+3])
		}
	}

	key := DeriveKey([UIDSize]byte{0x04, 0x18, 0x79, 0x69, 0x56, 0x84, 0x80})
	blank := EncryptBlock(key, [BlockSize]byte{})
	for _, b := range []int{4, 8, 12, 13} {
		if !bytes.Equal(buf[b*BlockSize:(b+1)*BlockSize], blank[:]) {
			t.Errorf("block %d is not the encrypted blank block", b)
		}
	}

	var enc [BlockSize]byte
	copy(enc[:], buf[BlockSize:2*BlockSize])
	meta := DecryptBlock(key, enc)
	want := [BlockSize]byte{0x00, 0x0F, 0x42, 0x46, 0x10, 0x0C, 0x1E, 0x00, 0x00, 0x01, 0xD1, 0x1F, 0x32, 0x11, 0xF2, 0xFE}
	if meta != want {
		t.Errorf("metadata = % X, want % X", meta, want)
	}
}

func TestBuildFigure_Variant(t *testing.T) {
	buf, err := BuildFigure(0x4259)
	if err != nil {
		t.Fatalf("BuildFigure() error = %v", err)
	}
	info, err := InspectFigure(buf)
	if err != nil {
		t.Fatalf("InspectFigure() error = %v", err)
	}
	if info.Stamp != [4]byte{0x00, 0x0F, 0x01, 0x18} {
		t.Errorf("Stamp = % X", info.Stamp)
	}
}

func TestBuildFigure_Unknown(t *testing.T) {
	if _, err := BuildFigure(0x0001); !errors.Is(err, pkg.ErrFigureNotFound) {
		t.Errorf("BuildFigure(0x0001) error = %v, want ErrFigureNotFound", err)
	}
}

func TestCreateFigure_LoadEveryEntry(t *testing.T) {
	dir := t.TempDir()
	for i, e := range Entries() {
		path := filepath.Join(dir, "figure.bin")
		got, err := CreateFigure(path, e.Number)
		if err != nil {
			t.Fatalf("CreateFigure(%#04x) error = %v", e.Number, err)
		}
		wantName, _ := FindByNumber(e.Number)
		if got.Name != wantName {
			t.Errorf("CreateFigure(%#04x) = %q, want %q", e.Number, got.Name, wantName)
		}

		f, data, err := storage.OpenFigure(path, FigureSize)
		if err != nil {
			t.Fatalf("OpenFigure() error = %v", err)
		}
		base := NewBase()
		name, err := base.LoadFigure(data, f, RoleHexagon)
		if err != nil {
			t.Fatalf("LoadFigure() error = %v", err)
		}
		if name != wantName {
			t.Errorf("entry %d: LoadFigure() = %q, want %q", i, name, wantName)
		}
		base.Close()
	}
}

func TestCreateFigure_UnknownWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")
	if _, err := CreateFigure(path, 0xBEEF); !errors.Is(err, pkg.ErrFigureNotFound) {
		t.Fatalf("CreateFigure() error = %v, want ErrFigureNotFound", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat() error = %v, want not exist", err)
	}
}

func TestCreateFigure_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "fig.bin")
	if _, err := CreateFigure(path, 0x4246); err == nil {
		t.Error("CreateFigure() into a missing directory succeeded")
	}
}

func TestInspectFigure(t *testing.T) {
	buf, err := BuildFigure(0x8483)
	if err != nil {
		t.Fatalf("BuildFigure() error = %v", err)
	}

	info, err := InspectFigure(buf)
	if err != nil {
		t.Fatalf("InspectFigure() error = %v", err)
	}
	want := FigureInfo{
		UID:      [UIDSize]byte{0x04, 0xBE, 0x68, 0x75, 0x1F, 0xDF, 0x80},
		Category: PlaySet,
		Number:   0x8483,
		Stamp:    [4]byte{0x11, 0x04, 0x06, 0x00},
		CRC:      info.CRC,
		Name:     "Cars Play Set",
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("InspectFigure() mismatch (-want +got):\n%s", diff)
	}
}

func TestInspectFigure_Errors(t *testing.T) {
	if _, err := InspectFigure(make([]byte, FigureSize-1)); !errors.Is(err, pkg.ErrFigureTooSmall) {
		t.Errorf("short buffer error = %v, want ErrFigureTooSmall", err)
	}

	buf, _ := BuildFigure(0x4246)
	buf[0] ^= 0x01 // different uid, different key
	if _, err := InspectFigure(buf); !errors.Is(err, pkg.ErrFigureCorrupt) {
		t.Errorf("tampered uid error = %v, want ErrFigureCorrupt", err)
	}
}
