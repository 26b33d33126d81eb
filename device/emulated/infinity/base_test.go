package infinity

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

func mustBuild(t *testing.T, number uint16) []byte {
	t.Helper()
	buf, err := BuildFigure(number)
	if err != nil {
		t.Fatalf("BuildFigure(%#04x) error = %v", number, err)
	}
	return buf
}

func notification(position, order, change byte) [ReportSize]byte {
	var f [ReportSize]byte
	copy(f[:], []byte{0xAB, 0x04, position, 0x09, order, change})
	f[6] = Checksum(f[:6])
	return f
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(r.String())
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseRole("player_three"); !errors.Is(err, pkg.ErrSlotInvalid) {
		t.Errorf("ParseRole(player_three) error = %v, want ErrSlotInvalid", err)
	}
}

func TestBase_LoadFigure(t *testing.T) {
	b := NewBase()
	name, err := b.LoadFigure(mustBuild(t, 0x4246), nil, RolePlayerOne)
	if err != nil {
		t.Fatalf("LoadFigure() error = %v", err)
	}
	if name != "Cars - Lightning McQueen" {
		t.Errorf("LoadFigure() = %q", name)
	}

	frame, ok := b.PopNotification()
	if !ok {
		t.Fatal("no notification after load")
	}
	if want := notification(0x02, 0x00, 0x00); frame != want {
		t.Errorf("notification = % X, want % X", frame[:7], want[:7])
	}
	if b.HasNotification() {
		t.Error("HasNotification() = true after draining")
	}
}

func TestBase_LoadFigure_TooSmall(t *testing.T) {
	b := NewBase()
	if _, err := b.LoadFigure(make([]byte, 16), nil, RoleHexagon); !errors.Is(err, pkg.ErrFigureTooSmall) {
		t.Errorf("LoadFigure() error = %v, want ErrFigureTooSmall", err)
	}
	if b.HasNotification() {
		t.Error("failed load queued a notification")
	}
}

func TestBase_LoadFigure_Unknown(t *testing.T) {
	buf := mustBuild(t, 0x4246)
	var uid [UIDSize]byte
	copy(uid[:], buf)
	meta := EncryptBlock(DeriveKey(uid), [BlockSize]byte{0x00, 0x0F, 0x00, 0x01})
	copy(buf[BlockSize:], meta[:])
	name, err := NewBase().LoadFigure(buf, nil, RoleHexagon)
	if err != nil {
		t.Fatalf("LoadFigure() error = %v", err)
	}
	if name != "" {
		t.Errorf("LoadFigure() = %q, want empty name", name)
	}
}

func TestBase_OrderPolicy(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)

	b.LoadFigure(fig, nil, RolePlayerOne)        // order 0
	b.LoadFigure(fig, nil, RolePlayerTwo)        // order 1
	b.RemoveFigure(RolePlayerOne)
	b.LoadFigure(fig, nil, RolePlayerOne)        // keeps order 0
	b.LoadFigure(fig, nil, RolePlayerTwoAbility) // order 2
	b.RemoveFigure(RolePlayerTwoAbility)

	want := [][ReportSize]byte{
		notification(0x02, 0, 0),
		notification(0x03, 1, 0),
		notification(0x02, 0, 1),
		notification(0x02, 0, 0),
		notification(0x03, 2, 0),
		notification(0x03, 2, 1),
	}
	for i, w := range want {
		got, ok := b.PopNotification()
		if !ok {
			t.Fatalf("notification %d missing", i)
		}
		if got != w {
			t.Errorf("notification %d = % X, want % X", i, got[:7], w[:7])
		}
	}

	var orders []uint8
	for _, s := range b.Figures() {
		orders = append(orders, s.Order)
	}
	if diff := cmp.Diff([]uint8{0xFF, 0, 1, 0xFF, 2}, orders); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
}

func TestBase_RemoveEmpty(t *testing.T) {
	b := NewBase()
	b.RemoveFigure(RoleHexagon)
	if b.HasNotification() {
		t.Error("removing from an empty slot queued a notification")
	}
}

func TestBase_NotificationsConcurrent(t *testing.T) {
	const rounds = 200
	b := NewBase()
	fig := mustBuild(t, 0x4246)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			b.LoadFigure(fig, nil, RolePlayerOne)
			b.RemoveFigure(RolePlayerOne)
		}
	}()

	var got []byte
	for len(got) < 2*rounds {
		if !b.HasNotification() {
			continue
		}
		frame, ok := b.PopNotification()
		if !ok {
			t.Fatal("PopNotification() empty after HasNotification() = true")
		}
		got = append(got, frame[5])
	}
	wg.Wait()

	for i, change := range got {
		if want := byte(i % 2); change != want {
			t.Fatalf("notification %d change = %d, want %d", i, change, want)
		}
	}
	if b.HasNotification() {
		t.Error("extra notifications queued")
	}
}

func TestBase_RemoveClosesFile(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)
	f := storage.NewMemoryFile(fig)
	b.LoadFigure(fig, f, RoleHexagon)
	b.RemoveFigure(RoleHexagon)
	if !f.Closed() {
		t.Error("backing file not closed on remove")
	}
}

func TestBase_ReplaceClosesFile(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)
	first := storage.NewMemoryFile(fig)
	b.LoadFigure(fig, first, RoleHexagon)
	b.LoadFigure(fig, storage.NewMemoryFile(fig), RoleHexagon)
	if !first.Closed() {
		t.Error("replaced backing file not closed")
	}
}

func TestBase_PresentFigures(t *testing.T) {
	b := NewBase()

	empty := b.PresentFigures(0x05)
	if want := BlankResponse(0x05); empty != want {
		t.Errorf("empty base = % X, want % X", empty[:4], want[:4])
	}

	fig := mustBuild(t, 0x4246)
	b.LoadFigure(fig, nil, RoleHexagon)          // order 0
	b.LoadFigure(fig, nil, RolePlayerOne)        // order 1
	b.LoadFigure(fig, nil, RolePlayerTwoAbility) // order 2

	got := b.PresentFigures(0x07)
	want := []byte{0xAA, 0x07, 0x07, 0x21, 0x09, 0x32, 0x09, 0x10, 0x09}
	want = append(want, Checksum(want))
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Errorf("PresentFigures() mismatch (-want +got):\n%s", diff)
	}
}

func TestBase_BlockRoundTrip(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)
	f := storage.NewMemoryFile(fig)
	b.LoadFigure(fig, f, RolePlayerOne)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	ack := b.WriteBlock(0, 3, data, 0x11)
	wantAck := []byte{0xAA, 0x02, 0x11, 0x00, 0xBD}
	if diff := cmp.Diff(wantAck, ack[:5]); diff != "" {
		t.Errorf("WriteBlock() mismatch (-want +got):\n%s", diff)
	}

	reply := b.QueryBlock(0, 3, 0x12)
	if reply[0] != 0xAA || reply[1] != 0x12 || reply[2] != 0x12 {
		t.Errorf("QueryBlock() header = % X", reply[:4])
	}
	if !bytes.Equal(reply[4:20], data) {
		t.Errorf("QueryBlock() data = % X, want % X", reply[4:20], data)
	}
	if reply[20] != Checksum(reply[:20]) {
		t.Errorf("QueryBlock() checksum = %#02x", reply[20])
	}

	if f.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", f.Writes())
	}
	if saved := f.Bytes(); !bytes.Equal(saved[12*BlockSize:13*BlockSize], data) {
		t.Errorf("persisted block = % X", saved[12*BlockSize:13*BlockSize])
	}
}

func TestBase_QueryBlockZero(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)
	b.LoadFigure(fig, nil, RolePlayerOne)

	reply := b.QueryBlock(0, 0, 0)
	if !bytes.Equal(reply[4:20], fig[BlockSize:2*BlockSize]) {
		t.Errorf("block 0 = % X, want metadata block", reply[4:20])
	}
}

func TestBase_BlockOutOfRange(t *testing.T) {
	b := NewBase()
	fig := mustBuild(t, 0x4246)
	f := storage.NewMemoryFile(fig)
	b.LoadFigure(fig, f, RolePlayerOne)

	b.WriteBlock(0, 5, bytes.Repeat([]byte{0xEE}, 16), 0)
	if f.Writes() != 0 {
		t.Errorf("out of range write persisted %d times", f.Writes())
	}
	reply := b.QueryBlock(0, 5, 0)
	if !bytes.Equal(reply[4:20], make([]byte, 16)) {
		t.Errorf("out of range read = % X, want zeros", reply[4:20])
	}
}

func TestBase_AbsentFigure(t *testing.T) {
	b := NewBase()
	reply := b.QueryBlock(0, 1, 0x01)
	if !bytes.Equal(reply[4:20], make([]byte, 16)) {
		t.Errorf("absent read = % X, want zeros", reply[4:20])
	}

	id := b.FigureIdentifier(0, 0x02)
	want := []byte{0xAA, 0x09, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0xB5}
	if diff := cmp.Diff(want, id[:12]); diff != "" {
		t.Errorf("FigureIdentifier() mismatch (-want +got):\n%s", diff)
	}
}

func TestBase_FigureIdentifier(t *testing.T) {
	b := NewBase()
	b.LoadFigure(mustBuild(t, 0x4246), nil, RoleHexagon)
	b.LoadFigure(mustBuild(t, 0x8483), nil, RolePlayerTwo)

	id := b.FigureIdentifier(1, 0x03)
	want := []byte{0xAA, 0x09, 0x03, 0x00, 0x04, 0xBE, 0x68, 0x75, 0x1F, 0xDF, 0x80}
	want = append(want, Checksum(want))
	if diff := cmp.Diff(want, id[:12]); diff != "" {
		t.Errorf("FigureIdentifier() mismatch (-want +got):\n%s", diff)
	}
}

func TestBase_Random(t *testing.T) {
	b := NewBase()
	b.SeedRandom(Scramble(0x12345678, 0xCAFEBABE))

	reply := b.NextRandom(0x09)
	want := []byte{0xAA, 0x09, 0x09}
	v := Scramble(0x31E53A77, 0)
	for i := 0; i < 8; i++ {
		want = append(want, byte(v>>(56-8*i)))
	}
	want = append(want, Checksum(want))
	if diff := cmp.Diff(want, reply[:12]); diff != "" {
		t.Errorf("NextRandom() mismatch (-want +got):\n%s", diff)
	}
}

func TestBase_Activation(t *testing.T) {
	b := NewBase()
	if b.IsActivated() {
		t.Error("new base is activated")
	}
	b.Activate()
	if !b.IsActivated() {
		t.Error("IsActivated() = false after Activate")
	}
	b.LoadFigure(mustBuild(t, 0x4246), nil, RoleHexagon)
	b.Deactivate()
	if b.IsActivated() || b.HasNotification() {
		t.Errorf("after Deactivate: IsActivated() = %v, HasNotification() = %v", b.IsActivated(), b.HasNotification())
	}
}
