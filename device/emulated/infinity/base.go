package infinity

import (
	"fmt"
	"sync"

	"github.com/ardnew/softportal/device"
	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

// Role is one of the five figure positions on the base.
type Role uint8

// Base positions.
const (
	RoleHexagon Role = iota + 1
	RolePlayerOne
	RolePlayerTwo
	RolePlayerOneAbility
	RolePlayerTwoAbility
)

// NumRoles is the number of figure positions.
const NumRoles = 5

var roleNames = [...]string{
	RoleHexagon:          "hexagon",
	RolePlayerOne:        "player_one",
	RolePlayerTwo:        "player_two",
	RolePlayerOneAbility: "player_one_ability",
	RolePlayerTwoAbility: "player_two_ability",
}

// String returns the slot name of the role.
func (r Role) String() string {
	if r >= RoleHexagon && r <= RolePlayerTwoAbility {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// ParseRole returns the role with the given slot name.
func ParseRole(s string) (Role, error) {
	for r := RoleHexagon; r <= RolePlayerTwoAbility; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, pkg.ErrSlotInvalid)
}

// Roles returns every role in slot order.
func Roles() []Role {
	return []Role{RoleHexagon, RolePlayerOne, RolePlayerTwo, RolePlayerOneAbility, RolePlayerTwoAbility}
}

// position returns the role as reported in notifications. Ability slots
// share the position code of their player.
func (r Role) position() byte {
	if r > RolePlayerTwo {
		return byte(r) - 2
	}
	return byte(r)
}

// figure is the state of one position.
type figure struct {
	data    [FigureSize]byte
	file    storage.File
	name    string
	present bool
	order   uint8
}

// SlotInfo is a snapshot of one position.
type SlotInfo struct {
	Role    Role
	Present bool
	Order   uint8
	Name    string
}

// Base is the figure registry of an Infinity base. All methods are safe for
// concurrent use; each runs under one lock covering the whole base.
type Base struct {
	mutex         sync.Mutex
	figures       [NumRoles]figure
	order         uint8
	activated     bool
	generator     Generator
	notifications device.Queue[[ReportSize]byte]
}

// NewBase creates an empty base.
func NewBase() *Base {
	b := &Base{}
	for i := range b.figures {
		b.figures[i].order = orderUnassigned
	}
	return b
}

// slot returns the figure at role. Unknown roles fall back to the second
// player's ability slot.
func (b *Base) slot(r Role) *figure {
	if r < RoleHexagon || r > RolePlayerTwoAbility {
		r = RolePlayerTwoAbility
	}
	return &b.figures[r-1]
}

// byOrder returns the figure that was assigned order n, defaulting to the
// hexagon.
func (b *Base) byOrder(n uint8) *figure {
	for _, r := range []Role{RolePlayerOne, RolePlayerTwo, RolePlayerOneAbility, RolePlayerTwoAbility} {
		if f := b.slot(r); f.order == n {
			return f
		}
	}
	return b.slot(RoleHexagon)
}

// blockOffset maps a frame block number to a byte offset in the figure.
// Returns false when the block lies outside the figure.
func blockOffset(block uint8) (int, bool) {
	fileBlock := block * 4
	if block == 0 {
		fileBlock = 1
	}
	off := int(fileBlock) * BlockSize
	return off, off+BlockSize <= FigureSize
}

// LoadFigure places the figure held in data on role and returns its
// catalog name, which is empty for unknown figures. file, if non-nil,
// receives every later block write and is closed when the figure leaves.
func (b *Base) LoadFigure(data []byte, file storage.File, r Role) (string, error) {
	if len(data) < FigureSize {
		return "", fmt.Errorf("load %s: %d bytes: %w", r, len(data), pkg.ErrFigureTooSmall)
	}
	number, _ := figureNumber(data)
	name, _ := FindByNumber(number)

	b.mutex.Lock()
	defer b.mutex.Unlock()

	f := b.slot(r)
	if f.file != nil && f.file != file {
		storage.Close(f.file)
	}
	f.file = file
	copy(f.data[:], data)
	f.name = name
	f.present = true
	if f.order == orderUnassigned {
		f.order = b.order
		b.order++
	}
	b.notify(r, f.order, notificationAdded)

	pkg.LogInfo(pkg.ComponentBase, "figure loaded",
		"role", r.String(),
		"number", fmt.Sprintf("%#04x", number),
		"name", name,
		"order", f.order)
	return name, nil
}

// RemoveFigure takes the figure off role. Removing from an empty position
// does nothing.
func (b *Base) RemoveFigure(r Role) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	f := b.slot(r)
	if !f.present {
		return
	}
	f.present = false
	storage.Close(f.file)
	f.file = nil
	b.notify(r, f.order, notificationRemoved)

	pkg.LogInfo(pkg.ComponentBase, "figure removed", "role", r.String(), "name", f.name)
}

// notify queues an added/removed frame. Caller holds the lock.
func (b *Base) notify(r Role, order uint8, change byte) {
	var frame [ReportSize]byte
	frame[0] = FrameNotification
	frame[1] = 0x04
	frame[2] = r.position()
	frame[3] = figureMarker
	frame[4] = order
	frame[5] = change
	frame[6] = Checksum(frame[:6])
	b.notifications.Push(frame)
}

// HasNotification returns true if an added/removed frame is waiting.
func (b *Base) HasNotification() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return !b.notifications.Empty()
}

// PopNotification removes and returns the oldest added/removed frame.
func (b *Base) PopNotification() ([ReportSize]byte, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.notifications.Pop()
}

// Activate marks the base active.
func (b *Base) Activate() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.activated = true
}

// Deactivate marks the base inactive and drops undelivered notifications.
func (b *Base) Deactivate() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.activated = false
	b.notifications.Clear()
}

// IsActivated returns true once the host has activated the base.
func (b *Base) IsActivated() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.activated
}

// BlankResponse returns the empty acknowledgement for sequence.
func BlankResponse(sequence uint8) [ReportSize]byte {
	var reply [ReportSize]byte
	reply[0] = FrameReply
	reply[1] = 0x01
	reply[2] = sequence
	reply[3] = Checksum(reply[:3])
	return reply
}

// PresentFigures returns the presence report: one (position+order, 0x09)
// pair per present figure.
func (b *Base) PresentFigures(sequence uint8) [ReportSize]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var reply [ReportSize]byte
	x := 3
	for _, p := range []struct {
		role Role
		code byte
	}{
		{RolePlayerOneAbility, 0x20},
		{RolePlayerOne, 0x20},
		{RolePlayerTwoAbility, 0x30},
		{RolePlayerTwo, 0x30},
		{RoleHexagon, 0x10},
	} {
		if f := b.slot(p.role); f.present {
			reply[x] = p.code + f.order
			reply[x+1] = figureMarker
			x += 2
		}
	}
	reply[0] = FrameReply
	reply[1] = byte(x - 2)
	reply[2] = sequence
	reply[x] = Checksum(reply[:x])
	return reply
}

// FigureIdentifier returns the tag id of the figure added in position
// order, or zeros if it is not present.
func (b *Base) FigureIdentifier(order, sequence uint8) [ReportSize]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var reply [ReportSize]byte
	reply[0] = FrameReply
	reply[1] = 0x09
	reply[2] = sequence
	if f := b.byOrder(order); f.present {
		copy(reply[4:4+UIDSize], f.data[:UIDSize])
	}
	reply[11] = Checksum(reply[:11])
	return reply
}

// QueryBlock returns 16 bytes of block from the figure added in position
// order.
func (b *Base) QueryBlock(order, block, sequence uint8) [ReportSize]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var reply [ReportSize]byte
	reply[0] = FrameReply
	reply[1] = 0x12
	reply[2] = sequence
	f := b.byOrder(order)
	if off, ok := blockOffset(block); ok && f.present {
		copy(reply[4:4+BlockSize], f.data[off:off+BlockSize])
	}
	reply[20] = Checksum(reply[:20])
	return reply
}

// WriteBlock stores 16 bytes into block of the figure added in position
// order and persists the figure.
func (b *Base) WriteBlock(order, block uint8, data []byte, sequence uint8) [ReportSize]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var reply [ReportSize]byte
	reply[0] = FrameReply
	reply[1] = 0x02
	reply[2] = sequence
	f := b.byOrder(order)
	if off, ok := blockOffset(block); ok && f.present {
		copy(f.data[off:off+BlockSize], data)
		if err := storage.Save(f.file, f.data[:]); err != nil {
			pkg.LogWarn(pkg.ComponentBase, "block write not persisted",
				"name", f.name,
				"block", block,
				"error", err)
		}
	}
	reply[4] = Checksum(reply[:4])
	return reply
}

// SeedRandom descrambles value and reseeds the generator with it.
func (b *Base) SeedRandom(value uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	seed := Descramble(value)
	b.generator.Seed(seed)
	pkg.LogDebug(pkg.ComponentCrypto, "generator seeded", "seed", fmt.Sprintf("%#08x", seed))
}

// NextRandom returns the next generator value, scrambled, as a reply.
func (b *Base) NextRandom(sequence uint8) [ReportSize]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	var reply [ReportSize]byte
	reply[0] = FrameReply
	reply[1] = 0x09
	reply[2] = sequence
	v := Scramble(b.generator.Next(), 0)
	for i := 0; i < 8; i++ {
		reply[3+i] = byte(v >> (56 - 8*i))
	}
	reply[11] = Checksum(reply[:11])
	return reply
}

// Figures returns a snapshot of every position in slot order.
func (b *Base) Figures() []SlotInfo {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	out := make([]SlotInfo, 0, NumRoles)
	for _, r := range Roles() {
		f := b.slot(r)
		info := SlotInfo{Role: r, Present: f.present, Order: f.order}
		if f.present {
			info.Name = f.name
		}
		out = append(out, info)
	}
	return out
}

// Close closes every backing file.
func (b *Base) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for i := range b.figures {
		storage.Close(b.figures[i].file)
		b.figures[i].file = nil
	}
}
