package skylander

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

// Side selects the LED zone addressed by a fade command.
type Side uint8

// LED zones. SideBoth sets right and left together.
const (
	SideRight Side = 0x00
	SideBoth  Side = 0x01
	SideLeft  Side = 0x02
	SideTrap  Side = 0x03
)

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// LEDs is the state of the portal's three light zones.
type LEDs struct {
	Right, Left, Trap Color
}

// figure is the state of one slot.
type figure struct {
	data   [FigureSize]byte
	file   storage.File
	status uint8
	queued []uint8
	serial uint32 // last serial loaded into the slot
}

func (f *figure) present() bool {
	return f.status&statusPresent != 0
}

// SlotInfo is a snapshot of one slot.
type SlotInfo struct {
	Slot    int
	Present bool
	Serial  uint32
}

// Portal is the figure registry of a Skylander portal: sixteen flat slots
// whose status transitions are reported lazily through status reports. All
// methods are safe for concurrent use.
type Portal struct {
	mutex     sync.Mutex
	figures   [MaxFigures]figure
	activated bool
	updated   bool
	counter   uint8
	leds      LEDs
}

// NewPortal creates an empty portal.
func NewPortal() *Portal {
	return &Portal{}
}

// LoadFigure places the figure held in data on the portal and returns the
// slot it landed in. A slot that last held the same serial is preferred,
// otherwise the lowest empty slot is used.
func (p *Portal) LoadFigure(data []byte, file storage.File) (int, error) {
	if len(data) < FigureSize {
		return -1, fmt.Errorf("load: %d bytes: %w", len(data), pkg.ErrFigureTooSmall)
	}
	serial := binary.LittleEndian.Uint32(data[:4])

	p.mutex.Lock()
	defer p.mutex.Unlock()

	slot := -1
	for i := range p.figures {
		f := &p.figures[i]
		if f.present() {
			continue
		}
		if f.serial == serial {
			slot = i
			break
		}
		if slot < 0 {
			slot = i
		}
	}
	if slot < 0 {
		return -1, pkg.ErrNoFreeSlot
	}

	f := &p.figures[slot]
	copy(f.data[:], data)
	storage.Close(f.file)
	f.file = file
	f.status = statusPresent | statusChanged
	f.queued = append(f.queued, statusPresent|statusChanged, statusPresent)
	f.serial = serial

	pkg.LogInfo(pkg.ComponentPortal, "figure loaded",
		"slot", slot,
		"serial", fmt.Sprintf("%08x", serial))
	return slot, nil
}

// RemoveFigure takes the figure off slot.
func (p *Portal) RemoveFigure(slot int) error {
	if slot < 0 || slot >= MaxFigures {
		return fmt.Errorf("slot %d: %w", slot, pkg.ErrSlotInvalid)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	f := &p.figures[slot]
	if !f.present() {
		return fmt.Errorf("slot %d: %w", slot, pkg.ErrSlotEmpty)
	}
	f.status = statusChanged
	f.queued = append(f.queued, statusChanged, 0)
	storage.Close(f.file)
	f.file = nil

	pkg.LogInfo(pkg.ComponentPortal, "figure removed", "slot", slot)
	return nil
}

// Activate turns the portal on. Figures already present are announced
// again.
func (p *Portal) Activate() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.activated {
		return
	}
	for i := range p.figures {
		if f := &p.figures[i]; f.present() {
			f.queued = append(f.queued, statusPresent|statusChanged, statusPresent)
		}
	}
	p.activated = true
}

// Deactivate turns the portal off, settling every slot on the last status
// it was going to report.
func (p *Portal) Deactivate() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i := range p.figures {
		f := &p.figures[i]
		if n := len(f.queued); n > 0 {
			f.status = f.queued[n-1]
			f.queued = nil
		}
		f.status &= statusPresent
	}
	p.activated = false
}

// IsActivated returns true if the portal is on.
func (p *Portal) IsActivated() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.activated
}

// UpdateStatus announces every present figure as newly placed. It takes
// effect once per portal.
func (p *Portal) UpdateStatus() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.updated {
		return
	}
	for i := range p.figures {
		if f := &p.figures[i]; f.present() {
			f.queued = append(f.queued, 0, statusPresent|statusChanged, statusPresent)
		}
	}
	p.updated = true
}

// SetLEDs sets the color of side. Unknown sides are ignored.
func (p *Portal) SetLEDs(side Side, c Color) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	switch side {
	case SideRight:
		p.leds.Right = c
	case SideBoth:
		p.leds.Right = c
		p.leds.Left = c
	case SideLeft:
		p.leds.Left = c
	case SideTrap:
		p.leds.Trap = c
	}
}

// LEDs returns the current light state.
func (p *Portal) LEDs() LEDs {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.leds
}

// Status returns a status report and advances every slot by one queued
// transition. Slot 0 occupies the two low bits of the little-endian status
// word.
func (p *Portal) Status() [BufferSize]byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var status uint32
	for i := MaxFigures - 1; i >= 0; i-- {
		f := &p.figures[i]
		if len(f.queued) > 0 {
			f.status = f.queued[0]
			f.queued = f.queued[1:]
		}
		status = status<<2 | uint32(f.status&0x03)
	}

	var reply [BufferSize]byte
	reply[0] = CommandStatus
	binary.LittleEndian.PutUint32(reply[1:5], status)
	reply[5] = p.counter
	p.counter++
	if p.activated {
		reply[6] = 0x01
	}
	return reply
}

// QueryBlock returns a query reply carrying block of slot.
func (p *Portal) QueryBlock(slot, block uint8) [BufferSize]byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var reply [BufferSize]byte
	reply[0] = CommandQuery
	reply[1] = slot
	reply[2] = block
	if int(slot) >= MaxFigures || block >= BlockCount {
		return reply
	}
	if f := &p.figures[slot]; f.present() {
		reply[1] = 0x10 | slot
		off := int(block) * BlockSize
		copy(reply[3:3+BlockSize], f.data[off:off+BlockSize])
	}
	return reply
}

// WriteBlock stores 16 bytes into block of slot and persists the figure.
func (p *Portal) WriteBlock(slot, block uint8, data []byte) [BufferSize]byte {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var reply [BufferSize]byte
	reply[0] = CommandWrite
	reply[1] = slot
	reply[2] = block
	if int(slot) >= MaxFigures || block >= BlockCount {
		return reply
	}
	if f := &p.figures[slot]; f.present() {
		reply[1] = 0x10 | slot
		off := int(block) * BlockSize
		copy(f.data[off:off+BlockSize], data)
		if err := storage.Save(f.file, f.data[:]); err != nil {
			pkg.LogWarn(pkg.ComponentPortal, "block write not persisted",
				"slot", slot,
				"block", block,
				"error", err)
		}
	}
	return reply
}

// Figures returns a snapshot of every slot.
func (p *Portal) Figures() []SlotInfo {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out := make([]SlotInfo, MaxFigures)
	for i := range p.figures {
		f := &p.figures[i]
		out[i] = SlotInfo{Slot: i, Present: f.present(), Serial: f.serial}
	}
	return out
}

// Close closes every backing file.
func (p *Portal) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i := range p.figures {
		storage.Close(p.figures[i].file)
		p.figures[i].file = nil
	}
}
