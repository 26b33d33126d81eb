// Package skylander emulates the Skylanders portal of power.
//
// The portal holds up to sixteen figures in flat slots. A figure is a
// 1 KiB file of 64 16-byte blocks whose first four bytes are its serial.
//
// The host drives the portal with single-letter commands sent as HID
// SET_REPORT control transfers ('A' activate, 'C' 'J' 'L' lights, 'M'
// audio, 'Q' query a block, 'R' ready, 'S' status, 'V' version, 'W' write
// a block). Replies are queued and returned to the next interrupt poll;
// with nothing queued a poll returns a status report in which every slot
// contributes two bits: present and changed.
package skylander
