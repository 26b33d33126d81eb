// Package infinity emulates the Disney Infinity base.
//
// The base has five figure positions ([Role]): the hexagon for play sets
// and power discs, one character position per player and one ability
// position per player. Figures are 0x140-byte files of five 0x40-byte
// pages. Block 0 holds the tag id in clear; block 1 holds the figure's
// identity, AES encrypted under a key derived from the tag id
// ([DeriveKey]).
//
// All traffic uses the interrupt endpoints. The host sends command frames
//
//	FF <len> <command> <sequence> <data...> <checksum>
//
// and polls with AA or AB frames. Every command is echoed back and its
// reply (AA ...) is delivered to the next poll. Figure arrivals and
// departures are reported as AB notifications ahead of queued replies.
//
// The handshake exchanges random numbers from a seeded [Generator]
// interleaved with garbage bits by [Scramble].
package infinity
