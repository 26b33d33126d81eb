package infinity

import (
	"crypto/aes"
	"crypto/sha1"
	"hash/crc32"
)

// keySalt is prepended to a figure's uid before hashing.
var keySalt = [31]byte{
	0xAF, 0x62, 0xD2, 0xEC, 0x04, 0x91, 0x96, 0x8C,
	0xC5, 0x2A, 0x1A, 0x71, 0x65, 0xF8, 0x65, 0xFE,
	0x28, 0x63, 0x29, 0x20, 0x44, 0x69, 0x73, 0x6E,
	0x65, 0x79, 0x20, 0x32, 0x30, 0x31, 0x33,
}

// Key is the AES-128 key of one figure.
type Key [16]byte

// DeriveKey computes the block key for the figure with the given 7-byte uid:
// the first 16 bytes of SHA-1(salt || uid), with every 4-byte word byte
// reversed.
func DeriveKey(uid [UIDSize]byte) Key {
	h := sha1.New()
	h.Write(keySalt[:])
	h.Write(uid[:])
	digest := h.Sum(nil)

	var key Key
	for word := 0; word < 4; word++ {
		for i := 0; i < 4; i++ {
			key[word*4+i] = digest[word*4+3-i]
		}
	}
	return key
}

// EncryptBlock encrypts one 16-byte block. A single block under CBC with a
// zero IV is the same as the raw cipher.
func EncryptBlock(key Key, plain [BlockSize]byte) [BlockSize]byte {
	c, _ := aes.NewCipher(key[:]) // 16-byte key never fails
	var out [BlockSize]byte
	c.Encrypt(out[:], plain[:])
	return out
}

// DecryptBlock decrypts one 16-byte block.
func DecryptBlock(key Key, cipher [BlockSize]byte) [BlockSize]byte {
	c, _ := aes.NewCipher(key[:])
	var out [BlockSize]byte
	c.Decrypt(out[:], cipher[:])
	return out
}

// Checksum returns the 8-bit truncated sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// CRC32 computes the reflected IEEE 802.3 CRC with an initial value of zero
// and no final inversion, as stored in figure metadata.
func CRC32(data []byte) uint32 {
	return ^crc32.Update(0xFFFFFFFF, crc32.IEEETable, data)
}
