package infinity

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softportal/pkg"
	"github.com/ardnew/softportal/pkg/storage"
)

// Fixed bytes written into every new figure.
var (
	uidTrailer      = [4]byte{0x89, 0x44, 0x00, 0xC2}
	metadataTrailer = [3]byte{0x01, 0xD1, 0x1F}
	firstMarker     = [3]byte{0x17, 0x87, 0x8E}
	pageMarker      = [3]byte{0x77, 0x87, 0x88}
)

// Byte offsets inside a figure file.
const (
	offsetMetadata    = 0x10
	offsetFirstMarker = 0x36
	offsetPageMarker  = 0x34
)

// blankBlocks are the blocks filled with the encrypted zero block.
var blankBlocks = [...]int{0x04, 0x08, 0x0C, 0x0D}

// FigureInfo is the decoded identity of a figure file.
type FigureInfo struct {
	UID      [UIDSize]byte
	Category Category
	Number   uint16
	Stamp    [4]byte // variant code or creation date
	CRC      uint32
	Name     string // empty if the number is not in the catalog
}

// metadataBlock encodes the 16-byte identity block for e.
func metadataBlock(e *Entry) [BlockSize]byte {
	var block [BlockSize]byte
	block[1] = e.Category.code()
	binary.BigEndian.PutUint16(block[2:4], e.Number)
	if e.Variant == 0 {
		d := e.Category.date()
		copy(block[4:7], d[:])
	} else {
		binary.BigEndian.PutUint32(block[4:8], e.Variant)
	}
	copy(block[9:12], metadataTrailer[:])
	binary.BigEndian.PutUint32(block[12:16], CRC32(block[:12]))
	return block
}

// BuildFigure returns the contents of a new figure file for the catalog
// entry with the given number.
func BuildFigure(number uint16) ([]byte, error) {
	e := lookupNumber(number)
	if e == nil {
		return nil, fmt.Errorf("figure %#04x: %w", number, pkg.ErrFigureNotFound)
	}

	buf := make([]byte, FigureSize)
	copy(buf[offsetFirstMarker:], firstMarker[:])
	for page := 1; page < PageCount; page++ {
		copy(buf[page*PageSize+offsetPageMarker:], pageMarker[:])
	}

	uid := e.UIDBytes()
	copy(buf[0:UIDSize], uid[:])
	copy(buf[UIDSize:BlockSize], uidTrailer[:])

	key := DeriveKey(uid)
	meta := EncryptBlock(key, metadataBlock(e))
	copy(buf[offsetMetadata:], meta[:])

	blank := EncryptBlock(key, [BlockSize]byte{})
	for _, b := range blankBlocks {
		copy(buf[b*BlockSize:], blank[:])
	}

	pkg.LogDebug(pkg.ComponentCrypto, "figure built",
		"name", e.Name,
		"number", fmt.Sprintf("%#04x", number))
	return buf, nil
}

// CreateFigure writes a new figure file for number to path and returns the
// catalog entry it was built from. Nothing is written for an unknown number.
func CreateFigure(path string, number uint16) (Entry, error) {
	buf, err := BuildFigure(number)
	if err != nil {
		return Entry{}, err
	}
	if err := storage.WriteFile(path, buf); err != nil {
		return Entry{}, err
	}
	return *lookupNumber(number), nil
}

// figureNumber decrypts the metadata block of buf and returns the numeric
// id stored in it. buf must hold at least two blocks.
func figureNumber(buf []byte) (uint16, [BlockSize]byte) {
	var uid [UIDSize]byte
	copy(uid[:], buf[:UIDSize])
	var enc [BlockSize]byte
	copy(enc[:], buf[offsetMetadata:offsetMetadata+BlockSize])
	dec := DecryptBlock(DeriveKey(uid), enc)
	return binary.BigEndian.Uint16(dec[2:4]), dec
}

// InspectFigure decodes and validates the identity of a figure file.
func InspectFigure(buf []byte) (FigureInfo, error) {
	if len(buf) < FigureSize {
		return FigureInfo{}, fmt.Errorf("%d bytes: %w", len(buf), pkg.ErrFigureTooSmall)
	}

	var info FigureInfo
	copy(info.UID[:], buf[:UIDSize])
	number, dec := figureNumber(buf)
	info.Number = number
	copy(info.Stamp[:], dec[4:8])
	info.CRC = binary.BigEndian.Uint32(dec[12:16])

	cat, ok := categoryFromCode(dec[1])
	if !ok {
		return info, fmt.Errorf("category byte %#02x: %w", dec[1], pkg.ErrFigureCorrupt)
	}
	info.Category = cat
	if want := CRC32(dec[:12]); want != info.CRC {
		return info, fmt.Errorf("crc %#08x, want %#08x: %w", info.CRC, want, pkg.ErrFigureCorrupt)
	}
	info.Name, _ = FindByNumber(number)
	return info, nil
}
