package sga

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/xerrors"
)

// readUint16/readUint32 and writeUint16/writeUint32 are the Uint(k, endian,
// signed) converter from the design, specialized to the two widths SGA v2
// actually uses — little-endian, unsigned. Grounded on mpq.go's field-by-field
// binary.Read/binary.Write calls.

func readUint16(w window, offset int64) (uint16, error) {
	var buf [2]byte
	if err := w.readAt(buf[:], offset); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func writeUint16(w window, offset int64, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return w.writeAt(buf[:], offset)
}

func readUint32(w window, offset int64) (uint32, error) {
	var buf [4]byte
	if err := w.readAt(buf[:], offset); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32(w window, offset int64, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return w.writeAt(buf[:], offset)
}

func readInt32(w window, offset int64) (int32, error) {
	v, err := readUint32(w, offset)
	return int32(v), err
}

func writeInt32(w window, offset int64, v int32) error {
	return writeUint32(w, offset, uint32(v))
}

func readBytes(w window, offset, length int64) ([]byte, error) {
	buf := make([]byte, length)
	if err := w.readAt(buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBytes(w window, offset int64, b []byte) error {
	return w.writeAt(b, offset)
}

// cstringEncoding selects the text encoding used by a fixed-length,
// pad-byte-terminated C-string field.
type cstringEncoding int

const (
	encodingASCII cstringEncoding = iota
	encodingUTF16LE
)

// readCString decodes a fixed-length, pad-padded string: it reads fixedLen
// bytes, truncates at the first pad byte (a full pad-byte run for UTF-16LE,
// since a NUL code unit is two zero bytes), and decodes per encoding.
func readCString(w window, offset, fixedLen int64, enc cstringEncoding, pad byte) (string, error) {
	raw, err := readBytes(w, offset, fixedLen)
	if err != nil {
		return "", err
	}
	switch enc {
	case encodingASCII:
		if i := bytes.IndexByte(raw, pad); i >= 0 {
			raw = raw[:i]
		}
		return string(raw), nil
	case encodingUTF16LE:
		units := make([]uint16, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			u := binary.LittleEndian.Uint16(raw[i : i+2])
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		return string(utf16.Decode(units)), nil
	default:
		return "", xerrors.Errorf("unknown cstring encoding %d", enc)
	}
}

// writeCString encodes s, asserts it fits within fixedLen bytes, and
// right-pads the remainder with pad.
func writeCString(w window, offset, fixedLen int64, s string, enc cstringEncoding, pad byte) error {
	var encoded []byte
	switch enc {
	case encodingASCII:
		encoded = []byte(s)
	case encodingUTF16LE:
		units := utf16.Encode([]rune(s))
		encoded = make([]byte, len(units)*2)
		for i, u := range units {
			binary.LittleEndian.PutUint16(encoded[i*2:i*2+2], u)
		}
	default:
		return xerrors.Errorf("unknown cstring encoding %d", enc)
	}
	if int64(len(encoded)) > fixedLen {
		return xerrors.Errorf("encoded string %d bytes exceeds fixed field length %d", len(encoded), fixedLen)
	}
	buf := make([]byte, fixedLen)
	for i := range buf {
		buf[i] = pad
	}
	copy(buf, encoded)
	return w.writeAt(buf, offset)
}
