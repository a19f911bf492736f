package sga

// DataHeader is the 264-byte header immediately preceding each file's
// payload in the data block.
type DataHeader struct {
	Name     string // ≤256 bytes ASCII, NUL-padded on disk
	Modified int32  // unix seconds, little-endian
	CRC32    uint32
}

const (
	dataHeaderNameSize = 256
)

func readDataHeader(w window) (DataHeader, error) {
	var h DataHeader
	var err error
	if h.Name, err = readCString(w, 0, dataHeaderNameSize, encodingASCII, 0); err != nil {
		return h, err
	}
	if h.Modified, err = readInt32(w, dataHeaderNameSize); err != nil {
		return h, err
	}
	if h.CRC32, err = readUint32(w, dataHeaderNameSize+4); err != nil {
		return h, err
	}
	return h, nil
}

func writeDataHeader(w window, h DataHeader) error {
	if err := writeCString(w, 0, dataHeaderNameSize, h.Name, encodingASCII, 0); err != nil {
		return err
	}
	if err := writeInt32(w, dataHeaderNameSize, h.Modified); err != nil {
		return err
	}
	return writeUint32(w, dataHeaderNameSize+4, h.CRC32)
}

// isPrintableASCII reports whether every byte of s is in the printable
// ASCII range, the criterion spec.md §4.C uses to decide whether a decoded
// data header name is plausible rather than garbage read from a missing
// header.
func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

// readValidDataHeader reads the 264-byte data header at w and reports
// whether it is valid: decodable and printable-ASCII-named. An invalid
// header must be recovered by the caller via synthesizeDataHeader rather
// than trusted, per spec.md §4.C / §7.
func readValidDataHeader(w window) (h DataHeader, valid bool, err error) {
	h, err = readDataHeader(w)
	if err != nil {
		return DataHeader{}, false, nil //nolint:nilerr // a decode failure means "invalid", not a propagated error
	}
	return h, isPrintableASCII(h.Name), nil
}

// synthesizeDataHeader rebuilds a data header from the TOC entry's name and
// the payload's actual CRC32 when the on-disk header is missing or corrupt.
func synthesizeDataHeader(name string, crc uint32, modified int32) DataHeader {
	return DataHeader{Name: name, Modified: modified, CRC32: crc}
}
