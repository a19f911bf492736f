package sga

import (
	"crypto/md5"
	"hash/crc32"
	"io"

	"golang.org/x/xerrors"
)

// Eigen salts: fixed ASCII byte strings prepended to the hashed span before
// computing the archive's two integrity MD5s. Values are the constants
// named in spec.md §4.E.
const (
	eigenFile = "E01519D6-2DB7-4640-AF54-0A23319C56C3"
	eigenTOC  = "DFC9AF62-FC1B-4180-BC27-11CCE87D3EFF"
)

// md5WithEigen hashes the eigen salt followed by the contents of r,
// returning the raw 16-byte digest.
func md5WithEigen(eigen string, r io.Reader) ([16]byte, error) {
	h := md5.New()
	if _, err := io.WriteString(h, eigen); err != nil {
		return [16]byte{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return [16]byte{}, xerrors.Errorf("hashing span: %w", err)
	}
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// crc32IEEE computes the standard (IEEE polynomial) CRC32 of r, matching
// the crc32 primitive spec.md assumes is available externally.
func crc32IEEE(r io.Reader) (uint32, error) {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, r); err != nil {
		return 0, xerrors.Errorf("crc32: %w", err)
	}
	return h.Sum32(), nil
}

// CRC32 is crc32IEEE exported for verify_crc32 callers outside this
// package (the VFS layer needs to recompute a payload's CRC32 the same way
// the archive does when recovering a missing data header).
func CRC32(r io.Reader) (uint32, error) { return crc32IEEE(r) }

