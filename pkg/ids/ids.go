// Package ids defines the primary identifiers shared by every index and
// protocol message in UltraSearch: VolumeId, FileId, DocKey and Usn.
package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// VolumeId is a runtime-assigned index into the volume table. It is stable
// across restarts for a given volume GUID path and is persisted in that
// volume's state file.
type VolumeId uint16

// FileId is the NTFS file reference number: the low 48 bits are the MFT
// record number, the high 16 bits are the record's reuse sequence number.
type FileId uint64

// fileIdMask keeps the low 48 bits of a FileId, matching the on-disk width
// of the MFT record number component of a Windows file reference number.
const fileIdMask = 0x0000_FFFF_FFFF_FFFF

// DocKey is the primary key shared by the metadata and content indices:
// (VolumeId << 48) | (FileId & 0x0000_FFFF_FFFF_FFFF).
type DocKey uint64

// Usn is a position in a volume's USN change journal. It is signed because
// the underlying Windows API represents USN offsets as a signed 64-bit
// integer (a journal can in principle start below zero after certain
// resets).
type Usn int64

// Pack builds a DocKey from a volume id and a file id, keeping only the low
// 48 bits of the file id.
func Pack(v VolumeId, f FileId) DocKey {
	return DocKey(uint64(v)<<48 | (uint64(f) & fileIdMask))
}

// Unpack splits a DocKey back into its volume id and masked file id.
//
// Unpack(Pack(v, f)) == (v, FileId(f) & 0x0000_FFFF_FFFF_FFFF) for all v, f.
func Unpack(k DocKey) (VolumeId, FileId) {
	v := VolumeId(uint64(k) >> 48)
	f := FileId(uint64(k) & fileIdMask)
	return v, f
}

// Volume returns the VolumeId encoded in the key.
func (k DocKey) Volume() VolumeId {
	v, _ := Unpack(k)
	return v
}

// File returns the masked FileId encoded in the key.
func (k DocKey) File() FileId {
	_, f := Unpack(k)
	return f
}

// String renders a DocKey as volume:file for logs and debugging.
func (k DocKey) String() string {
	v, f := Unpack(k)
	return fmt.Sprintf("%d:%014x", v, uint64(f))
}

// ParseDocKeyString parses the "volume:file_hex" form produced by
// DocKey.String, for callers that only have a bleve document ID string
// (the index's documents are keyed by this string, not the raw uint64).
func ParseDocKeyString(s string) (DocKey, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed doc key %q", s)
	}
	v, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("malformed doc key volume %q: %w", s, err)
	}
	f, err := strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed doc key file id %q: %w", s, err)
	}
	return Pack(VolumeId(v), FileId(f)), nil
}

// RecordNumber returns the low 48-bit MFT record number of a FileId.
func (f FileId) RecordNumber() uint64 {
	return uint64(f) & fileIdMask
}

// SequenceNumber returns the high 16-bit reuse sequence number of a FileId.
// A write whose FileId sequence number does not match the index's stored
// sequence number signals a stale reference (the MFT record was reused by
// a different file since the doc was indexed).
func (f FileId) SequenceNumber() uint16 {
	return uint16(uint64(f) >> 48)
}
