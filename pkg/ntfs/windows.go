//go:build windows

package ntfs

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// Windows USN/MFT ioctl surface (spec §4.2). Constants and struct layouts
// follow the documented winioctl.h shapes.
const (
	fsctlQueryUsnJournal = 0x000900F4
	fsctlReadUsnJournal  = 0x000900BB
	fsctlEnumUsnData     = 0x000900B3

	usnReasonFileCreate    = 0x00000100
	usnReasonFileDelete    = 0x00000200
	usnReasonRenameNewName = 0x00002000
	usnReasonRenameOldName = 0x00001000
	usnReasonDataOverwrite = 0x00000001
	usnReasonDataExtend    = 0x00000002
	usnReasonDataTrunc     = 0x00000004
	usnReasonBasicInfo     = 0x00008000

	usnReasonMask = usnReasonFileCreate | usnReasonFileDelete |
		usnReasonRenameNewName | usnReasonRenameOldName |
		usnReasonDataOverwrite | usnReasonDataExtend | usnReasonDataTrunc |
		usnReasonBasicInfo
)

type queryUsnJournalData struct {
	UsnJournalID    uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaximumSize     uint64
	AllocationDelta uint64
}

type readUsnJournalData struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

type usnRecordV2 struct {
	RecordLength              uint32
	MajorVersion              uint16
	MinorVersion              uint16
	FileReferenceNumber       uint64
	ParentFileReferenceNumber uint64
	Usn                       int64
	TimeStamp                 int64
	Reason                    uint32
	SourceInfo                uint32
	SecurityID                uint32
	FileAttributes            uint32
	FileNameLength            uint16
	FileNameOffset            uint16
}

type mftEnumDataV0 struct {
	StartFileReferenceNumber uint64
	LowUsn                   int64
	HighUsn                  int64
}

// volumeHandle wraps the open volume handle used for both journal
// tailing and MFT enumeration ioctls.
type volumeHandle struct {
	volumeID ids.VolumeId
	handle   windows.Handle
}

// OpenVolume opens a raw handle to a volume for ioctl access, e.g.
// `\\.\C:`.
func OpenVolume(volumeID ids.VolumeId, devicePath string) (*volumeHandle, error) {
	pathPtr, err := windows.UTF16PtrFromString(devicePath)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(
		pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open volume %s: %w", devicePath, err)
	}
	return &volumeHandle{volumeID: volumeID, handle: h}, nil
}

func (v *volumeHandle) Close() error {
	return windows.CloseHandle(v.handle)
}

// Position implements chunkReader by issuing FSCTL_QUERY_USN_JOURNAL.
func (v *volumeHandle) Position() (JournalPosition, error) {
	var data queryUsnJournalData
	var returned uint32
	err := windows.DeviceIoControl(
		v.handle, fsctlQueryUsnJournal, nil, 0,
		(*byte)(unsafe.Pointer(&data)), uint32(unsafe.Sizeof(data)), &returned, nil,
	)
	if err != nil {
		return JournalPosition{}, fmt.Errorf("FSCTL_QUERY_USN_JOURNAL: %w", err)
	}
	return JournalPosition{
		JournalID: data.UsnJournalID,
		FirstUsn:  ids.Usn(data.FirstUsn),
		NextUsn:   ids.Usn(data.NextUsn),
	}, nil
}

// ReadChunk implements chunkReader by issuing FSCTL_READ_USN_JOURNAL and
// translating raw USN_RECORD_V2 entries into the FileEvent union.
func (v *volumeHandle) ReadChunk(ctx context.Context, startUsn ids.Usn, maxBytes int) ([]FileEvent, ids.Usn, error) {
	pos, err := v.Position()
	if err != nil {
		return nil, 0, err
	}

	readData := readUsnJournalData{
		StartUsn:     int64(startUsn),
		ReasonMask:   usnReasonMask,
		UsnJournalID: pos.JournalID,
	}

	buf := make([]byte, maxBytes)
	var returned uint32
	err = windows.DeviceIoControl(
		v.handle, fsctlReadUsnJournal,
		(*byte)(unsafe.Pointer(&readData)), uint32(unsafe.Sizeof(readData)),
		&buf[0], uint32(len(buf)), &returned, nil,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("FSCTL_READ_USN_JOURNAL: %w", err)
	}
	if returned <= 8 {
		return nil, startUsn, nil
	}

	nextUsn := ids.Usn(*(*int64)(unsafe.Pointer(&buf[0])))
	events := parseUsnRecords(v.volumeID, buf[8:returned])
	return events, nextUsn, nil
}

// parseUsnRecords walks a buffer of consecutive USN_RECORD_V2 entries and
// translates each into a FileEvent (spec §4.2 union).
func parseUsnRecords(volumeID ids.VolumeId, buf []byte) []FileEvent {
	var events []FileEvent
	var offset uint32
	for offset < uint32(len(buf)) {
		if offset+8 > uint32(len(buf)) {
			break
		}
		rec := (*usnRecordV2)(unsafe.Pointer(&buf[offset]))
		if rec.RecordLength == 0 || offset+rec.RecordLength > uint32(len(buf)) {
			break
		}

		nameOffset := offset + uint32(rec.FileNameOffset)
		nameEnd := nameOffset + uint32(rec.FileNameLength)
		var name string
		if nameEnd <= uint32(len(buf)) && rec.FileNameLength > 0 {
			nameBytes := buf[nameOffset:nameEnd]
			u16 := unsafe.Slice((*uint16)(unsafe.Pointer(&nameBytes[0])), rec.FileNameLength/2)
			name = windows.UTF16ToString(u16)
		}

		docKey := ids.Pack(volumeID, ids.FileId(rec.FileReferenceNumber))
		parentFRN := ids.FileId(rec.ParentFileReferenceNumber)

		ev := FileEvent{
			DocKey:       docKey,
			FileId:       ids.FileId(rec.FileReferenceNumber),
			ParentFRN:    parentFRN,
			NewParentFRN: parentFRN,
			Usn:          ids.Usn(rec.Usn),
		}

		switch {
		case rec.Reason&usnReasonFileCreate != 0:
			ev.Kind = Created
			ev.Name = name
		case rec.Reason&usnReasonFileDelete != 0:
			ev.Kind = Deleted
		case rec.Reason&usnReasonRenameNewName != 0:
			ev.Kind = Renamed
			ev.NewName = name
		case rec.Reason&usnReasonRenameOldName != 0:
			ev.Kind = Renamed
			ev.OldName = name
		case rec.Reason&(usnReasonDataOverwrite|usnReasonDataExtend|usnReasonDataTrunc) != 0:
			ev.Kind = Modified
		case rec.Reason&usnReasonBasicInfo != 0:
			ev.Kind = BasicInfoChanged
		default:
			offset += rec.RecordLength
			continue
		}

		events = append(events, ev)
		offset += rec.RecordLength
	}
	return events
}

// NewMFTEnumerator starts a bulk enumeration pass over the volume's MFT,
// beginning at record 0 (spec §4.2: "finite and non-restartable within a
// run").
func NewMFTEnumerator(vol *volumeHandle, chunkBytes int) *mftReaderWindows {
	if chunkBytes <= 0 {
		chunkBytes = 1_048_576
	}
	return &mftReaderWindows{vol: vol, chunkBytes: chunkBytes}
}

type mftReaderWindows struct {
	vol        *volumeHandle
	chunkBytes int
	pending    []FileMetaSeed
	startRef   uint64
	done       bool
}

func (m *mftReaderWindows) Next(ctx context.Context) (FileMetaSeed, bool, error) {
	for len(m.pending) == 0 {
		if m.done {
			return FileMetaSeed{}, false, nil
		}
		if err := m.fetch(); err != nil {
			return FileMetaSeed{}, false, err
		}
	}
	seed := m.pending[0]
	m.pending = m.pending[1:]
	return seed, true, nil
}

func (m *mftReaderWindows) fetch() error {
	enumData := mftEnumDataV0{
		StartFileReferenceNumber: m.startRef,
		LowUsn:                   0,
		HighUsn:                  int64(^uint64(0) >> 1),
	}

	buf := make([]byte, m.chunkBytes)
	var returned uint32
	err := windows.DeviceIoControl(
		m.vol.handle, fsctlEnumUsnData,
		(*byte)(unsafe.Pointer(&enumData)), uint32(unsafe.Sizeof(enumData)),
		&buf[0], uint32(len(buf)), &returned, nil,
	)
	if err != nil {
		if err == windows.ERROR_HANDLE_EOF {
			m.done = true
			return nil
		}
		return fmt.Errorf("FSCTL_ENUM_USN_DATA: %w", err)
	}
	if returned <= 8 {
		m.done = true
		return nil
	}

	m.startRef = *(*uint64)(unsafe.Pointer(&buf[0]))
	m.pending = parseMftRecords(m.vol.volumeID, buf[8:returned])
	return nil
}

func parseMftRecords(volumeID ids.VolumeId, buf []byte) []FileMetaSeed {
	var out []FileMetaSeed
	var offset uint32
	for offset < uint32(len(buf)) {
		if offset+8 > uint32(len(buf)) {
			break
		}
		rec := (*usnRecordV2)(unsafe.Pointer(&buf[offset]))
		if rec.RecordLength == 0 || offset+rec.RecordLength > uint32(len(buf)) {
			break
		}

		nameOffset := offset + uint32(rec.FileNameOffset)
		nameEnd := nameOffset + uint32(rec.FileNameLength)
		var name string
		if nameEnd <= uint32(len(buf)) && rec.FileNameLength > 0 {
			nameBytes := buf[nameOffset:nameEnd]
			u16 := unsafe.Slice((*uint16)(unsafe.Pointer(&nameBytes[0])), rec.FileNameLength/2)
			name = windows.UTF16ToString(u16)
		}

		var flags uint32
		if rec.FileAttributes&uint32(windows.FILE_ATTRIBUTE_DIRECTORY) != 0 {
			flags |= FlagDirectory
		}
		if rec.FileAttributes&uint32(windows.FILE_ATTRIBUTE_REPARSE_POINT) != 0 {
			flags |= FlagReparsePoint
		}

		out = append(out, FileMetaSeed{
			DocKey:    ids.Pack(volumeID, ids.FileId(rec.FileReferenceNumber)),
			FileId:    ids.FileId(rec.FileReferenceNumber),
			ParentFRN: ids.FileId(rec.ParentFileReferenceNumber),
			Name:      name,
			Flags:     flags,
		})

		offset += rec.RecordLength
	}
	return out
}
