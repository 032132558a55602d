package metaindex

import (
	"time"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// MetaDoc is the metadata-index document shape (spec §3/§4.3).
type MetaDoc struct {
	Type      string    `json:"_type"`
	DocKey    string    `json:"doc_key"`
	Volume    uint16    `json:"volume"`
	// FileSeq is the reuse sequence number from the indexed FileId (spec
	// §4.3). DocKey alone masks it out, so it's kept here to detect MFT
	// record reuse: a later event whose FileId carries a different
	// sequence number refers to a different file that happens to share
	// the same low-48-bit record number.
	FileSeq   uint16    `json:"file_seq"`
	Name      string    `json:"name"`
	NameExact string    `json:"name_exact"`
	Path      string    `json:"path"`
	Ext       string    `json:"ext"`
	Size      int64     `json:"size"`
	Created   time.Time `json:"created"`
	Modified  time.Time `json:"modified"`
	Flags     uint32    `json:"flags"`
}

// NewMetaDoc builds a MetaDoc from a seed/event's identifying fields.
// fileID is the raw, unmasked file reference number; its high 16 bits are
// stored as FileSeq for later reuse detection.
func NewMetaDoc(key ids.DocKey, fileID ids.FileId, name, path, ext string, size int64, created, modified time.Time, flags uint32) *MetaDoc {
	return &MetaDoc{
		Type:      docType,
		DocKey:    key.String(),
		Volume:    uint16(key.Volume()),
		FileSeq:   fileID.SequenceNumber(),
		Name:      name,
		NameExact: name,
		Path:      path,
		Ext:       ext,
		Size:      size,
		Created:   created,
		Modified:  modified,
		Flags:     flags,
	}
}
