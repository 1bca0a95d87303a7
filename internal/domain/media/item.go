package media

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// Storage key prefixes double as lifecycle markers: uploads land under
// incoming/, builds publish under outputs/ and park consumed inputs
// under archive/.
const (
	PrefixIncoming = "incoming/"
	PrefixOutputs  = "outputs/"
	PrefixArchive  = "archive/"
)

// Item is one catalog row in the social bucket. The upload flow creates
// rows; the build pipeline only ever rewrites StorageKey (on archival),
// Diagnostics and UpdatedAt, and inserts new rows for outputs. Rows are
// never deleted here.
type Item struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	StorageKey string    `gorm:"column:storage_key;not null;index" json:"storage_key"`
	MimeType   string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64     `gorm:"column:size_bytes" json:"size_bytes"`
	IsTrashed  bool      `gorm:"column:is_trashed;not null;default:false;index" json:"is_trashed"`

	// Build diagnostics, e.g. why an item was left out of the montage.
	Diagnostics datatypes.JSON `gorm:"column:diagnostics;type:jsonb" json:"diagnostics,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Item) TableName() string { return "media_item" }

// ItemKind classifies by storage key extension; the upload flow does
// not record a kind column.
func (i *Item) ItemKind() Kind {
	return KindForKey(i.StorageKey)
}

func KindForKey(key string) Kind {
	switch strings.ToLower(path.Ext(strings.TrimSpace(key))) {
	case ".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm":
		return KindVideo
	case ".jpg", ".jpeg", ".png", ".webp":
		return KindImage
	default:
		return KindOther
	}
}
