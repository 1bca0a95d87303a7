package domain

import (
	"github.com/yungbote/socialreel-backend/internal/domain/media"
)

type MediaItem = media.Item
type MediaKind = media.Kind

const (
	MediaKindVideo = media.KindVideo
	MediaKindImage = media.KindImage
	MediaKindOther = media.KindOther

	PrefixIncoming = media.PrefixIncoming
	PrefixOutputs  = media.PrefixOutputs
	PrefixArchive  = media.PrefixArchive
)
