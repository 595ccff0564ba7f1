// Package pipeline implements the durable, resumable track-request state
// machine: the projection from a State value to the next Step, the handler
// for each Step, and the typed errors a handler can fail with.
//
// Nothing in this package touches storage or scheduling directly — see
// internal/store for persistence and internal/processor for the run loop
// that ties State projection, handler invocation, and checkpointing
// together.
package pipeline

import "github.com/google/uuid"

// UserId is an opaque numeric account identity.
type UserId int64

// RequestId uniquely identifies one track request for a user.
type RequestId uuid.UUID

// NewRequestId generates a fresh RequestId.
func NewRequestId() RequestId {
	return RequestId(uuid.New())
}

// String renders the canonical hyphenated hexadecimal form used as the
// on-disk store key (spec.md §6 "Filesystem layout").
func (r RequestId) String() string {
	return uuid.UUID(r).String()
}

// ParseRequestId parses the canonical text form back into a RequestId.
func ParseRequestId(s string) (RequestId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RequestId{}, err
	}
	return RequestId(u), nil
}

// ChannelId identifies a target channel at the broadcast backend.
type ChannelId uint64

// TopicId identifies a search result (a forum topic) at the index.
type TopicId uint64

// DownloadId identifies a downloadable torrent descriptor at the index.
type DownloadId uint64

// TorrentId identifies an active torrent at the local torrent engine.
type TorrentId int64

// TrackId identifies uploaded content at the broadcast backend.
type TrackId string

// LinkId identifies a playlist attachment at the broadcast backend.
type LinkId string

// AudioMetadata carries the title/artist/album a caller wants installed onto
// a channel. Fields are case-preserving on read; the pipeline's own
// comparisons are case-insensitive and prefix-tolerant (see CheckDownloadStatus
// in handlers.go).
type AudioMetadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

// CreateRequestOptions holds per-request behavior toggles supplied by the
// caller at creation time.
type CreateRequestOptions struct {
	// ValidateMetadata selects tag-based exact-prefix matching over
	// filename-substring matching when picking the file inside a completed
	// torrent (spec.md §9 Open Question 3).
	ValidateMetadata bool `json:"validateMetadata"`
}

// Context is immutable for the life of a request.
type Context struct {
	Metadata        AudioMetadata         `json:"metadata"`
	Options         CreateRequestOptions  `json:"options"`
	TargetChannelID ChannelId             `json:"targetChannelId"`
}

// State is mutated monotonically as the pipeline advances. The presence
// pattern of its optional fields uniquely determines the next Step — see
// NextStep in state.go, the single authoritative projection.
type State struct {
	TriedTopics          []TopicId `json:"triedTopics"`
	CurrentDownloadID    *DownloadId `json:"currentDownloadId,omitempty"`
	CurrentTorrentBlob   []byte      `json:"currentTorrentBlob,omitempty"`
	CurrentTorrentID     *TorrentId  `json:"currentTorrentId,omitempty"`
	PathToDownloadedFile *string     `json:"pathToDownloadedFile,omitempty"`
	RadioManagerTrackID  *TrackId    `json:"radioManagerTrackId,omitempty"`
	RadioManagerLinkID   *LinkId     `json:"radioManagerLinkId,omitempty"`
}

// currentTorrentBlobPresent reports whether CurrentTorrentBlob has been set.
// A zero-length-but-non-nil slice still counts as "present" — only the nil
// state means "not yet downloaded" (mirrors the Option<Vec<u8>> semantics of
// the original source).
func (s *State) currentTorrentBlobPresent() bool {
	return s.CurrentTorrentBlob != nil
}

// Status is independent of State; it's what external callers observe.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusNotFound   Status = "NotFound"
	StatusFailed     Status = "Failed"
	StatusFinished   Status = "Finished"
)

// Step is one stage of the pipeline, in order.
type Step int

const (
	StepSearchAudioAlbum Step = iota
	StepDownloadTorrentFile
	StepDownloadAlbum
	StepCheckDownloadStatus
	StepUploadToRadioManager
	StepAddToRadioManagerChannel
	StepFinish
)

func (s Step) String() string {
	switch s {
	case StepSearchAudioAlbum:
		return "SearchAudioAlbum"
	case StepDownloadTorrentFile:
		return "DownloadTorrentFile"
	case StepDownloadAlbum:
		return "DownloadAlbum"
	case StepCheckDownloadStatus:
		return "CheckDownloadStatus"
	case StepUploadToRadioManager:
		return "UploadToRadioManager"
	case StepAddToRadioManagerChannel:
		return "AddToRadioManagerChannel"
	case StepFinish:
		return "Finish"
	default:
		return "Unknown"
	}
}

// TopicData is one search result.
type TopicData struct {
	TopicID    TopicId    `json:"topicId"`
	DownloadID DownloadId `json:"downloadId"`
	Title      string     `json:"title"`
}

// TorrentStatus is the engine-reported state of an active torrent.
type TorrentStatus int

const (
	TorrentDownloading TorrentStatus = iota
	TorrentComplete
)

// Torrent is the engine's view of an active download.
type Torrent struct {
	Status TorrentStatus
	Files  []string
}
