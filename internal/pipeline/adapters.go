package pipeline

import "context"

// SearchProvider is the abstract contract over the HTML-scraping index
// client (spec.md §6 "Search"). Its internals — selector logic, ranking —
// are out of this package's scope; only the shape handlers depend on lives
// here.
type SearchProvider interface {
	SearchMusic(ctx context.Context, query string) ([]TopicData, error)
	DownloadTorrent(ctx context.Context, downloadID DownloadId) ([]byte, error)
}

// TorrentClient is the abstract contract over the torrent engine RPC wrapper
// (spec.md §6 "Torrent engine").
type TorrentClient interface {
	AddTorrent(ctx context.Context, blob []byte, selectedFileIndices []int) (TorrentId, error)
	GetTorrent(ctx context.Context, id TorrentId) (Torrent, error)
	DeleteTorrent(ctx context.Context, id TorrentId) error
}

// BroadcastClient is the abstract contract over the broadcast backend HTTP
// client (spec.md §6 "Broadcast backend").
type BroadcastClient interface {
	UploadAudioTrack(ctx context.Context, user UserId, absolutePath string) (TrackId, error)
	AddTrackToChannelPlaylist(ctx context.Context, user UserId, track TrackId, channel ChannelId) (LinkId, error)
	GetChannelTracks(ctx context.Context, channel ChannelId) ([]AudioMetadata, error)
}

// TagReader is the abstract contract over the tag-reading adapter used by
// the validate_metadata path of CheckDownloadStatus.
type TagReader interface {
	// ReadAudioMetadata reads title/artist/album tags from the audio file at
	// path. It returns (nil, nil) when the file has no readable tags rather
	// than treating that as an error.
	ReadAudioMetadata(path string) (*AudioMetadata, error)
}
