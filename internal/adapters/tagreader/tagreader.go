// Package tagreader implements pipeline.TagReader by reading ID3/Vorbis/FLAC
// tags off disk, adapted from the teacher's own track-metadata extraction in
// internal/playlist/track.go.
package tagreader

import (
	"log/slog"
	"os"

	"github.com/dhowden/tag"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

// Reader implements pipeline.TagReader.
type Reader struct{}

func New() *Reader { return &Reader{} }

// ReadAudioMetadata reads title/artist/album tags from the audio file at
// path. It returns (nil, nil), not an error, when the file has no readable
// tags — CheckDownloadStatus then treats the file as not matching
// (spec.md §4.2.3's validate_metadata step).
func (r *Reader) ReadAudioMetadata(path string) (*pipeline.AudioMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		slog.Debug("Could not read tags", "path", path, "error", err)
		return nil, nil
	}

	metadata := &pipeline.AudioMetadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
	}
	if metadata.Title == "" && metadata.Artist == "" && metadata.Album == "" {
		return nil, nil
	}
	return metadata, nil
}
