// Package torrentfile implements the torrent-file introspection component
// (spec.md §4.3, "Component E"): parsing the bencoded descriptor sufficiently
// to recover the list of contained file paths, in descriptor order.
package torrentfile

import (
	"path/filepath"
	"strings"

	"github.com/anacrolix/torrent/bencode"
)

// file mirrors the "files" entry of a multi-file torrent's info dictionary.
// Only the fields this package reads are decoded; everything else in the
// descriptor is ignored, matching the original's #[serde(default)]-heavy
// Torrent struct (original_source/src/services/torrent_parser.rs).
type file struct {
	Path   []string `bencode:"path"`
	Length int64    `bencode:"length"`
}

type info struct {
	Name  string `bencode:"name"`
	Files []file `bencode:"files,omitempty"`
}

type torrentDescriptor struct {
	Info info `bencode:"info"`
}

// Files parses the bencoded descriptor and returns the contained file paths
// in descriptor order, each joined with the platform separator. Single-file
// torrents (no "files" list) yield an empty slice — this codebase never
// requests a single-file release.
func Files(descriptor []byte) ([]string, error) {
	var t torrentDescriptor
	if err := bencode.Unmarshal(descriptor, &t); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(t.Info.Files))
	for _, f := range t.Info.Files {
		paths = append(paths, filepath.Join(f.Path...))
	}
	return paths, nil
}

// Count returns len(Files(descriptor)) without building the joined strings,
// mirroring the original's get_files_count.
func Count(descriptor []byte) (int, error) {
	var t torrentDescriptor
	if err := bencode.Unmarshal(descriptor, &t); err != nil {
		return 0, err
	}
	return len(t.Info.Files), nil
}

// ContainsTitle reports whether any path in files contains title as a
// case-insensitive substring.
func ContainsTitle(files []string, title string) bool {
	lowerTitle := strings.ToLower(title)
	for _, f := range files {
		if strings.Contains(strings.ToLower(f), lowerTitle) {
			return true
		}
	}
	return false
}
