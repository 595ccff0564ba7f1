package pipeline

import "fmt"

// The error kinds below mirror the behavioural taxonomy in spec.md §7. Each
// wraps an opaque underlying cause from its collaborator; the processor
// classifies them with errors.As rather than switching on concrete types, the
// idiomatic replacement for the original's thiserror enum + #[from].

// StateStorageError is a persistence I/O or encoding failure.
type StateStorageError struct {
	Op  string
	Err error
}

func (e *StateStorageError) Error() string {
	return fmt.Sprintf("state storage: %s: %v", e.Op, e.Err)
}

func (e *StateStorageError) Unwrap() error { return e.Err }

// SearchProviderError wraps a failure from the search/index adapter.
type SearchProviderError struct {
	Err error
}

func (e *SearchProviderError) Error() string { return fmt.Sprintf("search provider: %v", e.Err) }
func (e *SearchProviderError) Unwrap() error { return e.Err }

// TorrentClientError wraps a failure from the torrent engine adapter.
type TorrentClientError struct {
	Err error
}

func (e *TorrentClientError) Error() string { return fmt.Sprintf("torrent client: %v", e.Err) }
func (e *TorrentClientError) Unwrap() error { return e.Err }

// RadioManagerClientError wraps a failure from the broadcast backend adapter.
type RadioManagerClientError struct {
	Err error
}

func (e *RadioManagerClientError) Error() string {
	return fmt.Sprintf("radio manager client: %v", e.Err)
}
func (e *RadioManagerClientError) Unwrap() error { return e.Err }

// TorrentParserError means the torrent descriptor bytes could not be parsed
// as bencode. DownloadTorrentFile does not return it: a descriptor that does
// not parse there abandons the current candidate. DownloadAlbum returns it
// when the stored blob does not parse, and the processor records Failed.
type TorrentParserError struct {
	Err error
}

func (e *TorrentParserError) Error() string { return fmt.Sprintf("torrent parser: %v", e.Err) }
func (e *TorrentParserError) Unwrap() error { return e.Err }

// TrackNotFound means every query variant was exhausted without finding a
// new candidate. It is terminal: the processor sets Status=NotFound.
type TrackNotFound struct{}

func (e *TrackNotFound) Error() string { return "no search results contain the requested track" }
