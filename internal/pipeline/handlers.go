package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/myownradio/channel-bot/internal/pipeline/torrentfile"
)

// queryVariants builds, in order, every query string SearchAudioAlbum tries
// against the index (spec.md §4.2.1 — these are the exact strings).
func queryVariants(m AudioMetadata) []string {
	return []string{
		fmt.Sprintf("%s - %s", m.Artist, m.Album),
		fmt.Sprintf("%s дискография", m.Artist),
		fmt.Sprintf("%s discography", m.Artist),
		fmt.Sprintf("%s дискографія", m.Artist),
	}
}

// Handlers implements one method per pipeline Step. It holds the four
// out-of-scope adapters plus the process-wide download directory; it has no
// mutable state of its own beyond what's threaded through via State.
type Handlers struct {
	Search           SearchProvider
	Torrent          TorrentClient
	Broadcast        BroadcastClient
	Tags             TagReader
	DownloadDirectory string

	// PollInterval is how long CheckDownloadStatus waits between polls of a
	// still-downloading torrent (spec.md §4.2.4, "≈5s"). Defaults to a real
	// 5-second wait if nil (processor.New likewise installs a real 1-second
	// StepInterval).
	PollInterval func(ctx context.Context)
}

// defaultPollInterval waits 5 seconds or until ctx is cancelled, whichever
// comes first.
func defaultPollInterval(ctx context.Context) {
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
	}
}

// Run dispatches ctx/state to the handler for the step that NextStep(state)
// currently projects, mutating state in place. It returns the projected step
// (for logging) and any error. user identifies whose behalf the broadcast
// backend calls run on.
func (h *Handlers) Run(ctx context.Context, user UserId, rctx *Context, state *State) (Step, error) {
	step := NextStep(state)

	switch step {
	case StepSearchAudioAlbum:
		return step, h.searchAudioAlbum(ctx, rctx, state)
	case StepDownloadTorrentFile:
		return step, h.downloadTorrentFile(ctx, rctx, state)
	case StepDownloadAlbum:
		return step, h.downloadAlbum(ctx, rctx, state)
	case StepCheckDownloadStatus:
		return step, h.checkDownloadStatus(ctx, rctx, state)
	case StepUploadToRadioManager:
		return step, h.uploadToRadioManager(ctx, user, rctx, state)
	case StepAddToRadioManagerChannel:
		return step, h.addToRadioManagerChannel(ctx, user, rctx, state)
	case StepFinish:
		return step, nil
	default:
		return step, fmt.Errorf("unreachable pipeline step %v", step)
	}
}

// searchAudioAlbum implements spec.md §4.2.1.
func (h *Handlers) searchAudioAlbum(ctx context.Context, rctx *Context, state *State) error {
	tried := make(map[TopicId]struct{}, len(state.TriedTopics))
	for _, t := range state.TriedTopics {
		tried[t] = struct{}{}
	}

	for _, query := range queryVariants(rctx.Metadata) {
		slog.Debug("Querying search index", "query", query)

		results, err := h.Search.SearchMusic(ctx, query)
		if err != nil {
			return &SearchProviderError{Err: err}
		}

		for _, result := range results {
			if _, seen := tried[result.TopicID]; seen {
				continue
			}

			slog.Debug("Found candidate topic", "topic_id", result.TopicID, "download_id", result.DownloadID)

			state.TriedTopics = append(state.TriedTopics, result.TopicID)
			downloadID := result.DownloadID
			state.CurrentDownloadID = &downloadID
			return nil
		}
	}

	slog.Info("Exhausted all query variants without a new candidate")
	return &TrackNotFound{}
}

// downloadTorrentFile implements spec.md §4.2.2.
func (h *Handlers) downloadTorrentFile(ctx context.Context, rctx *Context, state *State) error {
	downloadID := *state.CurrentDownloadID

	blob, err := h.Search.DownloadTorrent(ctx, downloadID)
	if err != nil {
		return &SearchProviderError{Err: err}
	}

	files, err := torrentfile.Files(blob)
	if err != nil {
		// A malformed descriptor means the candidate is garbage — abandon
		// it and let the pipeline try the next one (spec.md §7).
		slog.Warn("Torrent descriptor did not parse, abandoning candidate", "error", err)
		state.CurrentDownloadID = nil
		return nil
	}

	if !torrentfile.ContainsTitle(files, rctx.Metadata.Title) {
		slog.Info("Torrent does not contain the requested track, abandoning candidate")
		state.CurrentDownloadID = nil
		return nil
	}

	state.CurrentTorrentBlob = blob
	return nil
}

// downloadAlbum implements spec.md §4.2.3.
func (h *Handlers) downloadAlbum(ctx context.Context, rctx *Context, state *State) error {
	blob := state.CurrentTorrentBlob

	files, err := torrentfile.Files(blob)
	if err != nil {
		return &TorrentParserError{Err: err}
	}

	selected := selectedFileIndices(files, rctx.Metadata.Title)

	torrentID, err := h.Torrent.AddTorrent(ctx, blob, selected)
	if err != nil {
		return &TorrentClientError{Err: err}
	}

	state.CurrentTorrentID = &torrentID
	return nil
}

// checkDownloadStatus implements spec.md §4.2.4, including both the
// filename-substring and tag-based-exact-match paths (Open Question 3).
func (h *Handlers) checkDownloadStatus(ctx context.Context, rctx *Context, state *State) error {
	torrentID := *state.CurrentTorrentID

	torrent, err := h.Torrent.GetTorrent(ctx, torrentID)
	if err != nil {
		return &TorrentClientError{Err: err}
	}

	if torrent.Status != TorrentComplete {
		if h.PollInterval != nil {
			h.PollInterval(ctx)
		} else {
			defaultPollInterval(ctx)
		}
		return nil
	}

	slog.Debug("Download complete, scanning files", "torrent_id", torrentID, "file_count", len(torrent.Files))

	for _, file := range torrent.Files {
		match, err := h.fileMatches(rctx, file)
		if err != nil {
			continue
		}
		if match {
			slog.Info("Found matching audio file", "file", file)
			f := file
			state.PathToDownloadedFile = &f
			return nil
		}
	}

	slog.Info("Completed torrent did not contain the requested track, backtracking")
	state.CurrentDownloadID = nil
	state.CurrentTorrentID = nil
	state.CurrentTorrentBlob = nil
	return nil
}

// fileMatches decides whether a single downloaded file is the requested
// track, per ctx.Options.ValidateMetadata.
func (h *Handlers) fileMatches(rctx *Context, file string) (bool, error) {
	if !rctx.Options.ValidateMetadata {
		return strings.Contains(strings.ToLower(file), strings.ToLower(rctx.Metadata.Title)), nil
	}

	absolutePath := fmt.Sprintf("%s/%s", h.DownloadDirectory, file)
	metadata, err := h.Tags.ReadAudioMetadata(absolutePath)
	if err != nil || metadata == nil {
		return false, err
	}

	return hasPrefixFold(metadata.Artist, rctx.Metadata.Artist) &&
		hasPrefixFold(metadata.Title, rctx.Metadata.Title), nil
}

// uploadToRadioManager implements spec.md §4.2.5.
//
// Open Question 2 (spec.md §9): a failed upload does not delete the
// already-added torrent from the engine. That mirrors the original and is
// preserved here as-is — a disk leak on repeated failed uploads is possible.
func (h *Handlers) uploadToRadioManager(ctx context.Context, user UserId, rctx *Context, state *State) error {
	path := *state.PathToDownloadedFile
	absolutePath := fmt.Sprintf("%s/%s", h.DownloadDirectory, path)

	slog.Info("Uploading audio track to broadcast backend", "path", absolutePath)

	trackID, err := h.Broadcast.UploadAudioTrack(ctx, user, absolutePath)
	if err != nil {
		return &RadioManagerClientError{Err: err}
	}

	state.RadioManagerTrackID = &trackID
	return nil
}

// addToRadioManagerChannel implements spec.md §4.2.6.
func (h *Handlers) addToRadioManagerChannel(ctx context.Context, user UserId, rctx *Context, state *State) error {
	trackID := *state.RadioManagerTrackID

	linkID, err := h.Broadcast.AddTrackToChannelPlaylist(ctx, user, trackID, rctx.TargetChannelID)
	if err != nil {
		return &RadioManagerClientError{Err: err}
	}

	state.RadioManagerLinkID = &linkID
	return nil
}

// selectedFileIndices returns the 0-based, descriptor-order indices whose
// path contains title (case-insensitive substring) — spec.md §4.2.3.
func selectedFileIndices(files []string, title string) []int {
	lowerTitle := strings.ToLower(title)
	var indices []int
	for i, f := range files {
		if strings.Contains(strings.ToLower(f), lowerTitle) {
			indices = append(indices, i)
		}
	}
	return indices
}

func hasPrefixFold(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}
