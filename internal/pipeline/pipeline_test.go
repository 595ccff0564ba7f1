package pipeline

import (
	"context"
	"errors"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestNextStep_Ordering(t *testing.T) {
	cases := []struct {
		name  string
		state State
		want  Step
	}{
		{"fresh state", State{}, StepSearchAudioAlbum},
		{"has download id only", State{CurrentDownloadID: ptr(DownloadId(1))}, StepDownloadTorrentFile},
		{
			"has blob, no torrent id",
			State{CurrentDownloadID: ptr(DownloadId(1)), CurrentTorrentBlob: []byte{}},
			StepDownloadAlbum,
		},
		{
			"has torrent id, no path",
			State{
				CurrentDownloadID:  ptr(DownloadId(1)),
				CurrentTorrentBlob: []byte{1},
				CurrentTorrentID:   ptr(TorrentId(2)),
			},
			StepCheckDownloadStatus,
		},
		{
			"has path, no track id",
			State{
				CurrentDownloadID:    ptr(DownloadId(1)),
				CurrentTorrentBlob:   []byte{1},
				CurrentTorrentID:     ptr(TorrentId(2)),
				PathToDownloadedFile: ptr("a.flac"),
			},
			StepUploadToRadioManager,
		},
		{
			"has track id, no link id",
			State{
				CurrentDownloadID:    ptr(DownloadId(1)),
				CurrentTorrentBlob:   []byte{1},
				CurrentTorrentID:     ptr(TorrentId(2)),
				PathToDownloadedFile: ptr("a.flac"),
				RadioManagerTrackID:  ptr(TrackId("t1")),
			},
			StepAddToRadioManagerChannel,
		},
		{
			"fully populated",
			State{
				CurrentDownloadID:    ptr(DownloadId(1)),
				CurrentTorrentBlob:   []byte{1},
				CurrentTorrentID:     ptr(TorrentId(2)),
				PathToDownloadedFile: ptr("a.flac"),
				RadioManagerTrackID:  ptr(TrackId("t1")),
				RadioManagerLinkID:   ptr(LinkId("l1")),
			},
			StepFinish,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NextStep(&c.state); got != c.want {
				t.Errorf("NextStep = %v, want %v", got, c.want)
			}
		})
	}
}

// fakeSearch is a minimal in-memory SearchProvider for handler tests.
type fakeSearch struct {
	results map[string][]TopicData
	blobs   map[DownloadId][]byte
	err     error
}

func (f *fakeSearch) SearchMusic(_ context.Context, query string) ([]TopicData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSearch) DownloadTorrent(_ context.Context, id DownloadId) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blobs[id], nil
}

func TestSearchAudioAlbum_PicksFirstUnseenResult(t *testing.T) {
	search := &fakeSearch{
		results: map[string][]TopicData{
			"Artist - Album": {{TopicID: 1, DownloadID: 100, Title: "Artist - Album"}},
		},
	}
	h := &Handlers{Search: search}
	state := &State{}
	rctx := &Context{Metadata: AudioMetadata{Artist: "Artist", Album: "Album", Title: "Track"}}

	if err := h.searchAudioAlbum(context.Background(), rctx, state); err != nil {
		t.Fatalf("searchAudioAlbum: %v", err)
	}
	if state.CurrentDownloadID == nil || *state.CurrentDownloadID != 100 {
		t.Fatalf("CurrentDownloadID = %v, want 100", state.CurrentDownloadID)
	}
	if len(state.TriedTopics) != 1 || state.TriedTopics[0] != 1 {
		t.Fatalf("TriedTopics = %v, want [1]", state.TriedTopics)
	}
}

func TestSearchAudioAlbum_SkipsAlreadyTried(t *testing.T) {
	search := &fakeSearch{
		results: map[string][]TopicData{
			"Artist - Album": {{TopicID: 1, DownloadID: 100}},
			"Artist дискография": {{TopicID: 2, DownloadID: 200}},
		},
	}
	h := &Handlers{Search: search}
	state := &State{TriedTopics: []TopicId{1}}
	rctx := &Context{Metadata: AudioMetadata{Artist: "Artist", Album: "Album"}}

	if err := h.searchAudioAlbum(context.Background(), rctx, state); err != nil {
		t.Fatalf("searchAudioAlbum: %v", err)
	}
	if state.CurrentDownloadID == nil || *state.CurrentDownloadID != 200 {
		t.Fatalf("CurrentDownloadID = %v, want 200 (topic 1 already tried)", state.CurrentDownloadID)
	}
}

func TestSearchAudioAlbum_ExhaustedReturnsTrackNotFound(t *testing.T) {
	h := &Handlers{Search: &fakeSearch{}}
	state := &State{}
	rctx := &Context{Metadata: AudioMetadata{Artist: "Nobody", Album: "Nothing"}}

	err := h.searchAudioAlbum(context.Background(), rctx, state)
	var notFound *TrackNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *TrackNotFound", err)
	}
}

// fakeTorrent is a minimal in-memory TorrentClient for handler tests.
type fakeTorrent struct {
	nextID  TorrentId
	torrent Torrent
	err     error
}

func (f *fakeTorrent) AddTorrent(_ context.Context, _ []byte, _ []int) (TorrentId, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.nextID, nil
}

func (f *fakeTorrent) GetTorrent(_ context.Context, _ TorrentId) (Torrent, error) {
	if f.err != nil {
		return Torrent{}, f.err
	}
	return f.torrent, nil
}

func (f *fakeTorrent) DeleteTorrent(_ context.Context, _ TorrentId) error { return f.err }

func TestCheckDownloadStatus_StillDownloadingPolls(t *testing.T) {
	polled := false
	h := &Handlers{
		Torrent:      &fakeTorrent{torrent: Torrent{Status: TorrentDownloading}},
		PollInterval: func(context.Context) { polled = true },
	}
	state := &State{
		CurrentDownloadID:  ptr(DownloadId(1)),
		CurrentTorrentBlob: []byte{1},
		CurrentTorrentID:   ptr(TorrentId(1)),
	}

	if err := h.checkDownloadStatus(context.Background(), &Context{}, state); err != nil {
		t.Fatalf("checkDownloadStatus: %v", err)
	}
	if !polled {
		t.Error("expected PollInterval to be invoked while still downloading")
	}
	if state.PathToDownloadedFile != nil {
		t.Error("PathToDownloadedFile should remain unset while downloading")
	}
}

func TestCheckDownloadStatus_CompleteMatchesFile(t *testing.T) {
	h := &Handlers{
		Torrent: &fakeTorrent{torrent: Torrent{
			Status: TorrentComplete,
			Files:  []string{"Folder.jpg", "03. Artist - My Track.flac"},
		}},
	}
	state := &State{
		CurrentDownloadID:  ptr(DownloadId(1)),
		CurrentTorrentBlob: []byte{1},
		CurrentTorrentID:   ptr(TorrentId(1)),
	}
	rctx := &Context{Metadata: AudioMetadata{Title: "My Track"}}

	if err := h.checkDownloadStatus(context.Background(), rctx, state); err != nil {
		t.Fatalf("checkDownloadStatus: %v", err)
	}
	if state.PathToDownloadedFile == nil || *state.PathToDownloadedFile != "03. Artist - My Track.flac" {
		t.Fatalf("PathToDownloadedFile = %v, want the matching flac", state.PathToDownloadedFile)
	}
}

func TestCheckDownloadStatus_CompleteNoMatchBacktracks(t *testing.T) {
	h := &Handlers{
		Torrent: &fakeTorrent{torrent: Torrent{
			Status: TorrentComplete,
			Files:  []string{"Folder.jpg"},
		}},
	}
	state := &State{
		CurrentDownloadID:  ptr(DownloadId(1)),
		CurrentTorrentBlob: []byte{1},
		CurrentTorrentID:   ptr(TorrentId(1)),
	}
	rctx := &Context{Metadata: AudioMetadata{Title: "My Track"}}

	if err := h.checkDownloadStatus(context.Background(), rctx, state); err != nil {
		t.Fatalf("checkDownloadStatus: %v", err)
	}
	if state.CurrentDownloadID != nil || state.CurrentTorrentID != nil || state.CurrentTorrentBlob != nil {
		t.Fatal("expected a full backtrack to StepSearchAudioAlbum on a non-matching completed torrent")
	}
}

// fakeBroadcast is a minimal in-memory BroadcastClient for handler tests.
type fakeBroadcast struct {
	trackID TrackId
	linkID  LinkId
	err     error
}

func (f *fakeBroadcast) UploadAudioTrack(_ context.Context, _ UserId, _ string) (TrackId, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.trackID, nil
}

func (f *fakeBroadcast) AddTrackToChannelPlaylist(_ context.Context, _ UserId, _ TrackId, _ ChannelId) (LinkId, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.linkID, nil
}

func (f *fakeBroadcast) GetChannelTracks(_ context.Context, _ ChannelId) ([]AudioMetadata, error) {
	return nil, f.err
}

func TestRun_AdvancesThroughFinalSteps(t *testing.T) {
	h := &Handlers{Broadcast: &fakeBroadcast{trackID: "track-1", linkID: "link-1"}}
	state := &State{
		CurrentDownloadID:    ptr(DownloadId(1)),
		CurrentTorrentBlob:   []byte{1},
		CurrentTorrentID:     ptr(TorrentId(1)),
		PathToDownloadedFile: ptr("a.flac"),
	}
	rctx := &Context{}

	step, err := h.Run(context.Background(), UserId(42), rctx, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if step != StepUploadToRadioManager {
		t.Fatalf("step = %v, want StepUploadToRadioManager", step)
	}
	if state.RadioManagerTrackID == nil || *state.RadioManagerTrackID != "track-1" {
		t.Fatalf("RadioManagerTrackID = %v, want track-1", state.RadioManagerTrackID)
	}

	step, err = h.Run(context.Background(), UserId(42), rctx, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if step != StepAddToRadioManagerChannel {
		t.Fatalf("step = %v, want StepAddToRadioManagerChannel", step)
	}
	if state.RadioManagerLinkID == nil || *state.RadioManagerLinkID != "link-1" {
		t.Fatalf("RadioManagerLinkID = %v, want link-1", state.RadioManagerLinkID)
	}

	if got := NextStep(state); got != StepFinish {
		t.Fatalf("NextStep after full run = %v, want StepFinish", got)
	}
}

// TestSearchAudioAlbum_ReplayAfterCrashProducesSameEffect is scenario S5: a
// crash between "handler returned success" and "state persisted" means the
// handler re-runs against the pre-handler state on resume. Since
// tried_topics was never persisted, the replay picks the same candidate —
// no duplicate entries appear once the successful run is finally persisted.
func TestSearchAudioAlbum_ReplayAfterCrashProducesSameEffect(t *testing.T) {
	search := &fakeSearch{
		results: map[string][]TopicData{
			"Artist - Album": {{TopicID: 1, DownloadID: 100}},
		},
	}
	h := &Handlers{Search: search}
	rctx := &Context{Metadata: AudioMetadata{Artist: "Artist", Album: "Album"}}

	preHandlerState := State{}

	// The "crashed" attempt: runs the handler but its result is discarded,
	// simulating a process death before the checkpoint write.
	crashed := preHandlerState
	if err := h.searchAudioAlbum(context.Background(), rctx, &crashed); err != nil {
		t.Fatalf("searchAudioAlbum (crashed attempt): %v", err)
	}

	// Resume: replay against the untouched pre-handler state.
	resumed := preHandlerState
	if err := h.searchAudioAlbum(context.Background(), rctx, &resumed); err != nil {
		t.Fatalf("searchAudioAlbum (resumed attempt): %v", err)
	}

	if *resumed.CurrentDownloadID != *crashed.CurrentDownloadID {
		t.Fatalf("resumed picked a different candidate: %v vs %v", resumed.CurrentDownloadID, crashed.CurrentDownloadID)
	}
	if len(resumed.TriedTopics) != 1 {
		t.Fatalf("TriedTopics = %v, want exactly one entry (no duplicate from the discarded crash attempt)", resumed.TriedTopics)
	}
}

func TestRun_FinishIsANoOp(t *testing.T) {
	h := &Handlers{}
	state := &State{
		CurrentDownloadID:    ptr(DownloadId(1)),
		CurrentTorrentBlob:   []byte{1},
		CurrentTorrentID:     ptr(TorrentId(1)),
		PathToDownloadedFile: ptr("a.flac"),
		RadioManagerTrackID:  ptr(TrackId("t")),
		RadioManagerLinkID:   ptr(LinkId("l")),
	}

	step, err := h.Run(context.Background(), UserId(1), &Context{}, state)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if step != StepFinish {
		t.Fatalf("step = %v, want StepFinish", step)
	}
}
