package supervisor

import (
	"context"
	"testing"

	"github.com/anacrolix/torrent/bencode"

	"github.com/myownradio/channel-bot/internal/pipeline"
	"github.com/myownradio/channel-bot/internal/processor"
	"github.com/myownradio/channel-bot/internal/store"
)

func noWait(context.Context) {}

type fakeSearch struct {
	topicID    pipeline.TopicId
	downloadID pipeline.DownloadId
	title      string
}

func (f *fakeSearch) SearchMusic(_ context.Context, _ string) ([]pipeline.TopicData, error) {
	return []pipeline.TopicData{{TopicID: f.topicID, DownloadID: f.downloadID, Title: f.title}}, nil
}

func (f *fakeSearch) DownloadTorrent(_ context.Context, _ pipeline.DownloadId) ([]byte, error) {
	// downloadTorrentFile parses this as bencode and looks for the title in
	// its file list, so return a minimal valid descriptor whose one file is
	// named after the title.
	return encodeMinimalTorrent(f.title + ".flac")
}

type fakeTorrent struct{}

func (f *fakeTorrent) AddTorrent(_ context.Context, _ []byte, _ []int) (pipeline.TorrentId, error) {
	return 1, nil
}

func (f *fakeTorrent) GetTorrent(_ context.Context, _ pipeline.TorrentId) (pipeline.Torrent, error) {
	return pipeline.Torrent{Status: pipeline.TorrentComplete, Files: []string{"track.flac"}}, nil
}

func (f *fakeTorrent) DeleteTorrent(_ context.Context, _ pipeline.TorrentId) error { return nil }

type fakeBroadcast struct{}

func (f *fakeBroadcast) UploadAudioTrack(_ context.Context, _ pipeline.UserId, _ string) (pipeline.TrackId, error) {
	return "t", nil
}

func (f *fakeBroadcast) AddTrackToChannelPlaylist(_ context.Context, _ pipeline.UserId, _ pipeline.TrackId, _ pipeline.ChannelId) (pipeline.LinkId, error) {
	return "l", nil
}

func (f *fakeBroadcast) GetChannelTracks(_ context.Context, _ pipeline.ChannelId) ([]pipeline.AudioMetadata, error) {
	return nil, nil
}

func newTestSupervisor() (*Supervisor, *processor.Processor) {
	p := processor.New(store.NewMemoryStore(), &pipeline.Handlers{
		Search:       &fakeSearch{topicID: 1, downloadID: 1, title: "track"},
		Torrent:      &fakeTorrent{},
		Broadcast:    &fakeBroadcast{},
		PollInterval: noWait,
	})
	p.StepInterval = noWait
	return New(context.Background(), p), p
}

// TestRecover_SpawnsOneTaskPerPersistedRequest is scenario S6.
func TestRecover_SpawnsOneTaskPerPersistedRequest(t *testing.T) {
	sup, p := newTestSupervisor()
	ctx := context.Background()

	metadata := pipeline.AudioMetadata{Title: "track", Artist: "artist", Album: "album"}
	requestA, err := p.CreateRequest(ctx, 1, metadata, pipeline.CreateRequestOptions{}, 1)
	if err != nil {
		t.Fatalf("CreateRequest for user 1: %v", err)
	}
	requestB, err := p.CreateRequest(ctx, 2, metadata, pipeline.CreateRequestOptions{}, 1)
	if err != nil {
		t.Fatalf("CreateRequest for user 2: %v", err)
	}

	if err := sup.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	sup.Wait()

	for _, rq := range []struct {
		user      pipeline.UserId
		requestID pipeline.RequestId
	}{{1, requestA}, {2, requestB}} {
		requests, err := p.GetProcessingRequests(ctx, rq.user)
		if err != nil {
			t.Fatalf("GetProcessingRequests(%d): %v", rq.user, err)
		}
		if requests[rq.requestID] != pipeline.StatusFinished {
			t.Errorf("user %d request %s status = %v, want Finished", rq.user, rq.requestID, requests[rq.requestID])
		}
	}
}

func TestSpawn_RefusesASecondTaskForTheSameRequest(t *testing.T) {
	sup, p := newTestSupervisor()
	ctx := context.Background()

	metadata := pipeline.AudioMetadata{Title: "track", Artist: "artist", Album: "album"}
	requestID, err := p.CreateRequest(ctx, 1, metadata, pipeline.CreateRequestOptions{}, 1)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	spawnedFirst := sup.spawn(1, requestID)
	spawnedSecond := sup.spawn(1, requestID)

	if !spawnedFirst {
		t.Error("expected the first spawn to succeed")
	}
	if spawnedSecond {
		t.Error("expected the second spawn for the same (user, request) to be refused")
	}

	sup.Wait()
}

func TestCreateRequest_SpawnsAndCompletes(t *testing.T) {
	sup, p := newTestSupervisor()
	ctx := context.Background()

	metadata := pipeline.AudioMetadata{Title: "track", Artist: "artist", Album: "album"}
	requestID, err := sup.CreateRequest(ctx, 1, metadata, pipeline.CreateRequestOptions{}, 1)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	sup.Wait()

	requests, err := p.GetProcessingRequests(ctx, 1)
	if err != nil {
		t.Fatalf("GetProcessingRequests: %v", err)
	}
	if requests[requestID] != pipeline.StatusFinished {
		t.Fatalf("status = %v, want Finished", requests[requestID])
	}
}

// TestCreateRequest_SurvivesCallerContextCancellation guards against tasks
// being spawned under the caller's context (e.g. an HTTP request context,
// cancelled the moment the handler returns its 202) instead of the
// Supervisor's own server-lifetime context.
func TestCreateRequest_SurvivesCallerContextCancellation(t *testing.T) {
	sup, p := newTestSupervisor()

	callerCtx, cancel := context.WithCancel(context.Background())

	metadata := pipeline.AudioMetadata{Title: "track", Artist: "artist", Album: "album"}
	requestID, err := sup.CreateRequest(callerCtx, 1, metadata, pipeline.CreateRequestOptions{}, 1)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	// Simulate the HTTP handler returning immediately after the 202.
	cancel()

	sup.Wait()

	requests, err := p.GetProcessingRequests(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetProcessingRequests: %v", err)
	}
	if requests[requestID] != pipeline.StatusFinished {
		t.Fatalf("status = %v, want Finished (task must not be cancelled along with its caller's context)", requests[requestID])
	}
}

// encodeMinimalTorrent builds a single-file-entry bencode descriptor, the
// same shape internal/pipeline/torrentfile.Files expects.
func encodeMinimalTorrent(filename string) ([]byte, error) {
	type file struct {
		Path   []string `bencode:"path"`
		Length int64    `bencode:"length"`
	}
	type info struct {
		Name  string `bencode:"name"`
		Files []file `bencode:"files"`
	}
	type descriptor struct {
		Info info `bencode:"info"`
	}

	return bencode.Marshal(descriptor{
		Info: info{Name: filename, Files: []file{{Path: []string{filename}, Length: 1}}},
	})
}
