package pipeline

// NextStep is the single authoritative projection State -> Step described in
// spec.md §4.2. It is a pure function: ordered evaluation, first match wins.
// No auxiliary "current step" field exists anywhere in State — the step is
// always this projection, recomputed from scratch.
func NextStep(s *State) Step {
	switch {
	case s.CurrentDownloadID == nil:
		return StepSearchAudioAlbum
	case !s.currentTorrentBlobPresent():
		return StepDownloadTorrentFile
	case s.CurrentTorrentID == nil:
		return StepDownloadAlbum
	case s.PathToDownloadedFile == nil:
		return StepCheckDownloadStatus
	case s.RadioManagerTrackID == nil:
		return StepUploadToRadioManager
	case s.RadioManagerLinkID == nil:
		return StepAddToRadioManagerChannel
	default:
		return StepFinish
	}
}
