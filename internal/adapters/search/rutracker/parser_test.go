package rutracker

import "testing"

func searchResultRow(category, title string, topicID, downloadID uint64, seeds int) string {
	return `<tr>
		<td></td><td></td>
		<td><a href="tracker.php?f=1">` + category + `</a></td>
		<td><a href="viewtopic.php?t=` + itoa(topicID) + `" data-topic_id="` + itoa(topicID) + `">` + title + `</a></td>
		<td></td>
		<td><a href="dl.php?t=` + itoa(downloadID) + `">Download</a></td>
		<td><b class="seedmed">` + itoa(uint64(seeds)) + `</b></td>
		<td></td><td></td><td></td>
	</tr>`
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := []byte{}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func wrapTable(rows ...string) string {
	html := `<html><body><table class="forumline"><tr><th>header</th></tr>`
	for _, r := range rows {
		html += r
	}
	html += `</table></body></html>`
	return html
}

func TestParseSearchResults_ExtractsLosslessRows(t *testing.T) {
	html := wrapTable(
		searchResultRow("Lossless (FLAC)", "Robert Miles - Children [FLAC]", 1, 100, 15),
		searchResultRow("MP3", "Robert Miles - Children [MP3]", 2, 200, 50),
	)

	results, err := parseSearchResults(html)
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (MP3 category lacks \"loss\")", len(results))
	}
	if results[0].TopicID != 1 || results[0].DownloadID != 100 {
		t.Errorf("got %+v, want topic 1 / download 100", results[0])
	}
}

func TestParseSearchResults_ExcludesImageCue(t *testing.T) {
	html := wrapTable(
		searchResultRow("Lossless (FLAC)", "Album [image+.cue]", 1, 100, 15),
	)

	results, err := parseSearchResults(html)
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestParseSearchResults_RanksHigherSeedsAndBetterFormatFirst(t *testing.T) {
	html := wrapTable(
		searchResultRow("Lossless", "Album lossless 128 kbps", 1, 100, 5),
		searchResultRow("Lossless", "Album FLAC lossless", 2, 200, 40),
	)

	results, err := parseSearchResults(html)
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].TopicID != 2 {
		t.Errorf("best-ranked result = topic %d, want topic 2 (FLAC, high seeds)", results[0].TopicID)
	}
}

func TestValidateAuthState_LoggedInOK(t *testing.T) {
	if err := validateAuthState(`<div class="log-out-icon"></div>`); err != nil {
		t.Errorf("validateAuthState: %v", err)
	}
}

func TestValidateAuthState_IncorrectPassword(t *testing.T) {
	err := validateAuthState(`неверный пароль`)
	if err == nil {
		t.Fatal("expected an error for a rejected password page")
	}
}

func TestValidateAuthState_CaptchaRequired(t *testing.T) {
	err := validateAuthState(`введите код подтверждения`)
	if err == nil {
		t.Fatal("expected an error for a captcha challenge page")
	}
}
