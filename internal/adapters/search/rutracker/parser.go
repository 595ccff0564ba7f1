// Package rutracker implements the out-of-scope search/index adapter
// (spec.md §6 "Search") against an indexing forum's HTML, the same shape as
// rutracker.net: login by cookie session, search by HTML table scraping,
// download the torrent descriptor by id.
package rutracker

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/myownradio/channel-bot/internal/pipeline"
)

var audioFormatPriority = []string{"FLAC", "MP3", "ALAC", "AAC"}
var audioBitratePriority = []string{"lossless", "320 kbps", "256 kbps"}

// searchResultPriority lower-is-better ranks a result by format, bitrate hint
// in its title, and seeder count — the provider's own ranking, which the
// pipeline trusts as-is (spec.md §4.2.1: "by the index's returned order").
func searchResultPriority(title string, seeds int) int {
	formatPriority := 10
	for i, format := range audioFormatPriority {
		if strings.Contains(title, format) {
			formatPriority = i
			break
		}
	}

	bitratePriority := 10
	for i, bitrate := range audioBitratePriority {
		if strings.Contains(title, bitrate) {
			bitratePriority = i
			break
		}
	}

	var seedsPriority int
	switch {
	case seeds == 0:
		seedsPriority = 10
	case seeds < 10:
		seedsPriority = 3
	case seeds < 20:
		seedsPriority = 2
	case seeds < 30:
		seedsPriority = 1
	default:
		seedsPriority = 0
	}

	return formatPriority*5 + bitratePriority*10 + seedsPriority
}

// parseSearchResults scrapes the search results table, mirroring the
// original's column layout: columns[2] is the category, columns[3] the
// title/topic link, columns[5] the download link, columns[6] the seed count.
func parseSearchResults(rawHTML string) ([]pipeline.TopicData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	type ranked struct {
		data     pipeline.TopicData
		priority int
	}

	var results []ranked

	doc.Find("table.forumline tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}

		columns := row.Find("td")
		if columns.Length() != 10 {
			return
		}
		col := func(n int) *goquery.Selection { return columns.Eq(n) }

		category := strings.ToLower(col(2).Find("a[href]").First().Text())
		if !strings.Contains(category, "loss") {
			return
		}

		link := col(3).Find("a[href]").First()
		title := link.Text()
		if strings.Contains(title, "image+.cue") {
			return
		}

		topicIDAttr, ok := link.Attr("data-topic_id")
		if !ok {
			return
		}
		topicID, err := strconv.ParseUint(topicIDAttr, 10, 64)
		if err != nil {
			return
		}

		downloadHref, ok := col(5).Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		downloadIDStr := strings.Replace(downloadHref, "dl.php?t=", "", 1)
		downloadID, err := strconv.ParseUint(downloadIDStr, 10, 64)
		if err != nil {
			return
		}

		seedsStr := col(6).Find("b.seedmed").First().Text()
		seeds, err := strconv.Atoi(seedsStr)
		if err != nil {
			return
		}

		results = append(results, ranked{
			data: pipeline.TopicData{
				TopicID:    pipeline.TopicId(topicID),
				DownloadID: pipeline.DownloadId(downloadID),
				Title:      title,
			},
			priority: searchResultPriority(title, seeds),
		})
	})

	sort.SliceStable(results, func(i, j int) bool { return results[i].priority < results[j].priority })

	topics := make([]pipeline.TopicData, len(results))
	for i, r := range results {
		topics[i] = r.data
	}
	return topics, nil
}

const (
	captchaRequiredText  = "введите код подтверждения"
	incorrectPasswordText = "неверный пароль"
	successfulLoginText  = "log-out-icon"
)

// authError reports why a login or session-bound request was rejected.
type authError struct {
	reason string
}

func (e *authError) Error() string { return e.reason }

// validateAuthState inspects a response body for the index's own signals of
// a bad session: a CAPTCHA challenge, a rejected password, or (on any other
// page) the absence of the logged-in marker.
func validateAuthState(rawHTML string) error {
	if strings.Contains(rawHTML, captchaRequiredText) {
		return &authError{reason: "captcha verification is required"}
	}
	if strings.Contains(rawHTML, incorrectPasswordText) {
		return &authError{reason: "incorrect login or password"}
	}
	if !strings.Contains(rawHTML, successfulLoginText) {
		return &authError{reason: "unknown authentication error"}
	}
	return nil
}
