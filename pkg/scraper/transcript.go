package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// captionTracksRe pulls the caption track list out of the watch page's
// embedded player response JSON.
var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// Transcript fetches the caption track for a video and flattens it to
// plain text. Videos without captions return an error; callers skip
// them and continue.
func (s *Scraper) Transcript(ctx context.Context, videoID string) (string, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID
	page, err := s.fetch(ctx, watchURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch watch page: %w", err)
	}

	track, err := pickCaptionTrack(page)
	if err != nil {
		return "", err
	}

	xmlBody, err := s.fetch(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch caption track: %w", err)
	}

	return parseTimedText(xmlBody)
}

func (s *Scraper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// pickCaptionTrack prefers a manually-authored English track, falls
// back to auto-generated, then to whatever is first.
func pickCaptionTrack(page string) (*captionTrack, error) {
	m := captionTracksRe.FindStringSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("no caption tracks on watch page")
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(m[1]), &tracks); err != nil {
		return nil, fmt.Errorf("failed to parse caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("caption track list is empty")
	}

	var generated *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.HasPrefix(t.LanguageCode, "en") {
			continue
		}
		if t.Kind != "asr" {
			return t, nil
		}
		if generated == nil {
			generated = t
		}
	}
	if generated != nil {
		return generated, nil
	}
	return &tracks[0], nil
}

// parseTimedText flattens a timedtext XML document into one line of
// text per caption cue joined by spaces.
func parseTimedText(xmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(xmlBody))
	if err != nil {
		return "", fmt.Errorf("failed to parse timedtext: %w", err)
	}

	var parts []string
	doc.Find("text").Each(func(_ int, sel *goquery.Selection) {
		// Cue text arrives double-escaped (&amp;#39; and friends).
		cue := html.UnescapeString(html.UnescapeString(sel.Text()))
		cue = strings.TrimSpace(cue)
		if cue != "" {
			parts = append(parts, cue)
		}
	})

	if len(parts) == 0 {
		return "", fmt.Errorf("caption track contained no text")
	}
	return strings.Join(parts, " "), nil
}
