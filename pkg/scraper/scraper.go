// Package scraper pulls video transcripts off a YouTube channel page
// with a headless browser. It is a thin collaborator: the retrieval
// pipeline downstream does not care where documents came from.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/liliang-cn/tubechat/pkg/log"
	"github.com/liliang-cn/tubechat/pkg/utils"
)

// Video is one entry discovered on a channel's videos page.
type Video struct {
	ID    string `json:"video_id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SavedTranscript describes one transcript written to disk.
type SavedTranscript struct {
	VideoID          string `json:"video_id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	Path             string `json:"filepath"`
	TranscriptLength int    `json:"transcript_length"`
	EstimatedTokens  int64  `json:"estimated_tokens"`
}

// ScrapeResult summarizes one channel scrape. Zero saved transcripts
// is reported here, not raised; the caller decides whether to proceed.
type ScrapeResult struct {
	ChannelURL       string            `json:"channel_url"`
	VideosFound      int               `json:"videos_found"`
	TranscriptsSaved int               `json:"transcripts_saved"`
	TotalTokens      int64             `json:"total_estimated_tokens"`
	Files            []SavedTranscript `json:"files"`
}

// Scraper fetches channel listings and transcripts and writes them
// under dataDir.
type Scraper struct {
	dataDir   string
	timeout   time.Duration
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

func New(dataDir string, timeout time.Duration, userAgent string) *Scraper {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Scraper{
		dataDir:   dataDir,
		timeout:   timeout,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    log.WithModule("scraper"),
	}
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([\w-]+)`),
	regexp.MustCompile(`youtube\.com/embed/([\w-]+)`),
	regexp.MustCompile(`youtube\.com/v/([\w-]+)`),
}

func extractVideoID(url string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

type videoLink struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// ChannelVideos loads the channel's /videos page in headless Chrome,
// scrolls a few screens to populate the grid, and returns up to
// maxVideos entries newest first.
func (s *Scraper) ChannelVideos(ctx context.Context, channelURL string, maxVideos int) ([]Video, error) {
	if !strings.Contains(channelURL, "/videos") {
		channelURL = strings.TrimSuffix(channelURL, "/") + "/videos"
	}
	s.logger.Info("loading channel page", "url", channelURL)

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, opts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	var links []videoLink
	tasks := []chromedp.Action{
		chromedp.Navigate(channelURL),
		chromedp.WaitVisible("ytd-rich-item-renderer", chromedp.ByQuery),
	}
	for i := 0; i < 3; i++ {
		tasks = append(tasks,
			chromedp.Evaluate(`window.scrollTo(0, document.documentElement.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
		)
	}
	tasks = append(tasks, chromedp.Evaluate(`
		Array.from(document.querySelectorAll('ytd-rich-item-renderer a#video-title-link'))
			.map(el => ({title: el.getAttribute('title') || '', href: el.getAttribute('href') || ''}))
	`, &links))

	if err := chromedp.Run(chromeCtx, tasks...); err != nil {
		return nil, fmt.Errorf("failed to load channel page: %w", err)
	}

	var videos []Video
	for _, link := range links {
		if link.Title == "" || link.Href == "" {
			continue
		}
		url := "https://www.youtube.com" + link.Href
		id := extractVideoID(url)
		if id == "" {
			continue
		}
		videos = append(videos, Video{ID: id, Title: link.Title, URL: url})
		if len(videos) >= maxVideos {
			break
		}
	}

	s.logger.Info("found videos", "count", len(videos))
	return videos, nil
}

// ScrapeChannel fetches up to maxVideos transcripts from the channel.
// Videos without an available transcript are skipped with a warning.
func (s *Scraper) ScrapeChannel(ctx context.Context, channelURL string, maxVideos int) (*ScrapeResult, error) {
	videos, err := s.ChannelVideos(ctx, channelURL, maxVideos)
	if err != nil {
		return nil, err
	}

	result := &ScrapeResult{
		ChannelURL:  channelURL,
		VideosFound: len(videos),
	}

	for _, video := range videos {
		transcript, err := s.Transcript(ctx, video.ID)
		if err != nil {
			s.logger.Warn("no transcript", "video_id", video.ID, "title", video.Title, "error", err)
			continue
		}

		path, err := s.saveTranscript(video, transcript)
		if err != nil {
			s.logger.Warn("failed to save transcript", "video_id", video.ID, "error", err)
			continue
		}

		tokens := int64(len(transcript)) / 4
		result.Files = append(result.Files, SavedTranscript{
			VideoID:          video.ID,
			Title:            video.Title,
			URL:              video.URL,
			Path:             path,
			TranscriptLength: len(transcript),
			EstimatedTokens:  tokens,
		})
		result.TranscriptsSaved++
		result.TotalTokens += tokens
	}

	return result, nil
}

var unsafeChars = regexp.MustCompile(`[^\w\s-]`)
var separators = regexp.MustCompile(`[-\s]+`)

func sanitizeTitle(title string) string {
	safe := unsafeChars.ReplaceAllString(title, "")
	safe = separators.ReplaceAllString(safe, "_")
	runes := []rune(safe)
	if len(runes) > 50 {
		safe = string(runes[:50])
	}
	return safe
}

// saveTranscript writes the transcript with a small metadata header,
// named <videoID>_<sanitized title>.txt.
func (s *Scraper) saveTranscript(video Video, transcript string) (string, error) {
	filename := fmt.Sprintf("%s_%s.txt", video.ID, sanitizeTitle(video.Title))
	path := filepath.Join(s.dataDir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "Video ID: %s\n", video.ID)
	fmt.Fprintf(&b, "Title: %s\n", video.Title)
	fmt.Fprintf(&b, "URL: %s\n", video.URL)
	b.WriteString(strings.Repeat("=", 80) + "\n\n")
	b.WriteString(transcript)

	if err := utils.AtomicWriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// SavedTranscripts lists transcript files already on disk, for runs
// that skip scraping.
func (s *Scraper) SavedTranscripts() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, "*.txt"))
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// DataDir exposes where transcripts are written.
func (s *Scraper) DataDir() string { return s.dataDir }
