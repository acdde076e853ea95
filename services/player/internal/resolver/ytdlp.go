package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// YTDLP resolves queries through the yt-dlp binary in JSON mode. Free-text
// queries go through provider search; direct URLs are resolved as-is.
type YTDLP struct {
	Bin     string        // binary path, default "yt-dlp"
	Timeout time.Duration // per-invocation bound, default 30s
	Log     *zap.Logger
}

func NewYTDLP(bin string, timeout time.Duration, log *zap.Logger) *YTDLP {
	if strings.TrimSpace(bin) == "" {
		bin = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YTDLP{Bin: bin, Timeout: timeout, Log: log}
}

// ytdlpEntry is the subset of yt-dlp's JSON output we read.
type ytdlpEntry struct {
	WebpageURL string   `json:"webpage_url"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Duration   float64  `json:"duration"`
	Tags       []string `json:"tags"`
}

func (y *YTDLP) Resolve(ctx context.Context, query string) (Result, error) {
	query = normalizeQuery(query)
	if query == "" {
		return Result{}, ErrNotFound
	}

	target := query
	if !strings.HasPrefix(query, "http") {
		target = "ytsearch1:" + query
	}

	ctx, cancel := context.WithTimeout(ctx, y.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.Bin,
		"--dump-single-json",
		"--no-playlist",
		"--format", "bestaudio",
		target,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if y.Log != nil {
			y.Log.Warn("ytdlp: resolve failed",
				zap.String("query", query),
				zap.String("stderr", strings.TrimSpace(stderr.String())),
				zap.Error(err))
		}
		return Result{}, fmt.Errorf("ytdlp resolve %q: %w", query, err)
	}

	var root struct {
		ytdlpEntry
		Entries []ytdlpEntry `json:"entries"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &root); err != nil {
		return Result{}, fmt.Errorf("ytdlp output for %q: %w", query, err)
	}

	entry := root.ytdlpEntry
	if len(root.Entries) > 0 {
		entry = root.Entries[0]
	}
	if entry.WebpageURL == "" || entry.URL == "" {
		return Result{}, ErrNotFound
	}

	tags := make([]string, 0, len(entry.Tags))
	for _, tag := range entry.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "Unknown Title"
	}

	return Result{
		CanonicalID:     entry.WebpageURL,
		StreamURL:       entry.URL,
		ExpiresAt:       LocatorExpiry(entry.URL),
		Title:           title,
		DurationSeconds: int(entry.Duration),
		Tags:            tags,
	}, nil
}

// normalizeQuery trims the query and strips share-tracking parameters from
// pasted URLs so the same item normalizes to the same canonical id.
func normalizeQuery(query string) string {
	query = strings.TrimSpace(query)
	if !strings.HasPrefix(query, "http") {
		return query
	}
	u, err := url.Parse(query)
	if err != nil {
		return query
	}
	q := u.Query()
	if q.Has("si") {
		q.Del("si")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
