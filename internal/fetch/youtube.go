package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"golang.org/x/time/rate"
)

// Download is the payload a Downloader hands back: the audio byte stream
// plus whatever descriptive metadata the source exposed.
type Download struct {
	Body       io.ReadCloser
	Format     string
	Size       int64
	Artist     string
	Title      string
	Year       int
	ArtworkURL string
}

// Downloader retrieves the audio stream for a canonical video id.
type Downloader interface {
	Download(ctx context.Context, videoID string) (*Download, error)
}

// YouTubeDownloader fetches audio streams through the YouTube web client.
// Requests are rate limited so a burst of unknown cards cannot hammer the
// upstream.
type YouTubeDownloader struct {
	client  youtube.Client
	limiter *rate.Limiter
}

// NewYouTubeDownloader builds a downloader capped at ratePerMinute requests.
func NewYouTubeDownloader(ratePerMinute int) *YouTubeDownloader {
	if ratePerMinute <= 0 {
		ratePerMinute = 6
	}
	return &YouTubeDownloader{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
	}
}

// Download resolves the video, picks the best audio-only format, and opens
// its stream. Failures are wrapped in ErrSourceUnavailable so callers can
// classify them without knowing the transport.
func (d *YouTubeDownloader) Download(ctx context.Context, videoID string) (*Download, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, videoID, err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return nil, fmt.Errorf("%w: %s has no audio formats", ErrSourceUnavailable, videoID)
	}

	body, size, err := d.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, videoID, err)
	}

	artist, title := SplitTitle(video.Title, video.Author)
	return &Download{
		Body:       body,
		Format:     extensionForMime(format.MimeType),
		Size:       size,
		Artist:     artist,
		Title:      title,
		Year:       video.PublishDate.Year(),
		ArtworkURL: bestThumbnail(video.Thumbnails),
	}, nil
}

// bestAudioFormat returns the audio-only format with the highest bitrate.
func bestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	return best
}

func extensionForMime(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = mimeType
	}
	switch mediaType {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	default:
		if _, sub, ok := strings.Cut(mediaType, "/"); ok {
			return sub
		}
		return "m4a"
	}
}

func bestThumbnail(thumbnails youtube.Thumbnails) string {
	var (
		url   string
		width uint
	)
	for _, thumb := range thumbnails {
		if thumb.Width >= width {
			url = thumb.URL
			width = thumb.Width
		}
	}
	return url
}
