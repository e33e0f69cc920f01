package services

import (
	"fmt"
	"strings"
	"time"

	"shortreels-web/models"
)

// ResolveMediaURL normalizes a backend-returned video URL to absolute form.
// Absolute URLs pass through; relative ones are joined to the backend origin.
func ResolveMediaURL(origin, raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("no video URL provided")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	base := strings.TrimRight(origin, "/")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return base + raw, nil
}

// CacheBust appends a timestamp query parameter so the video element never
// serves a stale cached asset.
func CacheBust(u string, now time.Time) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", u, sep, now.UnixMilli())
}

// PreviewURL resolves a watermarked preview URL and adds the cache-buster.
func PreviewURL(origin, raw string, now time.Time) (string, error) {
	u, err := ResolveMediaURL(origin, raw)
	if err != nil {
		return "", err
	}
	return CacheBust(u, now), nil
}

// DownloadFor derives the client-side save-as for the paid video. It is a
// pure derivation from session state; no network round-trip is involved.
func DownloadFor(s *models.Session) (*models.DownloadSpec, *ServiceError) {
	if s.PaidVideoURL == "" {
		return nil, &ServiceError{StatusCode: 409, Message: "No paid video available for download"}
	}
	return &models.DownloadSpec{
		URL:      s.PaidVideoURL,
		Filename: fmt.Sprintf("shortreels-%s.mp4", s.RequestID),
	}, nil
}
