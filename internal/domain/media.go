package domain

import (
	"fmt"
	"time"
)

// Image CDN settings for catalog artwork.
const (
	ImageBaseURL = "https://image.tmdb.org/t/p"
	PosterSize   = "w500"
	BackdropSize = "w1280"
	ProfileSize  = "w185"
)

// ImageURL builds the CDN URL for an image path. An empty path yields "".
func ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = PosterSize
	}
	return fmt.Sprintf("%s/%s%s", ImageBaseURL, size, path)
}

// FormatDuration renders a runtime in minutes as "2h 30m" or "45m".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "N/A"
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// FormatReleaseDate renders a YYYY-MM-DD date as "January 1, 2024".
func FormatReleaseDate(date string) string {
	if date == "" {
		return "N/A"
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "N/A"
	}
	return parsed.Format("January 2, 2006")
}
