// Package social decides which artist social profiles can be scraped.
package social

import (
	"net/url"
	"strings"

	"socialscraper/pkg/models"
)

// Platform names returned by DetectPlatform
const (
	Instagram = "instagram"
	TikTok    = "tiktok"
	Twitter   = "twitter"
	YouTube   = "youtube"
	Facebook  = "facebook"
	Threads   = "threads"
	Spotify   = "spotify"
	Unknown   = "unknown"
)

// unscrapable lists platforms the scrape launcher rejects
var unscrapable = map[string]bool{
	Spotify: true,
}

var hostPlatforms = []struct {
	suffix   string
	platform string
}{
	{"instagram.com", Instagram},
	{"tiktok.com", TikTok},
	{"twitter.com", Twitter},
	{"x.com", Twitter},
	{"youtube.com", YouTube},
	{"youtu.be", YouTube},
	{"facebook.com", Facebook},
	{"threads.net", Threads},
	{"spotify.com", Spotify},
}

// DetectPlatform derives the platform from a profile URL. URLs without a
// scheme are accepted.
func DetectPlatform(profileURL string) string {
	raw := strings.TrimSpace(strings.ToLower(profileURL))
	if raw == "" {
		return Unknown
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Unknown
	}

	host := u.Hostname()
	for _, hp := range hostPlatforms {
		if host == hp.suffix || strings.HasSuffix(host, "."+hp.suffix) {
			return hp.platform
		}
	}
	return Unknown
}

// PlatformOf returns the declared platform, falling back to the profile URL
func PlatformOf(p models.SocialProfile) string {
	if name := strings.TrimSpace(strings.ToLower(p.Platform)); name != "" {
		return name
	}
	return DetectPlatform(p.ProfileURL)
}

// IsScrapable reports whether the profile's platform supports scraping.
// Every platform except the ones in the deny list is scrapable, including
// unknown ones.
func IsScrapable(p models.SocialProfile) bool {
	if unscrapable[PlatformOf(p)] {
		return false
	}
	// A declared platform may disagree with the URL; the URL wins for denials
	return !unscrapable[DetectPlatform(p.ProfileURL)]
}

// Selection is the result of Filter
type Selection struct {
	Eligible []models.WorkItem
	Skipped  []models.WorkItem
	// NoSocials lists artists without any profiles in the map
	NoSocials []string
}

// Filter walks artists in order, then each artist's profiles in order, and
// splits them into scrapable and skipped work items
func Filter(artistIDs []string, socialsByArtist map[string][]models.SocialProfile) Selection {
	var sel Selection
	for _, artistID := range artistIDs {
		socials := socialsByArtist[artistID]
		if len(socials) == 0 {
			sel.NoSocials = append(sel.NoSocials, artistID)
			continue
		}
		for _, p := range socials {
			item := models.WorkItem{
				ArtistID:   artistID,
				SocialID:   p.SocialID,
				ProfileURL: p.ProfileURL,
				Username:   p.Username,
			}
			if IsScrapable(p) {
				sel.Eligible = append(sel.Eligible, item)
			} else {
				sel.Skipped = append(sel.Skipped, item)
			}
		}
	}
	return sel
}
