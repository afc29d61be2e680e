package recoup

import (
	"net/url"
	"strings"
)

const (
	// SocialScrapeEndpoint starts one scrape for a social profile
	SocialScrapeEndpoint = "/api/social/scrape"

	// ArtistSocialsScrapeEndpoint starts scrapes for every social of an artist
	ArtistSocialsScrapeEndpoint = "/api/artist/socials/scrape"

	// ArtistSocialsEndpoint lists the current socials of an artist
	ArtistSocialsEndpoint = "/api/artist/socials"

	// ScraperResultsEndpoint reports the status and data of a run
	ScraperResultsEndpoint = "/api/apify/scraper"

	// ProArtistsEndpoint lists the artists on a pro plan
	ProArtistsEndpoint = "/api/artists/pro"
)

// endpoint joins base and path, appending params when present
func endpoint(base, path string, params url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// GetArtistSocialsURL constructs the URL listing an artist's socials
func GetArtistSocialsURL(base, artistID string) string {
	return endpoint(base, ArtistSocialsEndpoint, url.Values{"artist_account_id": {artistID}})
}

// GetScraperResultsURL constructs the URL polling one run
func GetScraperResultsURL(base, runID string) string {
	return endpoint(base, ScraperResultsEndpoint, url.Values{"runId": {runID}})
}

// GetJobURL constructs the URL fetching a single job
func GetJobURL(jobsURL, jobID string) string {
	return endpoint(jobsURL, "", url.Values{"id": {jobID}})
}
