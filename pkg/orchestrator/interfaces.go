package orchestrator

import (
	"context"

	"socialscraper/pkg/models"
	"socialscraper/pkg/poller"
	"socialscraper/pkg/recoup"
	"socialscraper/pkg/schema"
)

// ResultStore serves artist socials and run status
type ResultStore interface {
	poller.StatusSource
	FetchSocials(ctx context.Context, artistID string) schema.Result[[]models.SocialProfile]
}

// ProArtistSource lists the artists of the pro batch, in a stable order
type ProArtistSource interface {
	ProArtists(ctx context.Context) schema.Result[[]string]
}

// Notifier hands a summary prompt to the chat dispatcher
type Notifier interface {
	Notify(ctx context.Context, chat models.ChatConfig) (recoup.ChatReply, error)
}

// ReportWriter persists a finished outcome and returns where it went
type ReportWriter interface {
	Write(outcome *models.ScrapeOutcome) (string, error)
}
