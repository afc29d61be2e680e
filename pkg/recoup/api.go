package recoup

import (
	"context"
	"fmt"
	"strings"
	"time"

	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/models"
	"socialscraper/pkg/schema"
)

type jobsResponse struct {
	Status string       `json:"status" validate:"eq=success"`
	Jobs   []models.Job `json:"jobs" validate:"dive"`
}

type socialsResponse struct {
	Status  string                 `json:"status" validate:"required"`
	Socials []models.SocialProfile `json:"socials" validate:"dive"`
}

type proArtistsResponse struct {
	Status  string   `json:"status" validate:"required"`
	Artists []string `json:"artists" validate:"dive,required"`
}

type scrapeRequest struct {
	SocialID string `json:"social_id"`
}

type artistScrapeRequest struct {
	ArtistAccountID string `json:"artist_account_id"`
}

// FetchAll returns every job known to the jobs API, enabled or not
func (c *Client) FetchAll(ctx context.Context) schema.Result[[]models.Job] {
	body, err := c.read(ctx, c.jobsURL)
	res := decode[jobsResponse](c, "Jobs", body, err, nil)
	return schema.Map(res, func(r jobsResponse) []models.Job { return r.Jobs })
}

// FetchOne returns a single enabled job. A missing id, an unknown or
// disabled job, and any failed exchange are all reported as not Ok.
func (c *Client) FetchOne(ctx context.Context, jobID string) schema.Result[models.Job] {
	if jobID == "" {
		c.logger.Warn("fetch job called without a job id")
		return schema.AbsentOf[models.Job](errs.Configuration("fetch job", "job id is required"))
	}

	body, err := c.read(ctx, GetJobURL(c.jobsURL, jobID))
	res := decode[jobsResponse](c, "Jobs", body, err, map[string]interface{}{"job_id": jobID})
	resp, ok := res.Get()
	if !ok {
		return schema.Result[models.Job]{State: res.State, Issues: res.Issues, Err: res.Err}
	}

	if len(resp.Jobs) == 0 {
		c.logger.WarnWithFields("No job found", map[string]interface{}{"job_id": jobID})
		return schema.AbsentOf[models.Job](errs.New(errs.ErrorTypeNotFound, "fetch job", "no job with id "+jobID))
	}

	job := resp.Jobs[0]
	if !job.IsEnabled() {
		c.logger.InfoWithFields("Job is disabled, skipping", map[string]interface{}{"job_id": jobID})
		return schema.AbsentOf[models.Job](fmt.Errorf("job %s is disabled", jobID))
	}
	return schema.OkOf(job)
}

// Start launches one scrape for a social profile. It is never retried.
func (c *Client) Start(ctx context.Context, socialID string) schema.Result[models.StartResponse] {
	body, err := c.send(ctx, endpoint(c.baseURL, SocialScrapeEndpoint, nil), scrapeRequest{SocialID: socialID})
	return decode[models.StartResponse](c, "Social Scrape", body, err, map[string]interface{}{"social_id": socialID})
}

// StartAll launches scrapes for every social of an artist. It is never retried.
func (c *Client) StartAll(ctx context.Context, artistID string) schema.Result[[]models.StartResponse] {
	if artistID == "" {
		return schema.AbsentOf[[]models.StartResponse](errs.Configuration("scrape artist socials", "artist_account_id is required"))
	}
	body, err := c.send(ctx, endpoint(c.baseURL, ArtistSocialsScrapeEndpoint, nil), artistScrapeRequest{ArtistAccountID: artistID})
	return decode[[]models.StartResponse](c, "Artist Social Scrape", body, err, map[string]interface{}{"artist_id": artistID})
}

// FetchSocials returns the current social profiles of an artist
func (c *Client) FetchSocials(ctx context.Context, artistID string) schema.Result[[]models.SocialProfile] {
	body, err := c.read(ctx, GetArtistSocialsURL(c.baseURL, artistID))
	res := decode[socialsResponse](c, "Artist Socials", body, err, map[string]interface{}{"artist_id": artistID})
	return schema.Map(res, func(r socialsResponse) []models.SocialProfile { return r.Socials })
}

// PollStatus returns the current status of a run. It makes a single attempt;
// the poller's next tick is the retry.
func (c *Client) PollStatus(ctx context.Context, runID string) schema.Result[models.StatusReport] {
	body, err := c.readOnce(ctx, GetScraperResultsURL(c.baseURL, runID))
	return decodeAt[models.StatusReport](c, severityWarn, "Scraper Results", body, err, map[string]interface{}{"run_id": runID})
}

// ProArtists returns the account ids of all pro artists in API order
func (c *Client) ProArtists(ctx context.Context) schema.Result[[]string] {
	body, err := c.read(ctx, endpoint(c.baseURL, ProArtistsEndpoint, nil))
	res := decode[proArtistsResponse](c, "Pro Artists", body, err, nil)
	return schema.Map(res, func(r proArtistsResponse) []string { return r.Artists })
}

type chatPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatMessage struct {
	ID    string     `json:"id"`
	Role  string     `json:"role"`
	Parts []chatPart `json:"parts"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	RoomID    string        `json:"roomId"`
	AccountID string        `json:"accountId"`
	ArtistID  string        `json:"artistId,omitempty"`
	Model     string        `json:"model,omitempty"`
}

// ChatReply is the chat API's answer to a prompt
type ChatReply struct {
	Text          []chatPart             `json:"text"`
	ReasoningText string                 `json:"reasoningText,omitempty"`
	FinishReason  string                 `json:"finishReason,omitempty"`
	Usage         map[string]interface{} `json:"usage,omitempty"`
}

// Combined joins the text parts of the reply
func (r ChatReply) Combined() string {
	var parts []string
	for _, p := range r.Text {
		if p.Type == "text" && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Notify sends a prompt to the chat API on behalf of an account
func (c *Client) Notify(ctx context.Context, chat models.ChatConfig) (ChatReply, error) {
	if chat.AccountID == "" || chat.RoomID == "" {
		return ChatReply{}, errs.Configuration("notify", "account id and room id are required")
	}
	if chat.Prompt == "" {
		return ChatReply{}, errs.Configuration("notify", "prompt is required")
	}

	req := chatRequest{
		Messages: []chatMessage{{
			ID:    fmt.Sprintf("msg-%d", time.Now().UnixMilli()),
			Role:  "user",
			Parts: []chatPart{{Type: "text", Text: chat.Prompt}},
		}},
		RoomID:    chat.RoomID,
		AccountID: chat.AccountID,
		ArtistID:  chat.ArtistID,
		Model:     chat.Model,
	}

	body, err := c.send(ctx, c.chatURL, req)
	reply, ok := decode[ChatReply](c, "Chat", body, err, map[string]interface{}{"account_id": chat.AccountID}).Get()
	if !ok {
		if err != nil {
			return ChatReply{}, err
		}
		return ChatReply{}, errs.New(errs.ErrorTypeValidation, "notify", "malformed chat response")
	}

	preview := truncate(reply.Combined(), 500)
	c.logger.InfoWithFields("Recoup Chat API response", map[string]interface{}{
		"finish_reason": reply.FinishReason,
		"text_preview":  preview,
	})
	return reply, nil
}
