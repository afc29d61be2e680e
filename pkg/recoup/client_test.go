package recoup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialscraper/pkg/config"
	errs "socialscraper/pkg/errors"
	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
	"socialscraper/pkg/ratelimit"
	"socialscraper/pkg/retry"
	"socialscraper/pkg/schema"
)

// newTestClient points every endpoint at srv and retries without delay
func newTestClient(t *testing.T, srv *httptest.Server, log logger.Logger) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.JobsURL = srv.URL + "/api/jobs"
	cfg.API.ChatURL = srv.URL + "/api/chat/generate"
	cfg.API.APIKey = "secret"

	return NewClient(cfg, log,
		WithLimiter(ratelimit.Unlimited{}),
		WithRetry(&retry.Config{MaxAttempts: 3, Backoff: &retry.ConstantBackoff{}}),
	)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/jobs", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		writeJSON(w, http.StatusOK, `{"status":"success","jobs":[
			{"id":"j1","title":"Daily","prompt":"p","schedule":"0 9 * * *","account_id":"acc","artist_account_id":"art","enabled":null},
			{"id":"j2","title":"Off","prompt":"p","schedule":"0 9 * * *","account_id":"acc","artist_account_id":"art","enabled":false}
		]}`)
	}))
	defer srv.Close()

	jobs, ok := newTestClient(t, srv, nil).FetchAll(context.Background()).Get()
	require.True(t, ok)
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].IsEnabled())
	assert.False(t, jobs[1].IsEnabled())
	assert.Equal(t, "art", jobs[0].ArtistAccountID)
}

func TestFetchAllRejectsUnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"error","jobs":[]}`)
	}))
	defer srv.Close()

	log := logger.NewTestLogger()
	res := newTestClient(t, srv, log).FetchAll(context.Background())
	assert.Equal(t, schema.Invalid, res.State)
	assert.True(t, log.HasMessage("Invalid response from Recoup Jobs API"))
}

func TestFetchOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "on":
			writeJSON(w, http.StatusOK, `{"status":"success","jobs":[{"id":"on","title":"t","prompt":"hello","schedule":"* * * * *","account_id":"acc","artist_account_id":"art","enabled":true}]}`)
		case "off":
			writeJSON(w, http.StatusOK, `{"status":"success","jobs":[{"id":"off","title":"t","prompt":"hello","schedule":"* * * * *","account_id":"acc","artist_account_id":"art","enabled":false}]}`)
		default:
			writeJSON(w, http.StatusOK, `{"status":"success","jobs":[]}`)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv, nil)
	ctx := context.Background()

	job, ok := c.FetchOne(ctx, "on").Get()
	require.True(t, ok)
	assert.Equal(t, "hello", job.Prompt)

	assert.Equal(t, schema.Absent, c.FetchOne(ctx, "off").State)

	missing := c.FetchOne(ctx, "nope")
	assert.Equal(t, schema.Absent, missing.State)
	assert.True(t, errs.IsType(missing.Cause(), errs.ErrorTypeNotFound))

	empty := c.FetchOne(ctx, "")
	assert.True(t, errs.IsType(empty.Cause(), errs.ErrorTypeConfiguration))
}

func TestStartSendsSocialID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, SocialScrapeEndpoint, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"social_id": "s1"}, body)

		writeJSON(w, http.StatusOK, `{"runId":"r1","datasetId":"d1","error":null}`)
	}))
	defer srv.Close()

	resp, ok := newTestClient(t, srv, nil).Start(context.Background(), "s1").Get()
	require.True(t, ok)
	assert.Equal(t, "r1", resp.RunID)
	assert.Equal(t, "d1", resp.DatasetID)
	assert.Empty(t, resp.ErrorMessage())
}

func TestStartIsNeverRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"down"}`)
	}))
	defer srv.Close()

	res := newTestClient(t, srv, nil).Start(context.Background(), "s1")
	assert.Equal(t, schema.Absent, res.State)
	assert.True(t, errs.IsType(res.Cause(), errs.ErrorTypeServerError))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStartAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ArtistSocialsScrapeEndpoint, r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A1", body["artist_account_id"])

		writeJSON(w, http.StatusOK, `[{"runId":"r1","datasetId":"d1","error":null},{"runId":"r2","datasetId":"d2","error":"private"}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	resp, ok := c.StartAll(context.Background(), "A1").Get()
	require.True(t, ok)
	require.Len(t, resp, 2)
	assert.Equal(t, "private", resp[1].ErrorMessage())

	assert.Equal(t, schema.Absent, c.StartAll(context.Background(), "").State)
}

func TestPollStatusMakesSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "r1", r.URL.Query().Get("runId"))
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusBadGateway, "")
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"SUCCEEDED","datasetId":"d1","data":[{"likes":3}]}`)
	}))
	defer srv.Close()

	log := logger.NewTestLogger()
	c := newTestClient(t, srv, log)

	res := c.PollStatus(context.Background(), "r1")
	assert.Equal(t, schema.Absent, res.State)
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(res.Cause()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, log.GetMessagesByLevel("ERROR"))
	assert.True(t, log.HasMessage("Recoup Scraper Results request failed"))

	// The next tick asks again
	report, ok := c.PollStatus(context.Background(), "r1").Get()
	require.True(t, ok)
	assert.Equal(t, models.StatusSucceeded, report.Status)
	assert.Len(t, report.Data, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPollStatusMissingStatusIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"datasetId":"d1"}`)
	}))
	defer srv.Close()

	res := newTestClient(t, srv, nil).PollStatus(context.Background(), "r1")
	assert.Equal(t, schema.Invalid, res.State)
	require.NotEmpty(t, res.Issues)
	assert.Equal(t, "required", res.Issues[0].Rule)
}

func TestFetchSocials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ArtistSocialsEndpoint, r.URL.Path)
		assert.Equal(t, "A1", r.URL.Query().Get("artist_account_id"))
		writeJSON(w, http.StatusOK, `{"status":"success","socials":[
			{"social_id":"s1","username":"band","profile_url":"https://instagram.com/band"},
			{"social_id":"s2","username":"band","profile_url":"https://open.spotify.com/artist/1"}
		]}`)
	}))
	defer srv.Close()

	socials, ok := newTestClient(t, srv, nil).FetchSocials(context.Background(), "A1").Get()
	require.True(t, ok)
	require.Len(t, socials, 2)
	assert.Equal(t, "s2", socials[1].SocialID)
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res := newTestClient(t, srv, nil).FetchSocials(context.Background(), "A1")
	assert.Equal(t, schema.Absent, res.State)
	assert.True(t, errs.IsType(res.Cause(), errs.ErrorTypeNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestProArtists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProArtistsEndpoint, r.URL.Path)
		writeJSON(w, http.StatusOK, `{"status":"success","artists":["a1","a2","a3"]}`)
	}))
	defer srv.Close()

	artists, ok := newTestClient(t, srv, nil).ProArtists(context.Background()).Get()
	require.True(t, ok)
	assert.Equal(t, []string{"a1", "a2", "a3"}, artists)
}

func TestNotify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/generate", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acc", req.AccountID)
		assert.Equal(t, "room", req.RoomID)
		assert.Empty(t, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].ID, "msg-")
		assert.Equal(t, "summarize", req.Messages[0].Parts[0].Text)

		writeJSON(w, http.StatusOK, `{"text":[{"type":"text","text":"Hi"},{"type":"reasoning"},{"type":"text","text":"there"}],"finishReason":"stop"}`)
	}))
	defer srv.Close()

	reply, err := newTestClient(t, srv, nil).Notify(context.Background(), models.ChatConfig{
		Prompt:    "summarize",
		AccountID: "acc",
		RoomID:    "room",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi\n\nthere", reply.Combined())
	assert.Equal(t, "stop", reply.FinishReason)
}

func TestNotifyRequiresAccountAndRoom(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, nil).Notify(context.Background(), models.ChatConfig{Prompt: "p", AccountID: "acc"})
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestEndpointURLs(t *testing.T) {
	assert.Equal(t, "https://api.example.com/api/artist/socials?artist_account_id=a+b", GetArtistSocialsURL("https://api.example.com/", "a b"))
	assert.Equal(t, "https://api.example.com/api/apify/scraper?runId=r1", GetScraperResultsURL("https://api.example.com", "r1"))
	assert.Equal(t, "https://api.example.com/api/jobs?id=j1", GetJobURL("https://api.example.com/api/jobs", "j1"))
}

func TestReadsUseConfiguredRetryDelays(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusInternalServerError, "")
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = 10 * time.Millisecond
	cfg.Retry.MaxDelay = 20 * time.Millisecond
	c := NewClient(cfg, nil, WithLimiter(ratelimit.Unlimited{}))

	start := time.Now()
	res := c.FetchSocials(context.Background(), "A1")
	elapsed := time.Since(start)

	assert.Equal(t, schema.Absent, res.State)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Less(t, elapsed, time.Second)
}

func TestNewClientSelectsRateLimitStrategy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimit.RequestsPerMinute = 30

	cfg.RateLimit.Strategy = config.RateLimitSlidingWindow
	assert.IsType(t, &ratelimit.SlidingWindow{}, NewClient(cfg, nil).limiter)

	cfg.RateLimit.Strategy = config.RateLimitTokenBucket
	assert.IsType(t, &ratelimit.TokenBucket{}, NewClient(cfg, nil).limiter)

	log := logger.NewTestLogger()
	cfg.RateLimit.Strategy = "leaky_bucket"
	assert.IsType(t, &ratelimit.TokenBucket{}, NewClient(cfg, log).limiter)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestErrorPreviewKeepsRunesWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 'x' shifts every multi-byte rune off the 200 byte boundary
		writeJSON(w, http.StatusBadRequest, "x"+strings.Repeat("é", 150))
	}))
	defer srv.Close()

	res := newTestClient(t, srv, nil).FetchSocials(context.Background(), "A1")
	require.Equal(t, schema.Absent, res.State)

	var apiErr *errs.Error
	require.ErrorAs(t, res.Cause(), &apiErr)
	assert.True(t, utf8.ValidString(apiErr.Message))
	assert.True(t, strings.HasSuffix(apiErr.Message, "..."))
	assert.LessOrEqual(t, len(apiErr.Message), 203)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("a🎵", 3))
	assert.Equal(t, "a🎵", truncate("a🎵b", 5))
	assert.Equal(t, "", truncate("🎵", 2))
}
