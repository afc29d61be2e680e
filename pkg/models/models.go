package models

import (
	"encoding/json"
	"time"
)

// WorkItem is one scrape target: a single social profile of an artist
type WorkItem struct {
	ArtistID   string `json:"artist_id"`
	SocialID   string `json:"social_id"`
	ProfileURL string `json:"profile_url,omitempty"`
	Username   string `json:"username,omitempty"`
}

// ID returns the identifier passed to the scrape launcher
func (w WorkItem) ID() string {
	return w.SocialID
}

// SocialProfile is a read-only snapshot of one artist social
type SocialProfile struct {
	SocialID   string `json:"social_id" validate:"required"`
	Platform   string `json:"platform,omitempty"`
	Username   string `json:"username"`
	ProfileURL string `json:"profile_url"`
}

// RunHandle identifies one in-flight remote scrape
type RunHandle struct {
	RunID     string `json:"runId"`
	DatasetID string `json:"datasetId"`
}

// LaunchedRun ties a started run to the target that produced it
type LaunchedRun struct {
	RunHandle
	Target WorkItem `json:"target"`
}

// StartFailure records a target whose run could not be started
type StartFailure struct {
	Target WorkItem `json:"target"`
	Error  string   `json:"error"`
}

// StartResponse is the raw answer of the scrape launcher for one target
type StartResponse struct {
	RunID     string  `json:"runId"`
	DatasetID string  `json:"datasetId"`
	Error     *string `json:"error"`
}

// ErrorMessage returns the launch error, or "" when none was reported
func (r StartResponse) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return *r.Error
}

// RunStatus is the remote state of a run
type RunStatus string

const (
	StatusPending   RunStatus = "PENDING"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
)

// IsTerminal reports whether no further transitions can occur
func (s RunStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// StatusReport is one poll response from the result store
type StatusReport struct {
	Status    RunStatus         `json:"status" validate:"required"`
	DatasetID string            `json:"datasetId"`
	Data      []json.RawMessage `json:"data,omitempty"`
}

// RunResult is the terminal result of a polled run
type RunResult struct {
	RunID     string            `json:"runId"`
	DatasetID string            `json:"datasetId"`
	Status    RunStatus         `json:"status"`
	Data      []json.RawMessage `json:"data,omitempty"`
}

// ScrapeOutcome is the final artifact of one orchestrator invocation
type ScrapeOutcome struct {
	InvocationID   string                     `json:"invocation_id"`
	Target         string                     `json:"target"`
	Artists        []string                   `json:"artists"`
	Skipped        []WorkItem                 `json:"skipped,omitempty"`
	StartedRuns    []LaunchedRun              `json:"started_runs"`
	StartFailures  []StartFailure             `json:"start_failures"`
	Results        []RunResult                `json:"results"`
	UpdatedSocials map[string][]SocialProfile `json:"updated_socials,omitempty"`
	StartedAt      time.Time                  `json:"started_at"`
	CompletedAt    time.Time                  `json:"completed_at"`
}

// Succeeded counts results with status SUCCEEDED
func (o *ScrapeOutcome) Succeeded() int {
	return o.count(StatusSucceeded)
}

// Failed counts results with status FAILED
func (o *ScrapeOutcome) Failed() int {
	return o.count(StatusFailed)
}

func (o *ScrapeOutcome) count(status RunStatus) int {
	n := 0
	for _, r := range o.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Job is a scheduled customer job from the job source
type Job struct {
	ID              string `json:"id" validate:"required"`
	Title           string `json:"title"`
	Prompt          string `json:"prompt"`
	Schedule        string `json:"schedule"`
	AccountID       string `json:"account_id"`
	ArtistAccountID string `json:"artist_account_id"`
	Enabled         *bool  `json:"enabled"`
}

// IsEnabled treats a missing flag as enabled; only an explicit false disables
func (j Job) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// ChatConfig is the parameter set handed to the chat summary dispatcher
type ChatConfig struct {
	Prompt    string `json:"prompt,omitempty" yaml:"prompt"`
	AccountID string `json:"accountId,omitempty" yaml:"account_id"`
	RoomID    string `json:"roomId,omitempty" yaml:"room_id"`
	ArtistID  string `json:"artistId,omitempty" yaml:"artist_id"`
	Model     string `json:"model,omitempty" yaml:"model"`
}

// Ready reports whether the chat dispatcher has enough to address a message
func (c ChatConfig) Ready() bool {
	return c.AccountID != "" && c.RoomID != ""
}
