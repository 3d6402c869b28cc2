package model

import "time"

// Project maps a tracked repository to a billing project on the challenge
// platform and names the copilot responsible for it. Read-only from the
// processor's perspective; rows are managed by the companion UI.
type Project struct {
	ID           int64    `json:"id"`
	Provider     Provider `json:"provider"`
	RepositoryID string   `json:"repository_id"`
	RepoURL      string   `json:"repo_url"`

	TopcoderProjectID int64    `json:"topcoder_project_id"`
	CopilotHandle     string   `json:"copilot_handle"`
	Tags              []string `json:"tags,omitempty"`

	// Per-repository credential used to act on the git host. Falls back to
	// the process-wide token when empty.
	AccessToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
