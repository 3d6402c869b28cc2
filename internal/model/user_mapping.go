package model

import "time"

// UserMapping associates a git-host identity with a Topcoder handle.
// Read-only from the processor's perspective; users register through the
// companion UI.
type UserMapping struct {
	ID             int64    `json:"id"`
	Provider       Provider `json:"provider"`
	GitUserID      int64    `json:"git_user_id"`
	GitUsername    string   `json:"git_username"`
	TopcoderHandle string   `json:"topcoder_handle"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
