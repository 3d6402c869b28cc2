package topcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/topcoder-platform/topcoder-x-processor-sub000/common/logger"
	"github.com/topcoder-platform/topcoder-x-processor-sub000/core/config"
)

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg config.TopcoderConfig) Client {
	return &client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *client) CreateChallenge(ctx context.Context, spec ChallengeSpec) (*Challenge, error) {
	var challenge Challenge
	if err := c.do(ctx, http.MethodPost, "/challenges", spec, &challenge); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "challenge created",
		"challenge_id", challenge.ID,
		"project_id", spec.ProjectID,
		"name", logger.Truncate(spec.Name, 80))
	return &challenge, nil
}

func (c *client) UpdateChallenge(ctx context.Context, challengeID int64, patch ChallengePatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/challenges/%d", challengeID), patch, nil)
}

func (c *client) GetChallenge(ctx context.Context, challengeID int64) (*Challenge, error) {
	var challenge Challenge
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/challenges/%d", challengeID), nil, &challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (c *client) ActivateChallenge(ctx context.Context, challengeID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/challenges/%d/activate", challengeID), nil, nil)
}

func (c *client) CloseChallenge(ctx context.Context, challengeID int64, winnerHandle string) error {
	body := map[string]string{"winner": winnerHandle}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/challenges/%d/close", challengeID), body, nil); err != nil {
		return err
	}

	slog.InfoContext(ctx, "challenge closed", "challenge_id", challengeID, "winner", winnerHandle)
	return nil
}

func (c *client) CancelChallenge(ctx context.Context, challengeID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/challenges/%d/cancel", challengeID), nil, nil)
}

func (c *client) AddParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error {
	body := map[string]any{"handle": handle, "roleId": roleID}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/challenges/%d/resources", challengeID), body, nil)
}

func (c *client) RemoveParticipant(ctx context.Context, challengeID int64, handle string, roleID int) error {
	path := fmt.Sprintf("/challenges/%d/resources?handle=%s&roleId=%d", challengeID, url.QueryEscape(handle), roleID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *client) IsRoleAlreadySet(ctx context.Context, challengeID int64, roleID int) (bool, error) {
	var resources []struct {
		RoleID int `json:"roleId"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/challenges/%d/resources", challengeID), nil, &resources); err != nil {
		return false, err
	}
	for _, r := range resources {
		if r.RoleID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (c *client) ResolveUserID(ctx context.Context, handle string) (int64, error) {
	var users []struct {
		UserID int64 `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/members?handle="+url.QueryEscape(handle), nil, &users); err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, &APIError{Op: "resolve user", StatusCode: http.StatusNotFound, Body: "no member named " + handle}
	}
	return users[0].UserID, nil
}

func (c *client) do(ctx context.Context, method, path string, body, result any) error {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Op: op, StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: logger.Truncate(string(data), 512)}
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return &APIError{Op: op, StatusCode: resp.StatusCode, Body: "decoding response: " + err.Error()}
		}
	}

	return nil
}
