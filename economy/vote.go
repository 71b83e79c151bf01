package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const topGGBaseURL = "https://top.gg/api"

// TopGGClient checks votes against the Top.gg API
type TopGGClient struct {
	botID string
	http  *resty.Client
}

type topGGVoteResponse struct {
	Voted int `json:"voted"` // 1 when the user voted in the last 12 hours
}

// NewTopGGClient returns nil when no token is configured so callers can
// treat voting as disabled.
func NewTopGGClient(baseURL, token, botID string) *TopGGClient {
	if token == "" || botID == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = topGGBaseURL
	}
	return &TopGGClient{
		botID: botID,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetRetryCount(2).
			SetHeader("Authorization", token).
			SetHeader("Accept", "application/json"),
	}
}

// HasVoted reports whether accountID has voted for the bot
func (c *TopGGClient) HasVoted(ctx context.Context, accountID string) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("top.gg client not configured")
	}
	var out topGGVoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("botID", c.botID).
		SetQueryParam("userId", accountID).
		SetResult(&out).
		Get("/bots/{botID}/check")
	if err != nil {
		return false, fmt.Errorf("top.gg request: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("top.gg returned status %d", resp.StatusCode())
	}
	return out.Voted == 1, nil
}

// VoteURL is where players go to vote
func (c *TopGGClient) VoteURL() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("https://top.gg/bot/%s/vote", c.botID)
}
