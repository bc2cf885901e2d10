package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	oauthtw "github.com/dghubble/oauth1/twitter"

	"campaign-bot-backend/internal/features/fulfillment/models"
)

const apiBase = "https://api.twitter.com/1.1"

// Error codes the engine has to distinguish. Everything else is fatal
// for the current action sequence.
const (
	codeRateLimit        = 88
	codeInvalidToken     = 89
	codeAlreadyFavorited = 139
	codeDuplicateStatus  = 187
	codeAlreadyRetweeted = 327
)

type apiError struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Client performs the OAuth 1.0a handshake and the per-user action
// calls (like, retweet, reply) against the v1.1 API.
type Client struct {
	config     *oauth1.Config
	httpClient *http.Client
}

func NewClient(consumerKey, consumerSecret, callbackURL string) *Client {
	return &Client{
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    callbackURL,
			Endpoint:       oauthtw.AuthorizeEndpoint,
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// RequestAuthorization obtains a request token and the URL the user
// has to visit to approve access.
func (c *Client) RequestAuthorization(ctx context.Context) (token, secret, authURL string, err error) {
	token, secret, err = c.config.RequestToken()
	if err != nil {
		return "", "", "", fmt.Errorf("request token: %w", err)
	}
	u, err := c.config.AuthorizationURL(token)
	if err != nil {
		return "", "", "", fmt.Errorf("authorization url: %w", err)
	}
	return token, secret, u.String(), nil
}

// ExchangeVerifier trades an approved request token for the long-lived
// access credential.
func (c *Client) ExchangeVerifier(ctx context.Context, token, secret, verifier string) (models.Credential, error) {
	accessToken, accessSecret, err := c.config.AccessToken(token, secret, verifier)
	if err != nil {
		return models.Credential{}, fmt.Errorf("access token exchange: %w", err)
	}
	return models.Credential{AccessToken: accessToken, AccessSecret: accessSecret}, nil
}

// Like marks the tweet as liked by the credential's identity.
func (c *Client) Like(ctx context.Context, cred models.Credential, tweetID string) error {
	endpoint := fmt.Sprintf("%s/favorites/create.json?id=%s", apiBase, url.QueryEscape(tweetID))
	return c.post(ctx, cred, endpoint)
}

// Reshare retweets the tweet.
func (c *Client) Reshare(ctx context.Context, cred models.Credential, tweetID string) error {
	endpoint := fmt.Sprintf("%s/statuses/retweet/%s.json", apiBase, url.PathEscape(tweetID))
	return c.post(ctx, cred, endpoint)
}

// Reply posts the comment as a reply to the tweet.
func (c *Client) Reply(ctx context.Context, cred models.Credential, tweetID, text string) error {
	q := url.Values{}
	q.Set("status", text)
	q.Set("in_reply_to_status_id", tweetID)
	q.Set("auto_populate_reply_metadata", "true")
	endpoint := fmt.Sprintf("%s/statuses/update.json?%s", apiBase, q.Encode())
	return c.post(ctx, cred, endpoint)
}

func (c *Client) post(ctx context.Context, cred models.Credential, endpoint string) error {
	httpClient := c.config.Client(ctx, oauth1.NewToken(cred.AccessToken, cred.AccessSecret))
	httpClient.Timeout = c.httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return c.mapError(resp)
}

func (c *Client) mapError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	for _, e := range apiErr.Errors {
		switch e.Code {
		case codeAlreadyFavorited, codeAlreadyRetweeted, codeDuplicateStatus:
			return ErrAlreadyPerformed
		case codeInvalidToken:
			return ErrCredentialRejected
		case codeRateLimit:
			return &RateLimitError{ResetAt: rateLimitReset(resp)}
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrCredentialRejected
	case http.StatusTooManyRequests:
		return &RateLimitError{ResetAt: rateLimitReset(resp)}
	}
	return fmt.Errorf("twitter: %s: %s", resp.Status, string(body))
}

// rateLimitReset reads the reset instant from the x-rate-limit-reset
// header; when absent it falls back to a 15 minute window, the v1.1
// default.
func rateLimitReset(resp *http.Response) time.Time {
	if v := resp.Header.Get("x-rate-limit-reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(unix, 0)
		}
	}
	return time.Now().Add(15 * time.Minute)
}
