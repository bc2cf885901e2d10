package service

import (
	"context"
	"sync"

	"campaign-bot-backend/internal/features/fulfillment/models"
)

// fakeSocial scripts per-step errors: each call pops the next error
// for its step, nil meaning success.
type fakeSocial struct {
	mu    sync.Mutex
	errs  map[string][]error
	calls map[string]int

	authToken  string
	authSecret string
	authURL    string
	authErr    error

	exchanged   models.Credential
	exchangeErr error

	lastReplyText string
}

func newFakeSocial() *fakeSocial {
	return &fakeSocial{
		errs:       make(map[string][]error),
		calls:      make(map[string]int),
		authToken:  "req-token",
		authSecret: "req-secret",
		authURL:    "https://provider.example/authorize?oauth_token=req-token",
		exchanged:  models.Credential{AccessToken: "access-token", AccessSecret: "access-secret"},
	}
}

func (f *fakeSocial) fail(step string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[step] = append(f.errs[step], errs...)
}

func (f *fakeSocial) callCount(step string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[step]
}

func (f *fakeSocial) step(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if queue := f.errs[name]; len(queue) > 0 {
		err := queue[0]
		f.errs[name] = queue[1:]
		return err
	}
	return nil
}

func (f *fakeSocial) RequestAuthorization(ctx context.Context) (string, string, string, error) {
	if f.authErr != nil {
		return "", "", "", f.authErr
	}
	return f.authToken, f.authSecret, f.authURL, nil
}

func (f *fakeSocial) ExchangeVerifier(ctx context.Context, token, secret, verifier string) (models.Credential, error) {
	if f.exchangeErr != nil {
		return models.Credential{}, f.exchangeErr
	}
	return f.exchanged, nil
}

func (f *fakeSocial) Like(ctx context.Context, cred models.Credential, tweetID string) error {
	return f.step("like")
}

func (f *fakeSocial) Reshare(ctx context.Context, cred models.Credential, tweetID string) error {
	return f.step("reshare")
}

func (f *fakeSocial) Reply(ctx context.Context, cred models.Credential, tweetID, text string) error {
	f.mu.Lock()
	f.lastReplyText = text
	f.mu.Unlock()
	return f.step("reply")
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	lastURL  string
}

func (n *fakeNotifier) Notify(ctx context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *fakeNotifier) NotifyWithLink(ctx context.Context, userID int64, text, label, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	n.lastURL = url
	return nil
}

func (n *fakeNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}
