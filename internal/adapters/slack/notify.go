package slack

import (
	"context"
	"errors"
	"log/slog"
)

// Resolver adapts the client to the reminder pipeline's identity lookup.
// The pipeline contract conflates "no such member" with transport failure
// (both report ok=false); the two cases are distinguished only in logs.
type Resolver struct {
	client *Client
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client *Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// LookupByEmail resolves an email to a Slack member ID.
func (r *Resolver) LookupByEmail(ctx context.Context, email string) (string, bool) {
	id, err := r.client.LookupUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			r.logger.Warn("slack member not found", "email", email)
		} else {
			r.logger.Warn("slack member lookup failed", "email", email, "error", err)
		}
		return "", false
	}
	return id, true
}

// Notifier adapts the client to the reminder pipeline's dispatcher.
type Notifier struct {
	client *Client
}

// NewNotifier creates a notifier backed by the given client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Send posts a plain-text message to a channel.
func (n *Notifier) Send(ctx context.Context, channel, text string) error {
	_, err := n.client.PostMessage(ctx, channel, text)
	return err
}
