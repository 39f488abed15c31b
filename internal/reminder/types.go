// Package reminder implements the row-to-notification pipeline: project a
// spreadsheet row into a record, derive its days-until-due signal, gate it
// through the target's filter, render the per-offset template and dispatch
// a mention to the messaging platform.
package reminder

import "context"

// IdentityResolver maps an email address to a messaging-platform member ID.
// Not-found and transport failure are indistinguishable here: both report
// ok=false and the caller skips or degrades accordingly.
type IdentityResolver interface {
	LookupByEmail(ctx context.Context, email string) (id string, ok bool)
}

// Dispatcher delivers a rendered message to a destination channel.
type Dispatcher interface {
	Send(ctx context.Context, channel, text string) error
}
