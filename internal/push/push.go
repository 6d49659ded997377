// Package push delivers best-effort device notifications in bounded batches.
package push

import "context"

// Notification is the content shared by every recipient of one dispatch.
type Notification struct {
	Title string
	Body  string
	Data  map[string]any
}

// Message is one provider-level push addressed to a single device token.
type Message struct {
	To        string         `json:"to"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Sound     string         `json:"sound,omitempty"`
	Priority  string         `json:"priority,omitempty"`
	ChannelID string         `json:"channelId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Provider sends one batch of messages. Success and failure are reported
// for the batch as a whole.
type Provider interface {
	SendBatch(ctx context.Context, msgs []Message) error
}

// Dispatcher is what broadcasters depend on.
type Dispatcher interface {
	Dispatch(ctx context.Context, tokens []string, n Notification) Result
}
