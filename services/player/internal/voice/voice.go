// Package voice defines the audio transport collaborator boundary. The real
// chat-platform gateway lives outside this repo; the engine only needs the
// Transport port below.
package voice

import "context"

// Member is one person present in the connected channel.
type Member struct {
	ID   string
	Name string
	Bot  bool
}

// Transport carries audio for a single tenant's channel.
//
// Play's completion callback fires exactly once per started stream, whether
// it ended naturally, errored, or was stopped, and is always delivered on a
// separate goroutine, never on the caller's stack.
type Transport interface {
	// Join connects to the channel, moving if already connected elsewhere.
	Join(ctx context.Context, channelID string) error

	// Leave disconnects. No-op when not connected.
	Leave(ctx context.Context) error

	// Play starts streaming the locator. A returned error means the stream
	// never started and onDone will not fire.
	Play(ctx context.Context, streamURL string, onDone func(err error)) error

	// Stop forcibly ends the active stream, firing its completion callback.
	Stop()

	// Pause and Resume report whether they changed anything.
	Pause() bool
	Resume() bool

	// Listeners snapshots the members currently present in the channel.
	Listeners() []Member
}

// Factory builds the transport for one tenant. The registry calls it once
// per engine.
type Factory func(tenantID string) Transport
