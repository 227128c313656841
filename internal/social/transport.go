// Package social publishes agent-authored posts to a social network and
// answers mentions. The posting cadence is driven by a cron schedule; the
// content comes from the same gateway and memory the chat pipeline uses.
package social

import "context"

// Mention is an inbound post that tags the agent's account.
type Mention struct {
	ID       string
	AuthorID string
	Text     string
}

// Transport abstracts the social network API.
type Transport interface {
	// Post publishes text and returns the new post's id.
	Post(ctx context.Context, text string) (string, error)
	// Reply publishes text as a reply to the given post.
	Reply(ctx context.Context, text, postID string) error
	// Mentions emits mentions of the agent's account as they are
	// discovered. The channel closes when ctx is cancelled.
	Mentions(ctx context.Context) <-chan Mention
}
