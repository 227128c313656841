package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicInboundMessage  Topic = "inbound_message"
	TopicOutboundMessage Topic = "outbound_message"
	TopicRateLimited     Topic = "rate_limited"
	TopicSummarySaved    Topic = "summary_saved"
	TopicBroadcast       Topic = "broadcast"
	TopicSocialPost      Topic = "social_post"
	TopicError           Topic = "error"
	TopicStatusChange    Topic = "status_change"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)
