package membership

import (
    "context"
    "time"
)

// MemberInfo describes a gossip member. Meta carries node metadata such as the
// management address.
type MemberInfo struct {
    ID   string            `json:"id"`
    Addr string            `json:"addr"`
    Meta map[string]string `json:"meta,omitempty"`
}

type EventType string

const (
    // EventJoin indicates a member joined or became visible.
    EventJoin   EventType = "join"
    // EventLeave indicates a member left or was declared dead.
    EventLeave  EventType = "leave"
    // EventUpdate indicates a member changed its metadata.
    EventUpdate EventType = "update"
)

// Event is the translated membership change notification.
type Event struct {
    Type   EventType
    Member MemberInfo
    At     time.Time
}

// Membership is the cluster-formation layer fed by seed discovery.
type Membership interface {
    Start(ctx context.Context) error
    Join(seeds []string) (int, error)
    Local() MemberInfo
    Members() []MemberInfo
    Events() <-chan Event
    Leave() error
    Stop() error
}
