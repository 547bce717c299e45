package transport

import (
    "context"

    "github.com/amirimatin/zkseeds/pkg/membership"
)

// SeedsResponse answers a seeds request: one discovery round on the node.
type SeedsResponse struct {
    Backend string   `json:"backend"`
    Seeds   []string `json:"seeds"`
}

// MembersResponse is the gossip view of a node.
type MembersResponse struct {
    Local   membership.MemberInfo   `json:"local"`
    Members []membership.MemberInfo `json:"members"`
    Health  int                     `json:"health"`
}

// Handlers back the management endpoints. Nil handlers answer "not
// implemented" in the protocol's own way.
type Handlers struct {
    // Backend names the discovery backend reported with the seeds.
    Backend string
    // Seeds runs one discovery round.
    Seeds func(ctx context.Context) []string
    // Members reports the gossip view.
    Members func() MembersResponse
}

// RPCServer exposes the management endpoints of a node.
type RPCServer interface {
    Start(ctx context.Context, h Handlers) error
    Addr() string
    Stop(ctx context.Context) error
}

// RPCClient calls the management endpoints of another node using the chosen
// protocol (HTTP/JSON or gRPC with a JSON codec).
type RPCClient interface {
    GetSeeds(ctx context.Context, addr string) (SeedsResponse, error)
    GetMembers(ctx context.Context, addr string) (MembersResponse, error)
}
