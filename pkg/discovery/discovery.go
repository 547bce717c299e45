package discovery

import (
    "context"
    "net/netip"
)

// Discovery abstracts how seed nodes are provided to the cluster-formation
// layer. It is called once per discovery round; implementations must never
// panic and return an empty slice when nothing could be discovered.
type Discovery interface {
    Seeds() []string
}

// SeedProvider is the context-aware form used by backends that perform
// network I/O for every round (e.g., ZooKeeper).
type SeedProvider interface {
    Discovery
    SeedAddresses(ctx context.Context) []netip.AddrPort
}

// HostsResolver turns validated "host:port" strings into bindable addresses.
// Hosts that fail to resolve are dropped; the result is deduplicated.
type HostsResolver interface {
    ResolveHosts(ctx context.Context, hosts []string) []netip.AddrPort
}
