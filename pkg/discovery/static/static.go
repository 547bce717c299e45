package static

import (
    "context"
    "net/netip"
    "strings"

    "github.com/amirimatin/zkseeds/pkg/discovery"
    "github.com/amirimatin/zkseeds/pkg/discovery/hosts"
)

// Seeds is a fixed seed list, used when no coordination service is
// configured.
type Seeds struct {
    seeds    []string
    resolver discovery.HostsResolver
}

// New returns a provider that always returns the given seeds.
func New(seeds ...string) *Seeds {
    cleaned := make([]string, 0, len(seeds))
    for _, v := range seeds {
        v = strings.TrimSpace(v)
        if v != "" {
            cleaned = append(cleaned, v)
        }
    }
    return &Seeds{seeds: cleaned, resolver: hosts.New(hosts.Options{})}
}

// WithResolver replaces the host resolver used by SeedAddresses.
func (s *Seeds) WithResolver(r discovery.HostsResolver) *Seeds { s.resolver = r; return s }

func (s *Seeds) Seeds() []string { return append([]string(nil), s.seeds...) }

// SeedAddresses resolves the fixed list on every call so DNS changes are
// picked up between rounds.
func (s *Seeds) SeedAddresses(ctx context.Context) []netip.AddrPort {
    return s.resolver.ResolveHosts(ctx, s.seeds)
}

// Parse converts a comma-separated list into []string seeds.
func Parse(csv string) []string {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}

var _ discovery.SeedProvider = (*Seeds)(nil)
