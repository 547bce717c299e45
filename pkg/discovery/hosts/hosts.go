package hosts

import (
    "context"
    "log"
    "net"
    "net/netip"
    "strconv"
    "strings"
    "time"

    "github.com/amirimatin/zkseeds/pkg/discovery"
    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
)

// Lookuper is the subset of *net.Resolver used for hostname lookups.
type Lookuper interface {
    LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Options configures host resolution.
type Options struct {
    // Resolver optionally overrides the DNS resolver used.
    Resolver Lookuper

    // Network restricts address families: "ip" (default), "ip4" or "ip6".
    Network string

    // LookupTimeout bounds each hostname lookup; if zero, defaults to 5s.
    LookupTimeout time.Duration

    // Logger optional.
    Logger *log.Logger
}

// Resolver resolves "host:port" seed strings into concrete addresses.
type Resolver struct {
    opts Options
}

// New returns a Resolver. Literal IPs pass through untouched; hostnames are
// looked up and every returned address becomes a seed.
func New(opts Options) *Resolver {
    if opts.Resolver == nil { opts.Resolver = net.DefaultResolver }
    if opts.Network == "" { opts.Network = "ip" }
    if opts.LookupTimeout <= 0 { opts.LookupTimeout = 5 * time.Second }
    return &Resolver{opts: opts}
}

// ResolveHosts resolves each entry in order, dropping unresolvable ones and
// duplicates (first occurrence wins).
func (r *Resolver) ResolveHosts(ctx context.Context, hosts []string) []netip.AddrPort {
    ctx, end := tracing.StartSpan(ctx, "hosts.resolve")
    defer end()
    seen := make(map[netip.AddrPort]struct{}, len(hosts))
    out := make([]netip.AddrPort, 0, len(hosts))
    for _, hp := range hosts {
        for _, ap := range r.resolveOne(ctx, hp) {
            if _, ok := seen[ap]; ok { continue }
            seen[ap] = struct{}{}
            out = append(out, ap)
        }
    }
    return out
}

func (r *Resolver) resolveOne(ctx context.Context, hostPort string) []netip.AddrPort {
    host, portStr, err := net.SplitHostPort(strings.TrimSpace(hostPort))
    if err != nil {
        logutil.Warnf(r.opts.Logger, "hosts: invalid seed %q: %v", hostPort, err)
        return nil
    }
    port, err := strconv.ParseUint(portStr, 10, 16)
    if err != nil {
        logutil.Warnf(r.opts.Logger, "hosts: invalid port in %q", hostPort)
        return nil
    }
    if ip, err := netip.ParseAddr(host); err == nil {
        return []netip.AddrPort{netip.AddrPortFrom(ip.Unmap(), uint16(port))}
    }
    lctx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
    defer cancel()
    ips, err := r.opts.Resolver.LookupNetIP(lctx, r.opts.Network, host)
    if err != nil {
        logutil.Warnf(r.opts.Logger, "hosts: failed to resolve %q: %v", host, err)
        return nil
    }
    out := make([]netip.AddrPort, 0, len(ips))
    for _, ip := range ips {
        out = append(out, netip.AddrPortFrom(ip.Unmap(), uint16(port)))
    }
    return out
}

// Strings formats addresses as host:port strings (IPv6 bracketed).
func Strings(addrs []netip.AddrPort) []string {
    out := make([]string, 0, len(addrs))
    for _, a := range addrs {
        out = append(out, a.String())
    }
    return out
}

var _ discovery.HostsResolver = (*Resolver)(nil)
