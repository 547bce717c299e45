package membership

import (
    "context"
    "log"
    "time"

    "github.com/amirimatin/zkseeds/pkg/discovery"
    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/zkseeds/pkg/observability/metrics"
)

// JoinOptions tunes JoinSeeds.
type JoinOptions struct {
    // Interval between discovery rounds; if zero, defaults to 10s.
    Interval time.Duration
    // Logger is optional.
    Logger *log.Logger
}

// JoinSeeds runs discovery rounds until m has contacted at least one peer
// other than itself, or ctx is done. Each round asks d for seeds, which for
// the ZooKeeper backend opens and closes its own session.
func JoinSeeds(ctx context.Context, m Membership, d discovery.Discovery, opts JoinOptions) error {
    if opts.Interval <= 0 { opts.Interval = 10 * time.Second }
    ticker := time.NewTicker(opts.Interval)
    defer ticker.Stop()
    for round := 1; ; round++ {
        if joinRound(ctx, m, d, round, opts.Logger) {
            return nil
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-ticker.C:
        }
    }
}

func joinRound(ctx context.Context, m Membership, d discovery.Discovery, round int, logger *log.Logger) bool {
    local := m.Local().Addr
    var seeds []string
    for _, s := range roundSeeds(ctx, d) {
        if s != local { seeds = append(seeds, s) }
    }
    if len(seeds) == 0 {
        obsmetrics.MembershipJoins.WithLabelValues("no_seeds").Inc()
        logutil.Infof(logger, "membership: round %d found no seeds", round)
        return false
    }
    n, err := m.Join(seeds)
    if n > 0 {
        obsmetrics.MembershipJoins.WithLabelValues("ok").Inc()
        logutil.Infof(logger, "membership: round %d joined %d of %d seeds", round, n, len(seeds))
        return true
    }
    obsmetrics.MembershipJoins.WithLabelValues("failed").Inc()
    logutil.Warnf(logger, "membership: round %d failed to join %v: %v", round, seeds, err)
    return false
}

// roundSeeds prefers the ctx-aware path so a shutdown interrupts an
// in-flight discovery cycle.
func roundSeeds(ctx context.Context, d discovery.Discovery) []string {
    sp, ok := d.(discovery.SeedProvider)
    if !ok { return d.Seeds() }
    addrs := sp.SeedAddresses(ctx)
    out := make([]string, 0, len(addrs))
    for _, a := range addrs { out = append(out, a.String()) }
    return out
}
