package zookeeper

import (
    "context"
    "log"
    "net/netip"
    "time"

    "github.com/amirimatin/zkseeds/pkg/discovery"
    "github.com/amirimatin/zkseeds/pkg/discovery/hosts"
    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/zkseeds/pkg/observability/metrics"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
)

// State is a step of one resolution cycle.
type State string

const (
    StateIdle          State = "idle"
    StateConnecting    State = "connecting"
    StateConnected     State = "connected"
    StateConnectFailed State = "connect_failed"
    StateEnumerating   State = "enumerating"
    StateResolving     State = "resolving"
    StateDone          State = "done"
)

// Options carries the collaborators of a Provider.
type Options struct {
    // Logger is optional. If nil, log.Default() is used.
    Logger *log.Logger
    // Hosts turns host:port strings into addresses. Defaults to hosts.New.
    Hosts discovery.HostsResolver
    // Dialer overrides the ZooKeeper connection factory (tests).
    Dialer Dialer
    // OnState, if set, observes every state transition of a cycle.
    OnState func(State)
}

// Provider resolves seed addresses from member znodes registered under a
// ZooKeeper namespace. Each call runs an independent cycle with its own
// session; a Provider is safe for concurrent use.
type Provider struct {
    cfg  Config
    opts Options
}

// New validates cfg (after applying defaults) and returns a Provider.
func New(cfg Config, opts Options) (*Provider, error) {
    cfg = cfg.withDefaults()
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    opts.Logger = logutil.OrDefault(opts.Logger)
    if opts.Hosts == nil {
        opts.Hosts = hosts.New(hosts.Options{Logger: opts.Logger})
    }
    return &Provider{cfg: cfg, opts: opts}, nil
}

// NewFromFile loads the plugin settings file below configDir. A missing or
// unparsable file is a construction error (ErrConfigLoad).
func NewFromFile(configDir string, opts Options) (*Provider, error) {
    cfg, err := LoadConfig(ConfigPath(configDir))
    if err != nil {
        return nil, err
    }
    return New(cfg, opts)
}

// Config returns the effective configuration.
func (p *Provider) Config() Config { return p.cfg }

// SeedAddresses runs one discovery cycle and returns the resolved seed
// addresses. It never fails; any error yields an empty result.
func (p *Provider) SeedAddresses(ctx context.Context) []netip.AddrPort {
    _, addrs := p.cycle(ctx, true)
    return addrs
}

// HostList runs one cycle and returns the validated host:port strings
// without resolving them.
func (p *Provider) HostList(ctx context.Context) []string {
    list, _ := p.cycle(ctx, false)
    return list
}

// Seeds implements discovery.Discovery.
func (p *Provider) Seeds() []string {
    return hosts.Strings(p.SeedAddresses(context.Background()))
}

func (p *Provider) cycle(ctx context.Context, resolve bool) ([]string, []netip.AddrPort) {
    start := time.Now()
    ctx, end := tracing.StartSpan(ctx, "zookeeper.seed_addresses", "quorum", p.cfg.Quorum, "znode_parent", p.cfg.ZnodeParent)
    defer end()
    defer func() { obsmetrics.DiscoveryCycleSeconds.Observe(time.Since(start).Seconds()) }()

    p.state(StateIdle)
    p.state(StateConnecting)
    defer p.state(StateDone)

    list, ok := p.fetch(ctx)
    if !ok {
        obsmetrics.DiscoveryCycles.WithLabelValues("connect_failed").Inc()
        obsmetrics.SeedsResolved.Set(0)
        logutil.Warnf(p.opts.Logger, "zookeeper: failed to get node information from zookeeper (quorum %s)", p.cfg.Quorum)
        return nil, nil
    }
    if err := ctx.Err(); err != nil {
        obsmetrics.DiscoveryCycles.WithLabelValues("interrupted").Inc()
        obsmetrics.SeedsResolved.Set(0)
        logutil.Warnf(p.opts.Logger, "zookeeper: discovery cycle interrupted: %v", err)
        return nil, nil
    }
    logutil.Infof(p.opts.Logger, "zookeeper: accepted seed hosts %v", list)
    if !resolve {
        p.observe(len(list))
        return list, nil
    }

    p.state(StateResolving)
    addrs := p.opts.Hosts.ResolveHosts(ctx, list)
    p.observe(len(addrs))
    return list, addrs
}

// fetch dials and walks the namespace. The session is closed before fetch
// returns, whatever the outcome.
func (p *Provider) fetch(ctx context.Context) ([]string, bool) {
    c, err := Dial(ctx, p.cfg.Quorum, DialOptions{
        ConnectTimeout: p.cfg.ConnectTimeout,
        SessionTimeout: p.cfg.SessionTimeout,
        Dialer:         p.opts.Dialer,
        Logger:         p.opts.Logger,
    })
    defer c.Close()
    if err != nil {
        p.state(StateConnectFailed)
        return nil, false
    }
    p.state(StateConnected)

    p.state(StateEnumerating)
    list, st := NewMemberResolver(c, p.opts.Logger).ResolveMembers(ctx, p.cfg.ZnodeParent)
    obsmetrics.ZnodesListed.Add(float64(st.Listed))
    obsmetrics.ZnodesRejected.Add(float64(st.Rejected))
    return list, true
}

func (p *Provider) observe(n int) {
    obsmetrics.SeedsResolved.Set(float64(n))
    if n == 0 {
        obsmetrics.DiscoveryCycles.WithLabelValues("empty").Inc()
        return
    }
    obsmetrics.DiscoveryCycles.WithLabelValues("ok").Inc()
}

func (p *Provider) state(s State) {
    if p.opts.OnState != nil { p.opts.OnState(s) }
}

var _ discovery.SeedProvider = (*Provider)(nil)
