package memberlist

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net"
    "strconv"
    "sync"
    "sync/atomic"
    "time"

    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    base "github.com/amirimatin/zkseeds/pkg/membership"
    obsmetrics "github.com/amirimatin/zkseeds/pkg/observability/metrics"
)

// Options configures the memberlist-backed gossip node.
type Options struct {
    // NodeID is the unique node identifier.
    NodeID string

    // Bind is the bind address in host:port form (e.g. ":7946"). Port 0 picks
    // a free port.
    Bind string

    // Advertise is the host:port peers use to reach this node; this is the
    // value a node registers under the ZooKeeper namespace.
    Advertise string

    // Meta is optional metadata gossiped with the node.
    Meta map[string]string

    // Logger is optional. If nil, log.Default() is used.
    Logger *log.Logger

    // Tuning parameters (optional). Zero means use defaults.
    ProbeInterval time.Duration
    ProbeTimeout  time.Duration
    SuspicionMult int
}

// Node implements base.Membership using HashiCorp memberlist.
type Node struct {
    mu   sync.RWMutex
    opts Options
    ml   *memberlist.Memberlist

    // evMu guards evts/closed separately from mu: memberlist.Create fires
    // NotifyJoin for the local node while Start still holds mu.
    evMu    sync.Mutex
    evts    chan base.Event
    closed  bool
    members atomic.Int64
}

// New validates opts and returns an unstarted Node.
func New(opts Options) (*Node, error) {
    if opts.NodeID == "" {
        return nil, fmt.Errorf("memberlist: empty NodeID")
    }
    if opts.Bind == "" {
        return nil, fmt.Errorf("memberlist: empty Bind address")
    }
    opts.Logger = logutil.OrDefault(opts.Logger)
    return &Node{opts: opts, evts: make(chan base.Event, 64)}, nil
}

func (n *Node) config() (*memberlist.Config, error) {
    cfg := memberlist.DefaultLANConfig()
    cfg.Name = n.opts.NodeID
    cfg.Logger = n.opts.Logger
    host, port, err := splitHostPort(n.opts.Bind)
    if err != nil {
        return nil, fmt.Errorf("memberlist: invalid bind address %q: %w", n.opts.Bind, err)
    }
    cfg.BindAddr, cfg.BindPort = host, port
    if host == "" { cfg.BindAddr = "0.0.0.0" }
    if n.opts.Advertise != "" {
        ahost, aport, err := splitHostPort(n.opts.Advertise)
        if err != nil {
            return nil, fmt.Errorf("memberlist: invalid advertise address %q: %w", n.opts.Advertise, err)
        }
        cfg.AdvertiseAddr, cfg.AdvertisePort = ahost, aport
    }
    if n.opts.ProbeInterval > 0 { cfg.ProbeInterval = n.opts.ProbeInterval }
    if n.opts.ProbeTimeout > 0 { cfg.ProbeTimeout = n.opts.ProbeTimeout }
    if n.opts.SuspicionMult > 0 { cfg.SuspicionMult = n.opts.SuspicionMult }

    meta, _ := json.Marshal(n.opts.Meta)
    cfg.Events = &eventDelegate{emit: n.emit}
    cfg.Delegate = &nodeDelegate{meta: meta}
    return cfg, nil
}

// Start creates the memberlist instance. The node stops when ctx is done.
func (n *Node) Start(ctx context.Context) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    if n.ml != nil {
        return nil
    }
    cfg, err := n.config()
    if err != nil {
        return err
    }
    ml, err := memberlist.Create(cfg)
    if err != nil {
        return err
    }
    n.ml = ml
    go func() {
        <-ctx.Done()
        _ = n.Stop()
    }()
    return nil
}

// Join contacts seeds and returns how many were reached.
func (n *Node) Join(seeds []string) (int, error) {
    n.mu.RLock()
    ml := n.ml
    n.mu.RUnlock()
    if ml == nil {
        return 0, fmt.Errorf("memberlist: not started")
    }
    if len(seeds) == 0 {
        return 0, nil
    }
    return ml.Join(seeds)
}

func (n *Node) Local() base.MemberInfo {
    n.mu.RLock()
    defer n.mu.RUnlock()
    if n.ml == nil {
        return base.MemberInfo{}
    }
    return toMember(n.ml.LocalNode())
}

func (n *Node) Members() []base.MemberInfo {
    n.mu.RLock()
    defer n.mu.RUnlock()
    if n.ml == nil {
        return nil
    }
    nodes := n.ml.Members()
    out := make([]base.MemberInfo, 0, len(nodes))
    for _, m := range nodes {
        out = append(out, toMember(m))
    }
    return out
}

func (n *Node) Events() <-chan base.Event { return n.evts }

// Leave broadcasts an intent to leave, best-effort.
func (n *Node) Leave() error {
    n.mu.RLock()
    ml := n.ml
    n.mu.RUnlock()
    if ml == nil {
        return nil
    }
    return ml.Leave(time.Second)
}

// Stop shuts the node down and closes the events channel.
func (n *Node) Stop() error {
    n.mu.Lock()
    var err error
    if n.ml != nil {
        err = n.ml.Shutdown()
        n.ml = nil
    }
    n.mu.Unlock()

    n.evMu.Lock()
    defer n.evMu.Unlock()
    if !n.closed {
        n.closed = true
        close(n.evts)
    }
    return err
}

// HealthScore exposes memberlist's awareness score.
func (n *Node) HealthScore() int {
    n.mu.RLock()
    defer n.mu.RUnlock()
    if n.ml == nil {
        return -1
    }
    return n.ml.GetHealthScore()
}

func (n *Node) emit(e base.Event) {
    switch e.Type {
    case base.EventJoin:
        obsmetrics.MembershipMembers.Set(float64(n.members.Add(1)))
    case base.EventLeave:
        obsmetrics.MembershipMembers.Set(float64(n.members.Add(-1)))
    }
    n.evMu.Lock()
    defer n.evMu.Unlock()
    if n.closed {
        return
    }
    select {
    case n.evts <- e:
    default:
        logutil.Warnf(n.opts.Logger, "memberlist: dropping %s event for %s: channel full", e.Type, e.Member.ID)
    }
}

func toMember(m *memberlist.Node) base.MemberInfo {
    meta := map[string]string{}
    if len(m.Meta) > 0 {
        _ = json.Unmarshal(m.Meta, &meta)
    }
    return base.MemberInfo{ID: m.Name, Addr: net.JoinHostPort(m.Addr.String(), strconv.Itoa(int(m.Port))), Meta: meta}
}

func splitHostPort(hp string) (string, int, error) {
    host, portStr, err := net.SplitHostPort(hp)
    if err != nil {
        return "", 0, err
    }
    port, err := strconv.ParseUint(portStr, 10, 16)
    if err != nil {
        return "", 0, fmt.Errorf("invalid port %q", portStr)
    }
    return host, int(port), nil
}

// eventDelegate adapts memberlist callbacks to base.Event.
type eventDelegate struct {
    emit func(e base.Event)
}

func (d *eventDelegate) notify(t base.EventType, m *memberlist.Node) {
    if d.emit == nil || m == nil { return }
    d.emit(base.Event{Type: t, Member: toMember(m), At: time.Now()})
}

func (d *eventDelegate) NotifyJoin(m *memberlist.Node)   { d.notify(base.EventJoin, m) }
func (d *eventDelegate) NotifyLeave(m *memberlist.Node)  { d.notify(base.EventLeave, m) }
func (d *eventDelegate) NotifyUpdate(m *memberlist.Node) { d.notify(base.EventUpdate, m) }

// nodeDelegate gossips static node metadata.
type nodeDelegate struct{ meta []byte }

// NodeMeta returns the metadata truncated to limit.
func (d *nodeDelegate) NodeMeta(limit int) []byte {
    if len(d.meta) <= limit { return d.meta }
    if limit <= 0 { return nil }
    return d.meta[:limit]
}

func (d *nodeDelegate) NotifyMsg([]byte)                       {}
func (d *nodeDelegate) GetBroadcasts(int, int) [][]byte        { return nil }
func (d *nodeDelegate) LocalState(join bool) []byte            { return nil }
func (d *nodeDelegate) MergeRemoteState(buf []byte, join bool) {}

var (
    _ base.Membership     = (*Node)(nil)
    _ base.HealthReporter = (*Node)(nil)
)
