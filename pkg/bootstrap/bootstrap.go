package bootstrap

import (
    "context"
    "fmt"
    "log"
    "time"

    "go.uber.org/multierr"

    "github.com/amirimatin/zkseeds/pkg/discovery"
    dStatic "github.com/amirimatin/zkseeds/pkg/discovery/static"
    zkdisc "github.com/amirimatin/zkseeds/pkg/discovery/zookeeper"
    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    "github.com/amirimatin/zkseeds/pkg/membership"
    ml "github.com/amirimatin/zkseeds/pkg/membership/memberlist"
    obsmetrics "github.com/amirimatin/zkseeds/pkg/observability/metrics"
    tlsx "github.com/amirimatin/zkseeds/pkg/security/tlsconfig"
    "github.com/amirimatin/zkseeds/pkg/transport"
    mgmtgrpc "github.com/amirimatin/zkseeds/pkg/transport/grpc"
    httpjson "github.com/amirimatin/zkseeds/pkg/transport/httpjson"
)

const (
    KindZookeeper = "zookeeper"
    KindStatic    = "static"

    ProtoHTTP = "http"
    ProtoGRPC = "grpc"
)

// Config defines the inputs to assemble a node whose seeds come from a
// discovery backend. Applications fill it from flags or their own config.
type Config struct {
    // Identity and addresses
    NodeID  string
    MemBind string // membership bind host:port
    MemAdv  string // optional advertise host:port

    // Management API (seeds/members, plus metrics/healthz over http); empty
    // MgmtAddr disables it. MgmtProto is "http" (default) or "grpc".
    MgmtAddr  string
    MgmtProto string
    MgmtTLS   tlsx.Options

    // Discovery settings
    DiscoveryKind string // "zookeeper" (default) or "static"
    SeedsCSV      string // used when DiscoveryKind=static

    // ZooKeeper backend. ZKConfigDir, when set, loads the plugin settings
    // file below it; the remaining fields override it when non-zero.
    ZKConfigDir      string
    ZKQuorum         string
    ZKZnodeParent    string
    ZKConnectTimeout time.Duration

    // JoinInterval is the delay between discovery rounds until joined.
    JoinInterval time.Duration

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger
}

// Discovery builds the seed provider selected by cfg. This is the single
// place where backends are registered by name.
func Discovery(cfg Config) (discovery.SeedProvider, error) {
    logger := logutil.OrDefault(cfg.Logger)
    switch cfg.DiscoveryKind {
    case KindStatic:
        return dStatic.New(dStatic.Parse(cfg.SeedsCSV)...), nil
    case KindZookeeper, "":
        opts := zkdisc.Options{Logger: logger}
        overridden := cfg.ZKQuorum != "" || cfg.ZKZnodeParent != "" || cfg.ZKConnectTimeout > 0
        if cfg.ZKConfigDir != "" && !overridden {
            p, err := zkdisc.NewFromFile(cfg.ZKConfigDir, opts)
            if err != nil { return nil, err }
            return p, nil
        }
        zcfg := zkdisc.Config{}
        if cfg.ZKConfigDir != "" {
            loaded, err := zkdisc.LoadConfig(zkdisc.ConfigPath(cfg.ZKConfigDir))
            if err != nil { return nil, err }
            zcfg = loaded
        }
        if cfg.ZKQuorum != "" { zcfg.Quorum = cfg.ZKQuorum }
        if cfg.ZKZnodeParent != "" { zcfg.ZnodeParent = cfg.ZKZnodeParent }
        if cfg.ZKConnectTimeout > 0 { zcfg.ConnectTimeout = cfg.ZKConnectTimeout }
        p, err := zkdisc.New(zcfg, opts)
        if err != nil { return nil, err }
        return p, nil
    default:
        return nil, fmt.Errorf("bootstrap: unknown discovery backend %q", cfg.DiscoveryKind)
    }
}

// Node is an assembled gossip node fed by a discovery backend.
type Node struct {
    Membership *ml.Node
    Discovery  discovery.SeedProvider
    Server     transport.RPCServer

    cfg    Config
    joined chan error
}

// Build assembles a Node from Config without starting it.
func Build(cfg Config) (*Node, error) {
    cfg.Logger = logutil.OrDefault(cfg.Logger)
    if cfg.DiscoveryKind == "" { cfg.DiscoveryKind = KindZookeeper }
    disc, err := Discovery(cfg)
    if err != nil { return nil, err }
    meta := map[string]string{}
    if cfg.MgmtAddr != "" { meta["mgmt"] = cfg.MgmtAddr }
    mem, err := ml.New(ml.Options{NodeID: cfg.NodeID, Bind: cfg.MemBind, Advertise: cfg.MemAdv, Logger: cfg.Logger, Meta: meta})
    if err != nil { return nil, err }
    n := &Node{Membership: mem, Discovery: disc, cfg: cfg, joined: make(chan error, 1)}
    if cfg.MgmtAddr != "" {
        srvTLS, err := cfg.MgmtTLS.Server()
        if err != nil {
            _ = mem.Stop()
            return nil, err
        }
        switch cfg.MgmtProto {
        case ProtoGRPC:
            n.Server = mgmtgrpc.NewServer(cfg.MgmtAddr, cfg.Logger).UseTLS(srvTLS)
        case ProtoHTTP, "":
            n.Server = httpjson.NewServer(cfg.MgmtAddr, cfg.Logger).UseTLS(srvTLS)
        default:
            _ = mem.Stop()
            return nil, fmt.Errorf("bootstrap: unknown management protocol %q", cfg.MgmtProto)
        }
    }
    return n, nil
}

// Run builds and starts the node: membership, management endpoint and the
// background discovery rounds. The caller must Close the returned node.
func Run(ctx context.Context, cfg Config) (*Node, error) {
    n, err := Build(cfg)
    if err != nil { return nil, err }
    if err := n.Start(ctx); err != nil {
        _ = n.Close()
        return nil, err
    }
    return n, nil
}

// Start launches the node. Discovery rounds run until the first successful
// join; Joined reports the outcome.
func (n *Node) Start(ctx context.Context) error {
    obsmetrics.Register()
    if err := n.Membership.Start(ctx); err != nil { return err }
    if n.Server != nil {
        if err := n.Server.Start(ctx, n.handlers()); err != nil { return err }
        logutil.Infof(n.cfg.Logger, "management endpoint (%s) listening at %s", n.mgmtProto(), n.Server.Addr())
    }
    go func() {
        n.joined <- membership.JoinSeeds(ctx, n.Membership, n.Discovery, membership.JoinOptions{Interval: n.cfg.JoinInterval, Logger: n.cfg.Logger})
    }()
    return nil
}

// Joined delivers the result of the discovery/join loop once.
func (n *Node) Joined() <-chan error { return n.joined }

func (n *Node) mgmtProto() string {
    if n.cfg.MgmtProto == "" { return ProtoHTTP }
    return n.cfg.MgmtProto
}

func (n *Node) handlers() transport.Handlers {
    return transport.Handlers{
        Backend: n.cfg.DiscoveryKind,
        Seeds: func(ctx context.Context) []string {
            addrs := n.Discovery.SeedAddresses(ctx)
            out := make([]string, 0, len(addrs))
            for _, a := range addrs { out = append(out, a.String()) }
            return out
        },
        Members: func() transport.MembersResponse {
            return transport.MembersResponse{Local: n.Membership.Local(), Members: n.Membership.Members(), Health: n.Membership.HealthScore()}
        },
    }
}

// Close leaves the gossip cluster and stops all components.
func (n *Node) Close() error {
    var err error
    if n.Server != nil {
        err = multierr.Append(err, n.Server.Stop(context.Background()))
    }
    err = multierr.Append(err, n.Membership.Leave())
    err = multierr.Append(err, n.Membership.Stop())
    return err
}
