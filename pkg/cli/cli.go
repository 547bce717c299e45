package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/zkseeds/pkg/bootstrap"
    zkdisc "github.com/amirimatin/zkseeds/pkg/discovery/zookeeper"
    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    tracing "github.com/amirimatin/zkseeds/pkg/observability/tracing"
    tlsx "github.com/amirimatin/zkseeds/pkg/security/tlsconfig"
    "github.com/amirimatin/zkseeds/pkg/transport"
    mgmtgrpc "github.com/amirimatin/zkseeds/pkg/transport/grpc"
    httpjson "github.com/amirimatin/zkseeds/pkg/transport/httpjson"
)

// AddAll attaches resolve/run/seeds/members to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewResolveCmd())
    root.AddCommand(NewRunCmd())
    root.AddCommand(NewSeedsCmd())
    root.AddCommand(NewMembersCmd())
}

// zkFlags are shared by commands that talk to ZooKeeper directly.
type zkFlags struct {
    configDir      string
    quorum         string
    znodeParent    string
    connectTimeout time.Duration
}

func (f *zkFlags) register(cmd *cobra.Command) {
    cmd.Flags().StringVar(&f.configDir, "config-dir", "", "node config dir containing "+zkdisc.SettingsFile)
    cmd.Flags().StringVar(&f.quorum, "zk-quorum", "", "comma-separated ZooKeeper endpoints (default "+zkdisc.DefaultQuorum+")")
    cmd.Flags().StringVar(&f.znodeParent, "zk-znode-parent", "", "namespace path of member znodes (default "+zkdisc.DefaultZnodeParent+")")
    cmd.Flags().DurationVar(&f.connectTimeout, "zk-connect-timeout", 0, "bound on the session handshake (default 30s)")
}

func (f *zkFlags) apply(cfg *bootstrap.Config) {
    cfg.ZKConfigDir = f.configDir
    cfg.ZKQuorum = f.quorum
    cfg.ZKZnodeParent = f.znodeParent
    cfg.ZKConnectTimeout = f.connectTimeout
}

// tlsFlags configure mTLS on the management endpoint and its clients.
type tlsFlags struct {
    enable             bool
    ca, cert, key, sni string
    insecure           bool
}

func (f *tlsFlags) register(cmd *cobra.Command) {
    cmd.Flags().BoolVar(&f.enable, "tls", false, "use TLS for the management API")
    cmd.Flags().StringVar(&f.ca, "tls-ca", "", "CA bundle; on servers it also enforces client certificates")
    cmd.Flags().StringVar(&f.cert, "tls-cert", "", "certificate file")
    cmd.Flags().StringVar(&f.key, "tls-key", "", "private key file")
    cmd.Flags().StringVar(&f.sni, "tls-server-name", "", "expected server name (clients)")
    cmd.Flags().BoolVar(&f.insecure, "tls-insecure", false, "skip server certificate verification (clients, dev only)")
}

func (f *tlsFlags) options() tlsx.Options {
    return tlsx.Options{Enable: f.enable, CAFile: f.ca, CertFile: f.cert, KeyFile: f.key, ServerName: f.sni, InsecureSkipVerify: f.insecure}
}

// client returns a management client for proto and a func releasing it.
func (f *tlsFlags) client(proto string, timeout time.Duration) (transport.RPCClient, func(), error) {
    cfg, err := f.options().Client()
    if err != nil { return nil, nil, err }
    switch proto {
    case bootstrap.ProtoGRPC:
        c := mgmtgrpc.NewClient(timeout).UseTLS(cfg)
        return c, func() { _ = c.Close() }, nil
    case bootstrap.ProtoHTTP, "":
        return httpjson.NewClient(timeout).UseTLS(cfg), func() {}, nil
    default:
        return nil, nil, fmt.Errorf("unknown --mgmt-proto %q (want http|grpc)", proto)
    }
}

func mgmtProtoFlag(cmd *cobra.Command, p *string) {
    cmd.Flags().StringVar(p, "mgmt-proto", bootstrap.ProtoHTTP, "management RPC protocol: http|grpc")
}

// NewResolveCmd returns the "resolve" command: one discovery cycle, printed.
func NewResolveCmd() *cobra.Command {
    var (
        zf          zkFlags
        raw, asJSON bool
        traceEnable bool
    )
    cmd := &cobra.Command{
        Use:   "resolve",
        Short: "Run one ZooKeeper discovery cycle and print the seed addresses",
        RunE: func(cmd *cobra.Command, args []string) error {
            if shutdown := setupTracing(traceEnable); shutdown != nil {
                defer func() { _ = shutdown(context.Background()) }()
            }
            cfg := bootstrap.Config{DiscoveryKind: bootstrap.KindZookeeper, Logger: log.New(cmd.ErrOrStderr(), "", log.LstdFlags)}
            zf.apply(&cfg)
            d, err := bootstrap.Discovery(cfg)
            if err != nil { return err }
            p := d.(*zkdisc.Provider)

            ctx, cancel := signalContext()
            defer cancel()
            var out []string
            if raw {
                out = p.HostList(ctx)
            } else {
                for _, a := range p.SeedAddresses(ctx) { out = append(out, a.String()) }
            }
            return printList(cmd.OutOrStdout(), out, asJSON)
        },
    }
    zf.register(cmd)
    cmd.Flags().BoolVar(&raw, "raw", false, "print validated host:port strings without resolving them")
    cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

func printList(w io.Writer, list []string, asJSON bool) error {
    if asJSON {
        if list == nil { list = []string{} }
        return json.NewEncoder(w).Encode(list)
    }
    for _, s := range list {
        if _, err := fmt.Fprintln(w, s); err != nil { return err }
    }
    return nil
}

// NewRunCmd returns the "run" command used to start a gossip node whose
// seeds come from the selected discovery backend.
func NewRunCmd() *cobra.Command {
    var (
        zf                                           zkFlags
        tf                                           tlsFlags
        id, memBind, memAdv, mgmtAddr, kind, joinCSV string
        mgmtProto                                    string
        joinInterval                                 time.Duration
        traceEnable, jsonLogs                        bool
    )
    cmd := &cobra.Command{
        Use:   "run",
        Short: "Run a gossip node that joins seeds from ZooKeeper",
        RunE: func(cmd *cobra.Command, args []string) error {
            if id == "" { return fmt.Errorf("missing --id") }
            if jsonLogs { logutil.SetJSON(true) }
            ctx, cancel := signalContext()
            defer cancel()
            if shutdown := setupTracing(traceEnable); shutdown != nil {
                defer func() { _ = shutdown(context.Background()) }()
            }

            cfg := bootstrap.Config{
                NodeID:        id,
                MemBind:       memBind,
                MemAdv:        memAdv,
                MgmtAddr:      mgmtAddr,
                MgmtProto:     mgmtProto,
                DiscoveryKind: kind,
                SeedsCSV:      joinCSV,
                JoinInterval:  joinInterval,
                MgmtTLS:       tf.options(),
                Logger:        log.Default(),
            }
            zf.apply(&cfg)
            node, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            defer node.Close()

            fmt.Fprintln(cmd.OutOrStdout(), "node running. Press Ctrl+C to exit.")
            <-ctx.Done()
            return nil
        },
    }
    zf.register(cmd)
    tf.register(cmd)
    cmd.Flags().StringVar(&id, "id", "", "node id (required)")
    cmd.Flags().StringVar(&memBind, "mem-bind", ":7946", "membership bind addr (host:port)")
    cmd.Flags().StringVar(&memAdv, "mem-adv", "", "membership advertise addr (host:port, optional)")
    cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", ":17946", "management address; empty disables it")
    mgmtProtoFlag(cmd, &mgmtProto)
    cmd.Flags().StringVar(&kind, "discovery", bootstrap.KindZookeeper, "discovery backend: zookeeper|static")
    cmd.Flags().StringVar(&joinCSV, "join", "", "comma-separated seed nodes (host:port), used by discovery=static")
    cmd.Flags().DurationVar(&joinInterval, "join-interval", 10*time.Second, "delay between discovery rounds until joined")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    cmd.Flags().BoolVar(&jsonLogs, "log-json", false, "emit JSON log lines")
    return cmd
}

// NewSeedsCmd asks a running node to perform one discovery round.
func NewSeedsCmd() *cobra.Command {
    var (
        addr, proto string
        timeout     time.Duration
        asJSON      bool
        tf          tlsFlags
    )
    cmd := &cobra.Command{
        Use:   "seeds",
        Short: "Ask a running node for its current seed addresses",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            cli, release, err := tf.client(proto, timeout)
            if err != nil { return err }
            defer release()
            resp, err := cli.GetSeeds(ctx, addr)
            if err != nil { return fmt.Errorf("seeds error: %w", err) }
            return printList(cmd.OutOrStdout(), resp.Seeds, asJSON)
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17946", "management address of a node (host:port)")
    cmd.Flags().DurationVar(&timeout, "timeout", 35*time.Second, "request timeout (covers the ZooKeeper handshake)")
    cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array")
    mgmtProtoFlag(cmd, &proto)
    tf.register(cmd)
    return cmd
}

// NewMembersCmd prints the gossip view of a running node as JSON.
func NewMembersCmd() *cobra.Command {
    var (
        addr, proto string
        timeout     time.Duration
        tf          tlsFlags
    )
    cmd := &cobra.Command{
        Use:   "members",
        Short: "Fetch the membership view of a running node as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            cli, release, err := tf.client(proto, timeout)
            if err != nil { return err }
            defer release()
            resp, err := cli.GetMembers(ctx, addr)
            if err != nil { return fmt.Errorf("members error: %w", err) }
            enc := json.NewEncoder(cmd.OutOrStdout())
            enc.SetIndent("", "  ")
            return enc.Encode(resp)
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17946", "management address of a node (host:port)")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    mgmtProtoFlag(cmd, &proto)
    tf.register(cmd)
    return cmd
}

func setupTracing(enable bool) func(context.Context) error {
    if !enable { return nil }
    shutdown, err := tracing.Setup(true)
    if err != nil {
        log.Printf("tracing setup error: %v", err)
        return nil
    }
    return shutdown
}

func signalContext() (context.Context, context.CancelFunc) {
    return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
