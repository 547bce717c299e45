package main

import (
    "context"
    "flag"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/amirimatin/zkseeds/pkg/bootstrap"
    base "github.com/amirimatin/zkseeds/pkg/membership"
)

// seedwatch runs a bare gossip node fed by ZooKeeper seeds and prints every
// membership event it observes.
func main() {
    var (
        id        = flag.String("id", "node-1", "node id")
        bind      = flag.String("bind", ":7946", "bind host:port")
        advertise = flag.String("advertise", "", "advertise host:port (optional)")
        configDir = flag.String("config-dir", "", "node config dir with discovery-zookeeper settings")
        quorum    = flag.String("quorum", "", "comma-separated ZooKeeper endpoints")
        parent    = flag.String("znode-parent", "", "namespace path of member znodes")
        interval  = flag.Duration("interval", 10*time.Second, "delay between discovery rounds")
    )
    flag.Parse()

    ctx, cancel := signalContext()
    defer cancel()

    node, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID:        *id,
        MemBind:       *bind,
        MemAdv:        *advertise,
        DiscoveryKind: bootstrap.KindZookeeper,
        ZKConfigDir:   *configDir,
        ZKQuorum:      *quorum,
        ZKZnodeParent: *parent,
        JoinInterval:  *interval,
        Logger:        log.Default(),
    })
    if err != nil { log.Fatal(err) }
    defer node.Close()

    fmt.Println("seedwatch started. Press Ctrl+C to exit.")
    go func(evch <-chan base.Event) {
        for e := range evch {
            fmt.Printf("event: %-6s id=%s addr=%s at=%s\n", e.Type, e.Member.ID, e.Member.Addr, e.At.Format(time.RFC3339))
        }
    }(node.Membership.Events())
    go func() {
        if err := <-node.Joined(); err != nil {
            log.Printf("join stopped: %v", err)
        }
    }()

    <-ctx.Done()
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
