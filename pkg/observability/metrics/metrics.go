package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    DiscoveryCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "discovery",
        Name:      "cycles_total",
        Help:      "Total discovery cycles by outcome (ok, empty, connect_failed, interrupted)",
    }, []string{"result"})

    DiscoveryCycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
        Namespace: "zkseeds",
        Subsystem: "discovery",
        Name:      "cycle_seconds",
        Help:      "Wall time of one discovery cycle, from dial to close",
        Buckets:   prometheus.DefBuckets,
    })

    SeedsResolved = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "zkseeds",
        Subsystem: "discovery",
        Name:      "seeds_resolved",
        Help:      "Number of seed addresses returned by the last discovery cycle",
    })

    ZnodesListed = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "discovery",
        Name:      "znodes_listed_total",
        Help:      "Total member znodes enumerated under the namespace path",
    })

    ZnodesRejected = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "discovery",
        Name:      "znodes_rejected_total",
        Help:      "Total member znodes skipped because their payload is not host:port",
    })

    ZKConnectFailures = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "zk",
        Name:      "connect_failures_total",
        Help:      "Total failed or timed-out ZooKeeper session handshakes",
    })

    ZKReadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "zk",
        Name:      "read_failures_total",
        Help:      "Total failed ZooKeeper reads by operation (children, data)",
    }, []string{"op"})

    GRPCConnDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "grpc_conn",
        Name:      "dials_total",
        Help:      "Total number of new gRPC management connections created",
    })
    GRPCConnReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "grpc_conn",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GRPCConnEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "grpc_conn",
        Name:      "evictions_total",
        Help:      "Total number of idle cached gRPC connections evicted",
    })
    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "zkseeds",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of cached gRPC connections",
    })

    MembershipMembers = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "zkseeds",
        Subsystem: "membership",
        Name:      "members_total",
        Help:      "Current number of known gossip members",
    })

    MembershipJoins = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "zkseeds",
        Subsystem: "membership",
        Name:      "join_total",
        Help:      "Join attempts against discovered seeds by result",
    }, []string{"result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(DiscoveryCycles)
        prometheus.MustRegister(DiscoveryCycleSeconds)
        prometheus.MustRegister(SeedsResolved)
        prometheus.MustRegister(ZnodesListed)
        prometheus.MustRegister(ZnodesRejected)
        prometheus.MustRegister(ZKConnectFailures)
        prometheus.MustRegister(ZKReadFailures)
        prometheus.MustRegister(GRPCConnDials)
        prometheus.MustRegister(GRPCConnReuse)
        prometheus.MustRegister(GRPCConnEvictions)
        prometheus.MustRegister(GRPCConnActive)
        prometheus.MustRegister(MembershipMembers)
        prometheus.MustRegister(MembershipJoins)
    })
}
