package metrics

import (
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
    Register()
    Register()

    before := testutil.ToFloat64(DiscoveryCycles.WithLabelValues("empty"))
    DiscoveryCycles.WithLabelValues("empty").Inc()
    if got := testutil.ToFloat64(DiscoveryCycles.WithLabelValues("empty")); got != before+1 {
        t.Fatalf("expected counter to advance by one, got %v -> %v", before, got)
    }

    mfs, err := prometheus.DefaultGatherer.Gather()
    if err != nil { t.Fatalf("gather: %v", err) }
    found := false
    for _, mf := range mfs {
        if mf.GetName() == "zkseeds_discovery_cycles_total" { found = true }
    }
    if !found { t.Fatalf("discovery cycles counter not registered") }
}
