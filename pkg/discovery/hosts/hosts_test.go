package hosts

import (
    "context"
    "errors"
    "net/netip"
    "testing"
)

type fakeLookup map[string][]netip.Addr

func (f fakeLookup) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
    if ips, ok := f[host]; ok { return ips, nil }
    return nil, errors.New("no such host")
}

func TestLiteralPassthroughAndOrder(t *testing.T) {
    r := New(Options{Resolver: fakeLookup{}})
    got := Strings(r.ResolveHosts(context.Background(), []string{"10.0.0.6:9400", "10.0.0.5:9305"}))
    want := []string{"10.0.0.6:9400", "10.0.0.5:9305"}
    if len(got) != len(want) {
        t.Fatalf("len mismatch: got %#v want %#v", got, want)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("item %d: got %q want %q", i, got[i], want[i])
        }
    }
}

func TestHostnameLookupAndDedup(t *testing.T) {
    lk := fakeLookup{
        "es-1.example": {netip.MustParseAddr("10.0.0.5"), netip.MustParseAddr("10.0.0.7")},
    }
    r := New(Options{Resolver: lk})
    got := Strings(r.ResolveHosts(context.Background(), []string{"es-1.example:9300", "10.0.0.5:9300", "es-1.example:9300"}))
    want := []string{"10.0.0.5:9300", "10.0.0.7:9300"}
    if len(got) != len(want) {
        t.Fatalf("unexpected: %#v", got)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("item %d: got %q want %q", i, got[i], want[i])
        }
    }
}

func TestUnresolvableAndInvalidDropped(t *testing.T) {
    r := New(Options{Resolver: fakeLookup{}})
    got := r.ResolveHosts(context.Background(), []string{"missing.example:9300", "no-port", "h:99999", "127.0.0.1:9300"})
    if len(got) != 1 || got[0].String() != "127.0.0.1:9300" {
        t.Fatalf("unexpected: %#v", got)
    }
}

func TestEmptyInput(t *testing.T) {
    r := New(Options{})
    if got := r.ResolveHosts(context.Background(), nil); len(got) != 0 {
        t.Fatalf("expected empty, got %#v", got)
    }
}
