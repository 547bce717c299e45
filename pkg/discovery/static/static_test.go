package static

import (
    "context"
    "net/netip"
    "testing"
)

func TestParse(t *testing.T) {
    cases := []struct{
        in   string
        want []string
    }{
        {"", nil},
        {"a:1", []string{"a:1"}},
        {" a:1 , b:2 ", []string{"a:1","b:2"}},
        {",,a:1, ,b:2,", []string{"a:1","b:2"}},
    }
    for _, c := range cases {
        got := Parse(c.in)
        if len(got) != len(c.want) {
            t.Fatalf("len mismatch for %q: got %d want %d", c.in, len(got), len(c.want))
        }
        for i := range got {
            if got[i] != c.want[i] {
                t.Fatalf("[%q] item %d: got %q want %q", c.in, i, got[i], c.want[i])
            }
        }
    }
}

func TestSeedsCopyAndResolve(t *testing.T) {
    d := New(" 10.0.0.5:9305 ", "", "10.0.0.6:9400", "10.0.0.5:9305")
    got := d.Seeds()
    if len(got) != 3 || got[0] != "10.0.0.5:9305" || got[1] != "10.0.0.6:9400" {
        t.Fatalf("unexpected seeds: %#v", got)
    }
    got[0] = "x"
    if d.Seeds()[0] != "10.0.0.5:9305" {
        t.Fatalf("expected defensive copy")
    }
    addrs := d.SeedAddresses(context.Background())
    if len(addrs) != 2 || addrs[0].String() != "10.0.0.5:9305" || addrs[1].String() != "10.0.0.6:9400" {
        t.Fatalf("unexpected addresses: %#v", addrs)
    }
}

type recordingResolver struct{ got []string }

func (r *recordingResolver) ResolveHosts(_ context.Context, hosts []string) []netip.AddrPort {
    r.got = append([]string(nil), hosts...)
    return []netip.AddrPort{netip.MustParseAddrPort("192.0.2.10:9300")}
}

func TestWithResolver(t *testing.T) {
    r := &recordingResolver{}
    d := New("es-1.internal:9300").WithResolver(r)
    addrs := d.SeedAddresses(context.Background())
    if len(r.got) != 1 || r.got[0] != "es-1.internal:9300" {
        t.Fatalf("resolver saw %#v", r.got)
    }
    if len(addrs) != 1 || addrs[0].String() != "192.0.2.10:9300" {
        t.Fatalf("unexpected addresses: %#v", addrs)
    }
}
