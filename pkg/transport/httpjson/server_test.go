package httpjson

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/amirimatin/zkseeds/pkg/membership"
    "github.com/amirimatin/zkseeds/pkg/transport"
)

func TestServerClientRoundTrip(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    s := NewServer("127.0.0.1:0", nil)
    err := s.Start(ctx, transport.Handlers{
        Backend: "zookeeper",
        Seeds:   func(context.Context) []string { return []string{"10.0.0.5:9305", "10.0.0.6:9400"} },
        Members: func() transport.MembersResponse {
            return transport.MembersResponse{Local: membership.MemberInfo{ID: "n1", Addr: "10.0.0.5:7946"}, Health: 0}
        },
    })
    if err != nil { t.Fatalf("start: %v", err) }
    defer s.Stop(context.Background())

    cli := NewClient(time.Second)
    seeds, err := cli.GetSeeds(ctx, s.Addr())
    if err != nil { t.Fatalf("seeds: %v", err) }
    if seeds.Backend != "zookeeper" || len(seeds.Seeds) != 2 || seeds.Seeds[1] != "10.0.0.6:9400" {
        t.Fatalf("unexpected seeds: %+v", seeds)
    }
    members, err := cli.GetMembers(ctx, s.Addr())
    if err != nil { t.Fatalf("members: %v", err) }
    if members.Local.ID != "n1" {
        t.Fatalf("unexpected members: %+v", members)
    }
}

func TestHandlerEndpoints(t *testing.T) {
    h := NewServer(":0", nil).Handler(transport.Handlers{Seeds: func(context.Context) []string { return nil }})

    rec := httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
        t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
    }

    rec = httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/seeds", nil))
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"seeds":[]`) {
        t.Fatalf("empty seeds must encode as []: %d %q", rec.Code, rec.Body.String())
    }

    rec = httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/seeds", nil))
    if rec.Code != http.StatusMethodNotAllowed {
        t.Fatalf("expected 405, got %d", rec.Code)
    }

    rec = httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members", nil))
    if rec.Code != http.StatusNotImplemented {
        t.Fatalf("expected 501, got %d", rec.Code)
    }

    rec = httptest.NewRecorder()
    h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    if rec.Code != http.StatusOK {
        t.Fatalf("metrics: %d", rec.Code)
    }
}
