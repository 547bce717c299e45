package zookeeper

import (
    "context"
    "errors"
    "testing"
    "time"
)

func TestDial_WaitsForSession(t *testing.T) {
    ens := newEnsemble().put("/es", "n1", "10.0.0.5:9305")
    l, _ := testLogger()
    c, err := Dial(context.Background(), "zk1:2181, zk2:2181", DialOptions{Dialer: ens.dialer(true), Logger: l, ConnectTimeout: 2 * time.Second})
    if err != nil { t.Fatalf("dial: %v", err) }
    defer c.Close()
    if !c.Connected() { t.Fatalf("expected connected client") }
    if len(ens.servers) != 2 || ens.servers[0] != "zk1:2181" || ens.servers[1] != "zk2:2181" {
        t.Fatalf("unexpected servers: %#v", ens.servers)
    }
    if got := c.Children(context.Background(), "/es"); len(got) != 1 || got[0] != "n1" {
        t.Fatalf("children: %#v", got)
    }
    if got, ok := c.Data(context.Background(), "/es/n1"); !ok || string(got) != "10.0.0.5:9305" {
        t.Fatalf("data: %q ok=%v", got, ok)
    }
}

func TestDial_AddsDefaultPort(t *testing.T) {
    ens := newEnsemble()
    c, err := Dial(context.Background(), "zk1", DialOptions{Dialer: ens.dialer(true), ConnectTimeout: 2 * time.Second})
    if err != nil { t.Fatalf("dial: %v", err) }
    defer c.Close()
    if len(ens.servers) != 1 || ens.servers[0] != "zk1:2181" {
        t.Fatalf("unexpected servers: %#v", ens.servers)
    }
}

func TestDial_TimeoutIsBounded(t *testing.T) {
    ens := newEnsemble()
    l, logs := testLogger()
    start := time.Now()
    c, err := Dial(context.Background(), "zk1:2181", DialOptions{Dialer: ens.dialer(false), Logger: l, ConnectTimeout: 50 * time.Millisecond})
    if !errors.Is(err, ErrConnectTimeout) || !errors.Is(err, ErrConnect) {
        t.Fatalf("expected timeout error, got %v", err)
    }
    if elapsed := time.Since(start); elapsed > 2*time.Second {
        t.Fatalf("dial did not honor timeout: %s", elapsed)
    }
    if c == nil || c.Connected() { t.Fatalf("expected unusable, non-nil client") }
    if got := c.Children(context.Background(), "/es"); len(got) != 0 {
        t.Fatalf("reads on unusable client must be empty, got %#v", got)
    }
    if got, ok := c.Data(context.Background(), "/es/n1"); ok || len(got) != 0 {
        t.Fatalf("reads on unusable client must fail empty, got %q ok=%v", got, ok)
    }
    c.Close()
    c.Close()
    if n := ens.closeCount(); n != 1 {
        t.Fatalf("close count = %d, want 1", n)
    }
    if logs.count("timed out") == 0 {
        t.Fatalf("expected timeout diagnostic, got %q", logs.String())
    }
}

func TestDial_ContextCancel(t *testing.T) {
    ens := newEnsemble()
    ctx, cancel := context.WithCancel(context.Background())
    go func() { time.Sleep(20 * time.Millisecond); cancel() }()
    c, err := Dial(ctx, "zk1:2181", DialOptions{Dialer: ens.dialer(false), ConnectTimeout: time.Minute})
    if !errors.Is(err, ErrConnect) { t.Fatalf("expected connect error, got %v", err) }
    c.Close()
    if n := ens.closeCount(); n != 1 { t.Fatalf("close count = %d, want 1", n) }
}

func TestDial_DialerErrorAndEmptyEndpoint(t *testing.T) {
    c, err := Dial(context.Background(), "zk1:2181", DialOptions{Dialer: failingDialer(errBoom)})
    if !errors.Is(err, ErrConnect) { t.Fatalf("expected ErrConnect, got %v", err) }
    c.Close() // must not panic with a nil conn

    c, err = Dial(context.Background(), " , ", DialOptions{Dialer: failingDialer(errBoom)})
    if !errors.Is(err, ErrConnect) { t.Fatalf("expected ErrConnect for empty endpoint, got %v", err) }
    c.Close()
}

func TestClient_ReadErrorsAreEmpty(t *testing.T) {
    ens := newEnsemble().put("/es", "n1", "10.0.0.5:9305")
    ens.getErr["/es/n1"] = errBoom
    l, logs := testLogger()
    c, err := Dial(context.Background(), "zk1:2181", DialOptions{Dialer: ens.dialer(true), Logger: l, ConnectTimeout: 2 * time.Second})
    if err != nil { t.Fatalf("dial: %v", err) }
    defer c.Close()
    if got := c.Children(context.Background(), "/missing"); got != nil {
        t.Fatalf("expected nil children, got %#v", got)
    }
    if got, ok := c.Data(context.Background(), "/es/n1"); ok || got != nil {
        t.Fatalf("expected failed read, got %q ok=%v", got, ok)
    }
    if got, ok := c.Data(context.Background(), "/es/absent"); ok || got != nil {
        t.Fatalf("expected failed read for absent node, got %q ok=%v", got, ok)
    }
    if logs.count("zookeeper: children /missing") != 1 || logs.count("zookeeper: data /es/n1") != 1 {
        t.Fatalf("expected one diagnostic per failed read, got %q", logs.String())
    }
}

func TestClient_ReadInterruptedByContext(t *testing.T) {
    ens := newEnsemble().put("/es", "n1", "10.0.0.5:9305")
    c, err := Dial(context.Background(), "zk1:2181", DialOptions{Dialer: ens.dialer(true), ConnectTimeout: 2 * time.Second})
    if err != nil { t.Fatalf("dial: %v", err) }
    defer c.Close()

    ens.block = make(chan struct{})
    defer close(ens.block)
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
    defer cancel()
    done := make(chan []string, 1)
    go func() { done <- c.Children(ctx, "/es") }()
    select {
    case got := <-done:
        if len(got) != 0 { t.Fatalf("expected empty result, got %#v", got) }
    case <-time.After(2 * time.Second):
        t.Fatalf("read did not return after cancellation")
    }
}
