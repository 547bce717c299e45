package zookeeper

import (
    "bytes"
    "errors"
    "log"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/go-zookeeper/zk"
)

// fakeEnsemble is an in-memory namespace served through the Conn interface.
type fakeEnsemble struct {
    mu          sync.Mutex
    data        map[string][]byte
    order       map[string][]string
    childrenErr error
    getErr      map[string]error
    block       chan struct{}
    closes      int
    servers     []string
    listed      []string
}

func newEnsemble() *fakeEnsemble {
    return &fakeEnsemble{data: map[string][]byte{}, order: map[string][]string{}, getErr: map[string]error{}}
}

// put registers child under parent with payload.
func (f *fakeEnsemble) put(parent, child, payload string) *fakeEnsemble {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.order[parent] = append(f.order[parent], child)
    f.data[childPath(parent, child)] = []byte(payload)
    return f
}

func (f *fakeEnsemble) wait() {
    if f.block != nil { <-f.block }
}

func (f *fakeEnsemble) Children(path string) ([]string, *zk.Stat, error) {
    f.wait()
    f.mu.Lock()
    defer f.mu.Unlock()
    f.listed = append(f.listed, path)
    // Same rule as the real client: only the root may end in a slash.
    if len(path) > 1 && strings.HasSuffix(path, "/") { return nil, nil, zk.ErrInvalidPath }
    if f.childrenErr != nil { return nil, nil, f.childrenErr }
    list, ok := f.order[path]
    if !ok { return nil, nil, zk.ErrNoNode }
    return append([]string(nil), list...), &zk.Stat{NumChildren: int32(len(list))}, nil
}

func (f *fakeEnsemble) Exists(path string) (bool, *zk.Stat, error) {
    f.wait()
    f.mu.Lock()
    defer f.mu.Unlock()
    _, ok := f.data[path]
    return ok, &zk.Stat{}, nil
}

func (f *fakeEnsemble) Get(path string) ([]byte, *zk.Stat, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if err := f.getErr[path]; err != nil { return nil, nil, err }
    b, ok := f.data[path]
    if !ok { return nil, nil, zk.ErrNoNode }
    return b, &zk.Stat{DataLength: int32(len(b))}, nil
}

func (f *fakeEnsemble) Close() {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.closes++
}

func (f *fakeEnsemble) closeCount() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.closes
}

// dialer returns a Dialer serving f. When ready is false the session event
// never fires, simulating an ensemble that accepts TCP but never handshakes.
func (f *fakeEnsemble) dialer(ready bool) Dialer {
    return func(servers []string, sessionTimeout time.Duration, onEvent zk.EventCallback, logger zk.Logger) (Conn, error) {
        f.mu.Lock()
        f.servers = append([]string(nil), servers...)
        f.mu.Unlock()
        go func() {
            onEvent(zk.Event{Type: zk.EventSession, State: zk.StateConnecting})
            if ready {
                onEvent(zk.Event{Type: zk.EventSession, State: zk.StateConnected})
                onEvent(zk.Event{Type: zk.EventSession, State: zk.StateHasSession})
                // duplicates must not close the readiness signal twice
                onEvent(zk.Event{Type: zk.EventSession, State: zk.StateHasSession})
            }
        }()
        return f, nil
    }
}

func failingDialer(err error) Dialer {
    return func([]string, time.Duration, zk.EventCallback, zk.Logger) (Conn, error) { return nil, err }
}

var errBoom = errors.New("boom")

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
    mu  sync.Mutex
    buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
    b.mu.Lock()
    defer b.mu.Unlock()
    return b.buf.String()
}

func (b *syncBuffer) count(substr string) int {
    n := 0
    for _, line := range strings.Split(b.String(), "\n") {
        if strings.Contains(line, substr) { n++ }
    }
    return n
}

func testLogger() (*log.Logger, *syncBuffer) {
    b := &syncBuffer{}
    return log.New(b, "", 0), b
}

func sorted(in []string) []string {
    out := append([]string(nil), in...)
    sort.Strings(out)
    return out
}
