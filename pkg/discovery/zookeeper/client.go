package zookeeper

import (
    "context"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/go-zookeeper/zk"

    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/zkseeds/pkg/observability/metrics"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
)

// Conn is the subset of *zk.Conn used for discovery reads.
type Conn interface {
    Children(path string) ([]string, *zk.Stat, error)
    Exists(path string) (bool, *zk.Stat, error)
    Get(path string) ([]byte, *zk.Stat, error)
    Close()
}

// Dialer opens a session against servers. onEvent must be invoked for every
// session event; the connection may still be handshaking when Dialer returns.
type Dialer func(servers []string, sessionTimeout time.Duration, onEvent zk.EventCallback, logger zk.Logger) (Conn, error)

// DefaultDialer connects with the go-zookeeper client.
func DefaultDialer(servers []string, sessionTimeout time.Duration, onEvent zk.EventCallback, logger zk.Logger) (Conn, error) {
    conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithEventCallback(onEvent), zk.WithLogger(logger))
    if err != nil {
        return nil, err
    }
    return conn, nil
}

// DialOptions tunes Dial. Zero values take the package defaults.
type DialOptions struct {
    ConnectTimeout time.Duration
    SessionTimeout time.Duration
    Dialer         Dialer
    Logger         *log.Logger
}

// Client owns one ZooKeeper session for the duration of a discovery cycle.
// Reads never fail: errors are logged and surface as empty results.
type Client struct {
    conn      Conn
    connected bool
    logger    *log.Logger
    closeOnce sync.Once
}

// Dial connects to endpoint (comma-separated host:port list) and blocks until
// the session is established, the connect timeout elapses or ctx is done.
// The returned Client is never nil; when err != nil it is unusable but must
// still be closed.
func Dial(ctx context.Context, endpoint string, opts DialOptions) (*Client, error) {
    if opts.ConnectTimeout <= 0 { opts.ConnectTimeout = DefaultConnectTimeout }
    if opts.SessionTimeout <= 0 { opts.SessionTimeout = DefaultSessionTimeout }
    if opts.Dialer == nil { opts.Dialer = DefaultDialer }
    c := &Client{logger: opts.Logger}

    ctx, end := tracing.StartSpan(ctx, "zookeeper.dial", "quorum", endpoint)
    defer end()

    servers := SplitServers(endpoint)
    if len(servers) == 0 {
        return c, c.connectFailed(fmt.Errorf("%w: empty endpoint", ErrConnect))
    }

    ready := make(chan struct{})
    var signal sync.Once
    onEvent := func(ev zk.Event) {
        if ev.State == zk.StateHasSession {
            signal.Do(func() { close(ready) })
        }
    }
    conn, err := opts.Dialer(zk.FormatServers(servers), opts.SessionTimeout, onEvent, logutil.ZK(opts.Logger))
    if err != nil {
        return c, c.connectFailed(fmt.Errorf("%w: %v", ErrConnect, err))
    }
    c.conn = conn

    timer := time.NewTimer(opts.ConnectTimeout)
    defer timer.Stop()
    select {
    case <-ready:
        c.connected = true
        return c, nil
    case <-timer.C:
        return c, c.connectFailed(fmt.Errorf("%w after %s (quorum %s)", ErrConnectTimeout, opts.ConnectTimeout, endpoint))
    case <-ctx.Done():
        return c, c.connectFailed(fmt.Errorf("%w: %v", ErrConnect, ctx.Err()))
    }
}

func (c *Client) connectFailed(err error) error {
    obsmetrics.ZKConnectFailures.Inc()
    logutil.Warnf(c.logger, "%v", err)
    return err
}

// Connected reports whether the session handshake completed.
func (c *Client) Connected() bool { return c.connected }

// Children lists the child names of path, in the order the server returns them.
func (c *Client) Children(ctx context.Context, path string) []string {
    if !c.connected {
        c.readFailed("children", path, ErrNotConnected)
        return nil
    }
    children, err := call(ctx, func() ([]string, error) {
        list, _, err := c.conn.Children(path)
        return list, err
    })
    if err != nil {
        c.readFailed("children", path, err)
        return nil
    }
    return children
}

// Data returns the payload stored at path. ok is false when the read failed;
// an existing znode with no payload yields (nil, true).
func (c *Client) Data(ctx context.Context, path string) (data []byte, ok bool) {
    if !c.connected {
        c.readFailed("data", path, ErrNotConnected)
        return nil, false
    }
    data, err := call(ctx, func() ([]byte, error) {
        exists, _, err := c.conn.Exists(path)
        if err != nil { return nil, err }
        if !exists { return nil, zk.ErrNoNode }
        b, _, err := c.conn.Get(path)
        return b, err
    })
    if err != nil {
        c.readFailed("data", path, err)
        return nil, false
    }
    return data, true
}

func (c *Client) readFailed(op, path string, err error) {
    obsmetrics.ZKReadFailures.WithLabelValues(op).Inc()
    logutil.Warnf(c.logger, "zookeeper: %s %s: %v", op, path, err)
}

// Close releases the session. It is safe to call more than once and on a
// client whose Dial failed.
func (c *Client) Close() {
    c.closeOnce.Do(func() {
        if c.conn == nil { return }
        defer func() {
            if r := recover(); r != nil {
                logutil.Warnf(c.logger, "zookeeper: failed to close session: %v", r)
            }
        }()
        c.conn.Close()
    })
}

// call runs fn on its own goroutine so a cancelled ctx unblocks the caller.
// An abandoned fn finishes on the library's request timeout.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
    var zero T
    if err := ctx.Err(); err != nil {
        return zero, err
    }
    type result struct {
        v   T
        err error
    }
    ch := make(chan result, 1)
    go func() {
        v, err := fn()
        ch <- result{v: v, err: err}
    }()
    select {
    case r := <-ch:
        return r.v, r.err
    case <-ctx.Done():
        return zero, ctx.Err()
    }
}
