package grpc

import (
    "context"
    "crypto/tls"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/backoff"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/credentials/insecure"
    healthpb "google.golang.org/grpc/health/grpc_health_v1"
    "google.golang.org/grpc/keepalive"

    "github.com/amirimatin/zkseeds/pkg/transport"
)

// Client calls the management service of other nodes. Connections are
// cached per address; Close releases them.
type Client struct {
    timeout time.Duration
    tlsCfg  *tls.Config

    mu sync.Mutex
    cm *ConnManager
}

// NewClient constructs a new Client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    return &Client{timeout: timeout}
}

// UseTLS sets TLS config for the client; nil keeps it plaintext. Call before
// the first request.
func (c *Client) UseTLS(cfg *tls.Config) *Client { c.tlsCfg = cfg; return c }

func (c *Client) dial(target string) (*grpc.ClientConn, error) {
    opts := []grpc.DialOption{
        grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig, MinConnectTimeout: 500 * time.Millisecond}),
        grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 20 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
    }
    if c.tlsCfg != nil {
        opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(c.tlsCfg)))
    } else {
        opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
    }
    return grpc.NewClient(target, opts...)
}

// GetSeeds asks the node at addr to run one discovery round.
func (c *Client) GetSeeds(ctx context.Context, addr string) (transport.SeedsResponse, error) {
    var out transport.SeedsResponse
    err := c.invoke(ctx, addr, "GetSeeds", &out)
    return out, err
}

// GetMembers fetches the gossip view of the node at addr.
func (c *Client) GetMembers(ctx context.Context, addr string) (transport.MembersResponse, error) {
    var out transport.MembersResponse
    err := c.invoke(ctx, addr, "GetMembers", &out)
    return out, err
}

// Health queries the standard gRPC health service for the management service.
func (c *Client) Health(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.getConn(cctx, addr)
    if err != nil { return healthpb.HealthCheckResponse_UNKNOWN, err }
    defer rel()
    resp, err := healthpb.NewHealthClient(cc).Check(cctx, &healthpb.HealthCheckRequest{Service: ServiceName})
    if err != nil { return healthpb.HealthCheckResponse_UNKNOWN, err }
    return resp.GetStatus(), nil
}

func (c *Client) invoke(ctx context.Context, addr, method string, out any) error {
    cctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    cc, rel, err := c.getConn(cctx, addr)
    if err != nil { return err }
    defer rel()
    return cc.Invoke(cctx, "/"+ServiceName+"/"+method, &empty{}, out, grpc.CallContentSubtype(codecName))
}

// getConn returns a managed connection, creating the manager on first use.
func (c *Client) getConn(ctx context.Context, addr string) (*grpc.ClientConn, func(), error) {
    c.mu.Lock()
    if c.cm == nil { c.cm = NewConnManager(30*time.Second, c.dial) }
    cm := c.cm
    c.mu.Unlock()
    return cm.Get(ctx, addr)
}

// Close releases cached connections.
func (c *Client) Close() error {
    c.mu.Lock()
    cm := c.cm
    c.cm = nil
    c.mu.Unlock()
    if cm != nil { cm.Close() }
    return nil
}

var _ transport.RPCClient = (*Client)(nil)
