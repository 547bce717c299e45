package httpjson

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"

    "github.com/amirimatin/zkseeds/pkg/transport"
)

// Client is a thin HTTP client for the management API with simple retry and
// backoff.
type Client struct {
    httpc  *http.Client
    scheme string
}

// NewClient constructs a new Client with the given timeout.
func NewClient(timeout time.Duration) *Client {
    if timeout <= 0 { timeout = 3 * time.Second }
    return &Client{httpc: &http.Client{Timeout: timeout}, scheme: "http"}
}

// UseTLS switches the client to https with the given config; nil is a no-op.
func (c *Client) UseTLS(cfg *tls.Config) *Client {
    if cfg == nil { return c }
    c.httpc.Transport = &http.Transport{TLSClientConfig: cfg}
    c.scheme = "https"
    return c
}

// GetSeeds asks the node at addr to run one discovery round.
func (c *Client) GetSeeds(ctx context.Context, addr string) (transport.SeedsResponse, error) {
    var out transport.SeedsResponse
    err := c.getJSON(ctx, addr, "/seeds", &out)
    return out, err
}

// GetMembers fetches the gossip view of the node at addr.
func (c *Client) GetMembers(ctx context.Context, addr string) (transport.MembersResponse, error) {
    var out transport.MembersResponse
    err := c.getJSON(ctx, addr, "/members", &out)
    return out, err
}

func (c *Client) getJSON(ctx context.Context, addr, path string, out any) error {
    url := fmt.Sprintf("%s://%s%s", c.scheme, addr, path)
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
        if err != nil { return err }
        resp, err := c.httpc.Do(req)
        if err != nil {
            lastErr = err
        } else {
            lastErr = func() error {
                defer resp.Body.Close()
                b, _ := io.ReadAll(resp.Body)
                if resp.StatusCode != http.StatusOK {
                    return fmt.Errorf("%s status %d: %s", path, resp.StatusCode, string(b))
                }
                return json.Unmarshal(b, out)
            }()
            if lastErr == nil { return nil }
        }
        // backoff unless context is done
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
        }
    }
    return lastErr
}

var _ transport.RPCClient = (*Client)(nil)
