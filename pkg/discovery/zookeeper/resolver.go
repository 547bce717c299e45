package zookeeper

import (
    "context"
    "log"
    "regexp"
    "strings"
    "unicode/utf8"

    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
)

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9.-]+:[0-9]+$`)

// ValidAddress reports whether s is a "hostname-or-ip:port" pair as stored in
// member znodes.
func ValidAddress(s string) bool { return addressPattern.MatchString(s) }

// Reader is the read side of a coordination session. *Client implements it.
type Reader interface {
    Children(ctx context.Context, path string) []string
    Data(ctx context.Context, path string) ([]byte, bool)
}

// MemberStats counts the outcome of one namespace walk. Unreadable children
// failed to load; Rejected ones loaded but held a malformed payload.
type MemberStats struct {
    Listed     int
    Accepted   int
    Rejected   int
    Unreadable int
}

// MemberResolver walks a namespace path and returns the advertised member
// addresses. One pass, no retries.
type MemberResolver struct {
    r      Reader
    logger *log.Logger
}

func NewMemberResolver(r Reader, logger *log.Logger) *MemberResolver {
    return &MemberResolver{r: r, logger: logger}
}

// ResolveMembers returns the valid addresses under parent in enumeration
// order. Malformed entries are logged and skipped. A failed enumeration or a
// cancelled ctx yields an empty result.
func (m *MemberResolver) ResolveMembers(ctx context.Context, parent string) ([]string, MemberStats) {
    ctx, end := tracing.StartSpan(ctx, "zookeeper.resolve_members", "znode_parent", parent)
    defer end()

    var st MemberStats
    children := m.r.Children(ctx, parent)
    st.Listed = len(children)
    out := make([]string, 0, len(children))
    for _, child := range children {
        data, ok := m.r.Data(ctx, childPath(parent, child))
        if err := ctx.Err(); err != nil {
            logutil.Warnf(m.logger, "zookeeper: member walk of %s interrupted: %v", parent, err)
            return nil, MemberStats{Listed: st.Listed}
        }
        if !ok {
            // already logged by the reader
            st.Unreadable++
            continue
        }
        if !utf8.Valid(data) {
            st.Rejected++
            logutil.Warnf(m.logger, "zookeeper: data in znode(%s) is not valid UTF-8, data: %q", child, data)
            continue
        }
        host := string(data)
        if !ValidAddress(host) {
            st.Rejected++
            logutil.Warnf(m.logger, "zookeeper: data in znode(%s) is not a valid 'hostname:transport_tcp_port' pair, data: %q", child, host)
            continue
        }
        logutil.Infof(m.logger, "zookeeper: found %s in znode(%s)", host, child)
        out = append(out, host)
        st.Accepted++
    }
    return out, st
}

func childPath(parent, child string) string {
    return strings.TrimRight(parent, "/") + "/" + child
}
