package grpc

import (
    "context"
    "crypto/tls"
    "log"
    "net"
    "sync"
    "time"

    "google.golang.org/grpc"
    "google.golang.org/grpc/codes"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/health"
    healthpb "google.golang.org/grpc/health/grpc_health_v1"
    "google.golang.org/grpc/keepalive"
    "google.golang.org/grpc/status"

    "github.com/amirimatin/zkseeds/pkg/internal/logutil"
    "github.com/amirimatin/zkseeds/pkg/observability/tracing"
    "github.com/amirimatin/zkseeds/pkg/transport"
)

// ServiceName is the gRPC service of the management API. The health service
// reports its status under the same name.
const ServiceName = "zkseeds.v1.Management"

// Server implements transport.RPCServer over gRPC.
type Server struct {
    bind   string
    logger *log.Logger
    tlsCfg *tls.Config

    mu     sync.Mutex
    srv    *grpc.Server
    health *health.Server
    addr   string
}

// NewServer binds to the given TCP address (e.g., ":17946").
func NewServer(bind string, logger *log.Logger) *Server {
    return &Server{bind: bind, logger: logutil.OrDefault(logger)}
}

// UseTLS enables TLS for the gRPC server; nil keeps it plaintext. Call before Start.
func (s *Server) UseTLS(cfg *tls.Config) *Server { s.tlsCfg = cfg; return s }

// request/response types carried by the JSON codec
type empty struct{}

type managementServer interface {
    GetSeeds(ctx context.Context, in *empty) (*transport.SeedsResponse, error)
    GetMembers(ctx context.Context, in *empty) (*transport.MembersResponse, error)
}

type mgmtImpl struct{ h transport.Handlers }

func (m *mgmtImpl) GetSeeds(ctx context.Context, _ *empty) (*transport.SeedsResponse, error) {
    if m.h.Seeds == nil { return nil, status.Error(codes.Unimplemented, "seeds not supported") }
    ctx, end := tracing.StartSpan(ctx, "grpc.seeds")
    defer end()
    seeds := m.h.Seeds(ctx)
    if seeds == nil { seeds = []string{} }
    return &transport.SeedsResponse{Backend: m.h.Backend, Seeds: seeds}, nil
}

func (m *mgmtImpl) GetMembers(ctx context.Context, _ *empty) (*transport.MembersResponse, error) {
    if m.h.Members == nil { return nil, status.Error(codes.Unimplemented, "members not supported") }
    _, end := tracing.StartSpan(ctx, "grpc.members")
    defer end()
    out := m.h.Members()
    return &out, nil
}

// Service descriptor and handlers (hand-written, no codegen required)
var _Management_serviceDesc = grpc.ServiceDesc{
    ServiceName: ServiceName,
    HandlerType: (*managementServer)(nil),
    Methods: []grpc.MethodDesc{
        {MethodName: "GetSeeds", Handler: _Management_GetSeeds_Handler},
        {MethodName: "GetMembers", Handler: _Management_GetMembers_Handler},
    },
}

func _Management_GetSeeds_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(empty)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(managementServer).GetSeeds(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetSeeds"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(managementServer).GetSeeds(ctx, req.(*empty))
    }
    return interceptor(ctx, in, info, handler)
}

func _Management_GetMembers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
    in := new(empty)
    if err := dec(in); err != nil { return nil, err }
    if interceptor == nil { return srv.(managementServer).GetMembers(ctx, in) }
    info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetMembers"}
    handler := func(ctx context.Context, req interface{}) (interface{}, error) {
        return srv.(managementServer).GetMembers(ctx, req.(*empty))
    }
    return interceptor(ctx, in, info, handler)
}

// Start listens and serves in the background until ctx is done or Stop.
func (s *Server) Start(ctx context.Context, h transport.Handlers) error {
    lis, err := net.Listen("tcp", s.bind)
    if err != nil { return err }
    opts := []grpc.ServerOption{
        grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: 5 * time.Second, PermitWithoutStream: true}),
        grpc.KeepaliveParams(keepalive.ServerParameters{Time: 30 * time.Second, Timeout: 10 * time.Second}),
    }
    if s.tlsCfg != nil { opts = append(opts, grpc.Creds(credentials.NewTLS(s.tlsCfg))) }
    srv := grpc.NewServer(opts...)
    // Health is plain protobuf so standard health checkers can use it.
    hs := health.NewServer()
    hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
    healthpb.RegisterHealthServer(srv, hs)
    srv.RegisterService(&_Management_serviceDesc, &mgmtImpl{h: h})

    s.mu.Lock()
    s.srv = srv
    s.health = hs
    s.addr = lis.Addr().String()
    s.mu.Unlock()

    go func() {
        <-ctx.Done()
        _ = s.Stop(context.Background())
    }()
    go func() {
        if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
            logutil.Errorf(s.logger, "grpc: server error: %v", err)
        }
    }()
    return nil
}

// Addr returns the listening address once started, else the bind address.
func (s *Server) Addr() string {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.addr != "" { return s.addr }
    return s.bind
}

// Stop marks the service NOT_SERVING and stops gracefully, forcing the stop
// after two seconds or when ctx is done.
func (s *Server) Stop(ctx context.Context) error {
    s.mu.Lock()
    srv, hs := s.srv, s.health
    s.srv, s.health = nil, nil
    s.mu.Unlock()
    if srv == nil { return nil }
    hs.Shutdown()
    ch := make(chan struct{})
    go func() { srv.GracefulStop(); close(ch) }()
    select {
    case <-ch:
    case <-ctx.Done():
        srv.Stop()
    case <-time.After(2 * time.Second):
        srv.Stop()
    }
    return nil
}

var _ transport.RPCServer = (*Server)(nil)
