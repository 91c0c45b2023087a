package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ledgerdesk/aegis/internal/core/fault"
)

// GRPCProber checks a gRPC endpoint through the standard health
// service.
type GRPCProber struct {
	key     string
	service string
	conn    *grpc.ClientConn
}

// NewGRPCProber creates a gRPC prober for target. TLS is enabled for
// https:// targets and :443 ports.
func NewGRPCProber(key, target, service string) (*GRPCProber, error) {
	var opts []grpc.DialOption
	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client for %s: %w", target, err)
	}

	return &GRPCProber{key: key, service: service, conn: conn}, nil
}

func (p *GRPCProber) Key() string { return p.key }

func (p *GRPCProber) Check(ctx context.Context) (any, error) {
	resp, err := grpc_health_v1.NewHealthClient(p.conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{
		Service: p.service,
	})
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", p.key, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return nil, &fault.StatusError{
			Code:   http.StatusServiceUnavailable,
			Status: resp.GetStatus().String(),
		}
	}
	return resp.GetStatus().String(), nil
}

func (p *GRPCProber) Close() error {
	return p.conn.Close()
}
