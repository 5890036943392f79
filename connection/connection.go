// Package connection opens the TLS gRPC channel shared by every gateway call
// to one peer endpoint.
package connection

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"

	"xdao.co/zkverify/model"
)

// Endpoint identifies a gateway peer.
//
// HostnameOverride is the name checked against the peer's TLS certificate;
// it may differ from the host in Address.
type Endpoint struct {
	Address          string
	TLSRootCert      []byte
	HostnameOverride string
}

// LoadEndpoint reads the TLS root certificate at tlsCertPath.
func LoadEndpoint(address, tlsCertPath, hostnameOverride string) (Endpoint, error) {
	if strings.TrimSpace(address) == "" {
		return Endpoint{}, model.ConnectionError("load endpoint", "peer address is required", nil)
	}
	b, err := os.ReadFile(tlsCertPath)
	if err != nil {
		return Endpoint{}, model.ConnectionError("load endpoint", "read TLS root certificate "+tlsCertPath, err)
	}
	return Endpoint{Address: address, TLSRootCert: b, HostnameOverride: hostnameOverride}, nil
}

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// ClientCert and ClientKey are PEM blocks presented for mutual TLS.
	// Both or neither must be set.
	ClientCert []byte
	ClientKey  []byte
}

// Channel is a long-lived client connection. It is created once and shared;
// callers must not open a second channel to the same endpoint.
type Channel struct {
	cc   *grpc.ClientConn
	once sync.Once
	err  error
}

// Dial builds TLS transport credentials for ep and creates the client
// connection. The connection is established lazily by the first RPC.
func Dial(ep Endpoint, opts DialOptions) (*Channel, error) {
	creds, err := transportCredentials(ep, opts)
	if err != nil {
		return nil, err
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	cc, err := grpc.NewClient(ep.Address, dialOpts...)
	if err != nil {
		return nil, model.ConnectionError("dial", ep.Address, err)
	}
	return &Channel{cc: cc}, nil
}

// Wrap adopts an existing client connection.
func Wrap(cc *grpc.ClientConn) *Channel {
	return &Channel{cc: cc}
}

func transportCredentials(ep Endpoint, opts DialOptions) (credentials.TransportCredentials, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ep.TLSRootCert) {
		return nil, model.ConnectionError("dial", "no PEM certificate in TLS root certificate", nil)
	}
	cfg := &tls.Config{
		RootCAs:    pool,
		ServerName: ep.HostnameOverride,
		MinVersion: tls.VersionTLS12,
	}
	if len(opts.ClientCert) > 0 || len(opts.ClientKey) > 0 {
		pair, err := tls.X509KeyPair(opts.ClientCert, opts.ClientKey)
		if err != nil {
			return nil, model.ConnectionError("dial", "load client TLS key pair", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return credentials.NewTLS(cfg), nil
}

// Conn returns the underlying connection for gateway clients.
func (c *Channel) Conn() *grpc.ClientConn {
	if c == nil {
		return nil
	}
	return c.cc
}

// Close releases the connection. It is safe to call more than once.
func (c *Channel) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	c.once.Do(func() { c.err = c.cc.Close() })
	return c.err
}

// Closed reports whether the connection has been shut down.
func (c *Channel) Closed() bool {
	if c == nil || c.cc == nil {
		return true
	}
	return c.cc.GetState() == connectivity.Shutdown
}
