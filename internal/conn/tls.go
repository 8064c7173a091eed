package conn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
)

func wrapTLS(raw net.Conn, host string, cfg Config) (net.Conn, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
	}

	serverName := strings.TrimSpace(cfg.TLS.ServerName)
	if serverName == "" {
		serverName = host
	}
	tlsCfg.ServerName = serverName

	if caPath := strings.TrimSpace(cfg.TLS.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("conn: read tls ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			_ = raw.Close()
			return nil, fmt.Errorf("conn: parse tls ca bundle: %s", caPath)
		}
		tlsCfg.RootCAs = pool
	}

	tlsConn := tls.Client(raw, tlsCfg)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("conn: tls handshake: %w", err)
	}
	return tlsConn, nil
}
