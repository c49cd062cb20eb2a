// Package security loads TLS settings for the web listener and backend calls.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ServerTLSConfig holds the web listener certificate.
type ServerTLSConfig struct {
	CertFile string // Server certificate file (PEM, may include the chain)
	KeyFile  string // Server private key file
}

// Enabled reports whether a certificate is configured.
func (c ServerTLSConfig) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != ""
}

// BackendTLSConfig controls how the marketplace API certificate is verified.
type BackendTLSConfig struct {
	CAFile string // Extra CA certificate for a privately signed backend
}

// LoadServerTLS loads the listener certificate.
func LoadServerTLS(cfg ServerTLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("both certificate and key files are required")
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadBackendTLS returns a client TLS configuration that trusts the system
// roots plus CAFile. A nil config means the defaults apply.
func LoadBackendTLS(cfg BackendTLSConfig) (*tls.Config, error) {
	if cfg.CAFile == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificate found in %s", cfg.CAFile)
	}
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}, nil
}

// BackendTransport clones the default transport with the backend TLS
// settings applied.
func BackendTransport(cfg BackendTLSConfig) (http.RoundTripper, error) {
	tlsCfg, err := LoadBackendTLS(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}
	return transport, nil
}
