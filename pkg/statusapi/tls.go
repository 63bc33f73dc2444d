package statusapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/caddyserver/certmagic"

	"rfbterm/internal/logging"
)

// TLSConfig selects how StartTLS obtains a certificate for the status
// endpoint. This is a small diagnostic endpoint, not a public web server,
// so self-signed-by-default is the common case and automatic ACME is the
// only other one worth carrying.
type TLSConfig struct {
	Domain     string // non-empty: obtain a certificate via certmagic/ACME
	SelfSigned bool   // true, or Domain empty: generate a self-signed cert
}

// StartTLS serves the same handler as Start, but over TLS on addr.
func (s *Server) StartTLS(addr string, cfg TLSConfig) error {
	tlsConfig, err := setupTLS(cfg)
	if err != nil {
		return fmt.Errorf("statusapi: tls setup: %w", err)
	}

	srv := &http.Server{
		Addr:      addr,
		Handler:   s.createHandler(),
		TLSConfig: tlsConfig,
	}

	logging.Infof("statusapi: listening on %s (tls)", addr)
	return srv.ListenAndServeTLS("", "")
}

func setupTLS(cfg TLSConfig) (*tls.Config, error) {
	if cfg.Domain != "" && !cfg.SelfSigned {
		return setupCertMagicTLS(cfg.Domain)
	}
	return setupSelfSignedTLS()
}

func setupSelfSignedTLS() (*tls.Config, error) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, fmt.Errorf("generating self-signed certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   "localhost",
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func setupCertMagicTLS(domain string) (*tls.Config, error) {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = "admin@" + domain
	certmagic.Default.Storage = &certmagic.FileStorage{
		Path: filepath.Join("/tmp", "rfbterm-certs"),
	}
	if err := certmagic.ManageSync(context.Background(), []string{domain}); err != nil {
		return nil, fmt.Errorf("obtaining certificate for %s: %w", domain, err)
	}
	return certmagic.TLS([]string{domain})
}

func generateSelfSignedCert() (tls.Certificate, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating private key: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"rfbterm"}},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating certificate: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshalling private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return tls.X509KeyPair(certPEM, keyPEM)
}
