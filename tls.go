package ahttp

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// tlsConfigFor builds the *tls.Config for r's target, or nil if the
// URI scheme does not call for TLS (spec.md §4.1 "handshake()...
// otherwise completes immediately with success"). Verification honors
// AlwaysVerifyPeer, VerifyPath/VerifyFilename, and a client
// certificate/private key when SSLAuth is set and both files are
// supplied (spec.md §4.1), generalizing
// dqx0-protocols/httpx/transport.go's SNI/ALPN defaulting.
func tlsConfigFor(r *Request) (*tls.Config, error) {
	if r.URI.Scheme != "https" {
		return nil, nil
	}
	cfg := &tls.Config{
		ServerName: r.URI.Hostname(),
		NextProtos: []string{"http/1.1"},
	}
	if !r.AlwaysVerifyPeer {
		cfg.InsecureSkipVerify = true
	}
	if r.VerifyPath != "" || r.VerifyFilename != "" {
		pool, err := loadVerifyPool(r.VerifyPath, r.VerifyFilename)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if r.SSLAuth && r.CertificateFile != "" && r.PrivateKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(r.CertificateFile, r.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("ahttp: loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// loadVerifyPool loads CA certificates from either a single bundle
// file (VerifyFilename) or every regular file in a directory
// (VerifyPath), whatever its extension; directory files that hold no
// PEM certificates are skipped. This mirrors OpenSSL's SSL_CTX_load_verify_locations
// taking either a file or a directory argument.
func loadVerifyPool(dir, file string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if file != "" {
		pem, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("ahttp: reading verify file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ahttp: no certificates found in %s", file)
		}
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("ahttp: reading verify path: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			pem, err := os.ReadFile(dir + string(os.PathSeparator) + e.Name())
			if err != nil {
				continue
			}
			pool.AppendCertsFromPEM(pem)
		}
	}
	return pool, nil
}
