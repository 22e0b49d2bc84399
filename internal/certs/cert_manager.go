// Package certs loads the server TLS certificate and warns before it expires.
package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// RenewWindow is how early Check starts warning about expiry.
const RenewWindow = 30 * 24 * time.Hour

var ErrExpired = errors.New("certificate expired")

// CertManager manages the certificate and key pair the server listens with.
type CertManager struct {
	certFile string
	keyFile  string
	log      *zap.Logger
}

func NewCertManager(certFile, keyFile string, log *zap.Logger) *CertManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &CertManager{certFile: certFile, keyFile: keyFile, log: log.Named("certs")}
}

// LoadCertificate parses the first PEM block of the certificate file.
func (cm *CertManager) LoadCertificate() (*x509.Certificate, error) {
	data, err := os.ReadFile(cm.certFile)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return x509.ParseCertificate(block.Bytes)
}

// IsExpired checks if a certificate is expired at now.
func IsExpired(cert *x509.Certificate, now time.Time) bool {
	return cert.NotAfter.Before(now)
}

// Check fails on an expired certificate and logs a warning when it expires
// within RenewWindow.
func (cm *CertManager) Check(now time.Time) error {
	cert, err := cm.LoadCertificate()
	if err != nil {
		return fmt.Errorf("load certificate %s: %w", cm.certFile, err)
	}
	if IsExpired(cert, now) {
		return fmt.Errorf("%w on %s", ErrExpired, cert.NotAfter.Format(time.RFC3339))
	}
	if left := cert.NotAfter.Sub(now); left < RenewWindow {
		cm.log.Warn("certificate expires soon",
			zap.String("file", cm.certFile),
			zap.Time("not_after", cert.NotAfter),
			zap.Duration("left", left))
	}
	return nil
}

// TLSConfig returns a server config for the key pair.
func (cm *CertManager) TLSConfig() (*tls.Config, error) {
	pair, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
