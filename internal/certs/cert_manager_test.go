package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writePair(t *testing.T, notAfter time.Time) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    notAfter.Add(-365 * 24 * time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestCheck(t *testing.T) {
	now := time.Now()

	certFile, keyFile := writePair(t, now.Add(90*24*time.Hour))
	core, logs := observer.New(zap.WarnLevel)
	cm := NewCertManager(certFile, keyFile, zap.New(core))
	require.NoError(t, cm.Check(now))
	assert.Zero(t, logs.Len())

	cfg, err := cm.TLSConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)

	certFile, keyFile = writePair(t, now.Add(5*24*time.Hour))
	cm = NewCertManager(certFile, keyFile, zap.New(core))
	require.NoError(t, cm.Check(now))
	assert.Equal(t, 1, logs.FilterMessage("certificate expires soon").Len())

	certFile, keyFile = writePair(t, now.Add(-time.Hour))
	cm = NewCertManager(certFile, keyFile, nil)
	assert.ErrorIs(t, cm.Check(now), ErrExpired)
}

func TestLoadCertificate_Bad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(file, []byte("nope"), 0o600))
	_, err := NewCertManager(file, "", nil).LoadCertificate()
	assert.Error(t, err)

	_, err = NewCertManager(filepath.Join(t.TempDir(), "none.pem"), "", nil).LoadCertificate()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
