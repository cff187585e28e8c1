package nats

import (
	"context"
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

	"github.com/farelProject/v-technology/internal/config"
	"github.com/farelProject/v-technology/pkg/logger"
)

func writeCA(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "vtech-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return path
}

func TestNewConfig(t *testing.T) {
	cfg := &config.Config{
		NATSURL:    "nats://events:4222",
		NATSCAFile: "/etc/nats/ca.pem",
		NATSToken:  "s3cret",
	}

	got := NewConfig(cfg, APIClientName)
	assert.Equal(t, "nats://events:4222", got.URL)
	assert.Equal(t, "vtech-api", got.Name)
	assert.Equal(t, "/etc/nats/ca.pem", got.CAFile)
	assert.Equal(t, "s3cret", got.Token)
	assert.Zero(t, got.Timeout)
}

func TestTLSConfig(t *testing.T) {
	ca := writeCA(t)

	tests := []struct {
		name    string
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{"plain connection", Config{}, true, false},
		{"server verification only", Config{CAFile: ca}, false, false},
		{"cert without CA", Config{CertFile: "c.pem", KeyFile: "k.pem"}, false, true},
		{"cert without key", Config{CAFile: ca, CertFile: "c.pem"}, false, true},
		{"missing CA file", Config{CAFile: filepath.Join(t.TempDir(), "none.pem")}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := tlsConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, tc)
				return
			}
			require.NotNil(t, tc)
			assert.NotNil(t, tc.RootCAs)
			assert.Empty(t, tc.Certificates)
		})
	}
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{Name: CLIClientName}, logger.NewNop())
	assert.Error(t, err)
}
