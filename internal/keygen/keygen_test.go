package keygen

import (
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeCredentialRequest(t *testing.T) {
	t.Parallel()

	req, err := NewNodeCredentialRequest("worker-01")
	require.NoError(t, err)
	require.NotNil(t, req)

	keyBlock, rest := pem.Decode(req.PrivateKeyPEM)
	require.NotNil(t, keyBlock, "private key must be PEM encoded")
	assert.Empty(t, rest)
	assert.Equal(t, "RSA PRIVATE KEY", keyBlock.Type)

	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, key.N.BitLen(), 2048)

	csrBlock, rest := pem.Decode(req.CSRPEM)
	require.NotNil(t, csrBlock, "CSR must be PEM encoded")
	assert.Empty(t, rest)
	assert.Equal(t, "CERTIFICATE REQUEST", csrBlock.Type)

	csr, err := x509.ParseCertificateRequest(csrBlock.Bytes)
	require.NoError(t, err)
	require.NoError(t, csr.CheckSignature())

	assert.Equal(t, "system:node:worker-01", csr.Subject.CommonName)
	assert.Equal(t, []string{"system:nodes"}, csr.Subject.Organization)
}

func TestNewNodeCredentialRequest_FreshPerRun(t *testing.T) {
	t.Parallel()

	a, err := NewNodeCredentialRequest("worker-01")
	require.NoError(t, err)
	b, err := NewNodeCredentialRequest("worker-01")
	require.NoError(t, err)

	assert.NotEqual(t, a.PrivateKeyPEM, b.PrivateKeyPEM, "key material must be generated fresh per run")
}
