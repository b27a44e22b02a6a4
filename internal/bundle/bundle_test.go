package bundle

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zicongmei/gke-byo-node/internal/config"
)

func validBundle() *Bundle {
	return &Bundle{
		NodeName:     "ubuntu-worker-01",
		APIServerURL: "https://10.0.0.1:6443",
		CABundle:     []byte("ca-pem"),
		PrivateKey:   []byte("key-pem"),
		Certificate:  []byte("cert-pem"),
		DNSAddress:   "10.96.0.10",
		Versions: config.Versions{
			Kubernetes: "1.28.0",
			Containerd: "1.7.22",
			CNIPlugins: "1.5.1",
		},
	}
}

func TestBundle_Command(t *testing.T) {
	t.Parallel()

	cmd := validBundle().Command()

	assert.True(t, strings.HasPrefix(cmd, "byonode provision "))
	assert.Contains(t, cmd, "--node-name=ubuntu-worker-01")
	assert.Contains(t, cmd, "--api-server=https://10.0.0.1:6443")
	assert.Contains(t, cmd, "--dns-address=10.96.0.10")
	assert.Contains(t, cmd, "--kubernetes-version=1.28.0")
	assert.Contains(t, cmd, "--containerd-version=1.7.22")
	assert.Contains(t, cmd, "--cni-version=1.5.1")

	// A single line, ready to paste.
	assert.NotContains(t, cmd, "\n")
}

func TestBundle_Command_BinaryValuesRoundTrip(t *testing.T) {
	t.Parallel()

	b := validBundle()
	b.CABundle = []byte("multi\nline\nca bundle")
	cmd := b.Command()

	for _, field := range []struct {
		flag string
		want []byte
	}{
		{"--ca-cert=", b.CABundle},
		{"--node-key=", b.PrivateKey},
		{"--node-cert=", b.Certificate},
	} {
		value := flagValue(t, cmd, field.flag)
		decoded, err := base64.StdEncoding.DecodeString(value)
		require.NoError(t, err, "%s must carry valid base64", field.flag)
		assert.Equal(t, field.want, decoded)
	}
}

func TestBundle_Command_QuotesUnsafeValues(t *testing.T) {
	t.Parallel()

	b := validBundle()
	b.APIServerURL = "https://host:6443/path with space"
	cmd := b.Command()

	assert.Contains(t, cmd, "--api-server='https://host:6443/path with space'")
}

func TestBundle_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validBundle().Validate())

	tests := []struct {
		name   string
		mutate func(*Bundle)
		want   string
	}{
		{"node name", func(b *Bundle) { b.NodeName = "" }, "node name"},
		{"api server", func(b *Bundle) { b.APIServerURL = "" }, "API server"},
		{"ca bundle", func(b *Bundle) { b.CABundle = nil }, "CA bundle"},
		{"private key", func(b *Bundle) { b.PrivateKey = nil }, "private key"},
		{"certificate", func(b *Bundle) { b.Certificate = nil }, "certificate"},
		{"dns address", func(b *Bundle) { b.DNSAddress = "" }, "DNS address"},
		{"kubernetes version", func(b *Bundle) { b.Versions.Kubernetes = "" }, "kubernetes version"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := validBundle()
			tt.mutate(b)
			err := b.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// flagValue extracts the value of a --flag= from the rendered command.
func flagValue(t *testing.T, cmd, flag string) string {
	t.Helper()
	for _, arg := range strings.Fields(cmd) {
		if strings.HasPrefix(arg, flag) {
			return strings.TrimPrefix(arg, flag)
		}
	}
	t.Fatalf("flag %s not found in %q", flag, cmd)
	return ""
}
