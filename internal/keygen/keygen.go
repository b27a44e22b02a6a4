// Package keygen generates the node's client key pair and certificate
// signing request.
//
// The CSR subject identifies the node to the cluster's authorization layer:
// common name system:node:<name>, organization system:nodes. The private key
// exists only in process memory until it is handed off in the enrollment
// bundle; it is never sent to the cluster.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
)

const rsaKeySize = 2048

const (
	// NodeUserPrefix prefixes the certificate common name so the cluster maps
	// the identity to a single node.
	NodeUserPrefix = "system:node:"

	// NodeGroup is the minimal node-scoped permission group.
	NodeGroup = "system:nodes"
)

// CredentialRequest holds a freshly generated key pair and the matching
// signing request, both PEM-encoded.
type CredentialRequest struct {
	// PrivateKeyPEM is the RSA private key in PKCS#1 PEM format.
	PrivateKeyPEM []byte

	// CSRPEM is the PEM-encoded certificate signing request.
	CSRPEM []byte
}

// KeyGenError reports a key generation failure. Fatal; fresh key material is
// generated on the next run.
type KeyGenError struct {
	Err error
}

func (e *KeyGenError) Error() string { return fmt.Sprintf("generating node key: %v", e.Err) }
func (e *KeyGenError) Unwrap() error { return e.Err }

// CSRBuildError reports a signing request encoding failure.
type CSRBuildError struct {
	Err error
}

func (e *CSRBuildError) Error() string { return fmt.Sprintf("building signing request: %v", e.Err) }
func (e *CSRBuildError) Unwrap() error { return e.Err }

// NewNodeCredentialRequest generates a 2048-bit RSA key pair and a signing
// request whose subject encodes the given node name.
func NewNodeCredentialRequest(nodeName string) (*CredentialRequest, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
	if err != nil {
		return nil, &KeyGenError{Err: err}
	}
	if err := key.Validate(); err != nil {
		return nil, &KeyGenError{Err: err}
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName:   NodeUserPrefix + nodeName,
			Organization: []string{NodeGroup},
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, key)
	if err != nil {
		return nil, &CSRBuildError{Err: err}
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	csrPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: csrDER,
	})

	return &CredentialRequest{PrivateKeyPEM: keyPEM, CSRPEM: csrPEM}, nil
}
