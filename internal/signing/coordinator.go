// Package signing drives a node certificate signing request from submission
// to a signed certificate.
//
// The request lifecycle is init → submitted → approved → signed, with denied
// and timeout as distinguishable terminal failures. At most one live request
// per node name is permitted: submission deletes any record left behind by a
// prior run before creating a new one, so an aborted run never blocks the
// next one.
package signing

import (
	"context"
	"fmt"
	"time"

	certificatesv1 "k8s.io/api/certificates/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	"github.com/zicongmei/gke-byo-node/internal/keygen"
)

const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 10
)

// SigningDeniedError reports that the cluster rejected the signing request.
// The record is left in place so the operator can inspect the denial reason.
type SigningDeniedError struct {
	Node   string
	Reason string
}

func (e *SigningDeniedError) Error() string {
	return fmt.Sprintf("signing request for node %q was denied: %s", e.Node, e.Reason)
}

// SigningTimeoutError reports that the bounded poll loop exhausted its
// attempts without a certificate appearing.
type SigningTimeoutError struct {
	Node     string
	Attempts int
}

func (e *SigningTimeoutError) Error() string {
	return fmt.Sprintf("no signed certificate for node %q after %d attempts; inspect the signing request %q and its denial reason, if any",
		e.Node, e.Attempts, RequestName(e.Node))
}

// Coordinator submits, approves, and polls node signing requests.
type Coordinator struct {
	client      kubernetes.Interface
	interval    time.Duration
	maxAttempts int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPollInterval sets the delay between certificate polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// WithMaxAttempts sets the bounded number of certificate polls.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) { c.maxAttempts = n }
}

// NewCoordinator creates a Coordinator with a 1s poll interval and 10
// attempts unless overridden.
func NewCoordinator(client kubernetes.Interface, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:      client,
		interval:    defaultPollInterval,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestName returns the cluster-side name of the signing request for a
// node. The name keys the at-most-one-live-record invariant.
func RequestName(nodeName string) string {
	return "node-csr-" + nodeName
}

// Sign drives the full lifecycle for one node: stale-record cleanup,
// submission, approval, and the bounded poll for the signed certificate.
// It returns the PEM-encoded certificate.
func (c *Coordinator) Sign(ctx context.Context, nodeName string, csrPEM []byte) ([]byte, error) {
	req, err := c.submit(ctx, nodeName, csrPEM)
	if err != nil {
		return nil, err
	}

	if err := c.approve(ctx, nodeName, req); err != nil {
		return nil, err
	}

	return c.waitForCertificate(ctx, nodeName)
}

// submit deletes any record left by a prior run, then creates a fresh one.
func (c *Coordinator) submit(ctx context.Context, nodeName string, csrPEM []byte) (*certificatesv1.CertificateSigningRequest, error) {
	name := RequestName(nodeName)
	csrs := c.client.CertificatesV1().CertificateSigningRequests()

	err := csrs.Delete(ctx, name, metav1.DeleteOptions{})
	switch {
	case err == nil:
		klog.Infof("Deleted stale signing request %s from a previous run", name)
	case !apierrors.IsNotFound(err):
		return nil, fmt.Errorf("deleting stale signing request %s: %w", name, err)
	}

	req := &certificatesv1.CertificateSigningRequest{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec: certificatesv1.CertificateSigningRequestSpec{
			Request:    csrPEM,
			SignerName: certificatesv1.KubeAPIServerClientSignerName,
			Groups:     []string{keygen.NodeGroup},
			Usages: []certificatesv1.KeyUsage{
				certificatesv1.UsageKeyEncipherment,
				certificatesv1.UsageDataEncipherment,
				certificatesv1.UsageServerAuth,
				certificatesv1.UsageClientAuth,
			},
		},
	}

	created, err := csrs.Create(ctx, req, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating signing request %s: %w", name, err)
	}
	klog.Infof("Submitted signing request %s", name)

	return created, nil
}

// approve records an explicit, attributable approval condition on the
// request via the approval subresource.
func (c *Coordinator) approve(ctx context.Context, nodeName string, req *certificatesv1.CertificateSigningRequest) error {
	req.Status.Conditions = append(req.Status.Conditions, certificatesv1.CertificateSigningRequestCondition{
		Type:           certificatesv1.CertificateApproved,
		Status:         corev1.ConditionTrue,
		Reason:         "NodeEnrollment",
		Message:        fmt.Sprintf("approved by byonode enroll for node %s", nodeName),
		LastUpdateTime: metav1.Now(),
	})

	_, err := c.client.CertificatesV1().CertificateSigningRequests().UpdateApproval(ctx, req.Name, req, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("approving signing request %s: %w", req.Name, err)
	}
	klog.Infof("Approved signing request %s", req.Name)

	return nil
}

// waitForCertificate polls the request at a fixed interval for a bounded
// number of attempts. A denied condition is terminal and leaves the record
// in place for inspection.
func (c *Coordinator) waitForCertificate(ctx context.Context, nodeName string) ([]byte, error) {
	name := RequestName(nodeName)
	csrs := c.client.CertificatesV1().CertificateSigningRequests()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := csrs.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("reading signing request %s: %w", name, err)
		}

		for _, cond := range req.Status.Conditions {
			if cond.Type == certificatesv1.CertificateDenied {
				reason := cond.Reason
				if cond.Message != "" {
					reason = fmt.Sprintf("%s: %s", cond.Reason, cond.Message)
				}
				return nil, &SigningDeniedError{Node: nodeName, Reason: reason}
			}
		}

		if len(req.Status.Certificate) > 0 {
			klog.Infof("Signing request %s signed after %d poll(s)", name, attempt)
			return req.Status.Certificate, nil
		}

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for certificate for node %q: %w", nodeName, ctx.Err())
			case <-time.After(c.interval):
			}
		}
	}

	return nil, &SigningTimeoutError{Node: nodeName, Attempts: c.maxAttempts}
}
