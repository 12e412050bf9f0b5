// Package vsphere verifies that the virtualization endpoint a session runs
// against is reachable and that the supplied credentials log in, before any
// external invocation is attempted.
package vsphere

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"
)

// Endpoint identifies the virtualization management endpoint of a session.
// Host accepts a bare hostname or a full SDK URL.
type Endpoint struct {
	Host          string
	Username      string
	Password      string
	ValidateCerts bool
}

// Probe logs in to the endpoint once and returns a short description of the
// product answering there.
func Probe(ctx context.Context, ep Endpoint) (string, error) {
	u, err := soap.ParseURL(ep.Host)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint %q: %w", ep.Host, err)
	}
	u.User = url.UserPassword(ep.Username, ep.Password)

	client, err := govmomi.NewClient(ctx, u, !ep.ValidateCerts)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %q: %w", u.Host, err)
	}
	defer func() {
		if err := client.Logout(ctx); err != nil {
			zap.S().Named("preflight").Debugw("logout failed", "error", err)
		}
	}()

	about := client.ServiceContent.About
	return fmt.Sprintf("%s (API %s)", about.FullName, about.ApiVersion), nil
}

// WaitForEndpoint retries Probe with exponential backoff until the endpoint
// answers or the timeout elapses.
func WaitForEndpoint(ctx context.Context, ep Endpoint, timeout time.Duration) (string, error) {
	operation := func() (string, error) {
		return Probe(ctx, ep)
	}
	notify := func(err error, next time.Duration) {
		zap.S().Named("preflight").Infow("endpoint not ready, retrying", "error", err, "next", next)
	}

	about, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return "", fmt.Errorf("endpoint %q did not become ready within %s: %w", ep.Host, timeout, err)
	}
	return about, nil
}
