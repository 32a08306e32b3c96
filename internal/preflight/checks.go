package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"pixelmint/internal/identity"
	"pixelmint/internal/services"
)

const serviceCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckIdentity verifies that a signing key is loaded.
func CheckIdentity(provider identity.Provider) Result {
	const name = "Identity"
	if provider == nil || !provider.IsAuthorized() {
		return Result{Name: name, Detail: "no key found; run 'pixelmint identity init'"}
	}
	signer, err := provider.Signer()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: signer.Address()}
}

// CheckService runs a backend health check with a single attempt.
func CheckService(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	if errors.Is(err, services.ErrUnauthorized) {
		return "credentials rejected: " + err.Error()
	}
	return err.Error()
}
