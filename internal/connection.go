package internal

import (
	"context"
	"sync"
)

// ConnectionManager caches the outcome of the client's server discovery, the detected server
// version. Concurrent callers are serialised; a successful discovery is kept until Reset, a
// failed one is retried by the next caller.
type ConnectionManager struct {
	mu      sync.Mutex
	done    bool
	version string
	err     error
}

// NewConnectionManager creates a new ConnectionManager instance ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{}
}

// Initialize runs discover unless an earlier call succeeded, and returns the version.
func (cm *ConnectionManager) Initialize(ctx context.Context, discover func(context.Context) (string, error)) (string, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.done {
		return cm.version, nil
	}
	version, err := discover(ctx)
	if err != nil {
		cm.err = err
		return "", err
	}
	cm.version, cm.err, cm.done = version, nil, true
	return version, nil
}

// Set records a version known in advance, skipping discovery.
func (cm *ConnectionManager) Set(version string) {
	cm.mu.Lock()
	cm.version, cm.err, cm.done = version, nil, true
	cm.mu.Unlock()
}

// Version returns the discovered version, if discovery has succeeded.
func (cm *ConnectionManager) Version() (string, bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.version, cm.done
}

// Error returns the error of the last failed discovery, without triggering one.
func (cm *ConnectionManager) Error() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.err
}

// IsInitialized reports whether discovery has succeeded.
func (cm *ConnectionManager) IsInitialized() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.done
}

// Reset forgets the discovered version so the next Initialize runs discovery again.
func (cm *ConnectionManager) Reset() {
	cm.mu.Lock()
	cm.version, cm.err, cm.done = "", nil, false
	cm.mu.Unlock()
}
