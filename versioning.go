package mastodon

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/blang/semver"

	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

// Servers report versions such as "4.2.1", "4.2.1+glitch", "4.3.0-beta.1" or, for
// compatible implementations, "3.5.3 (compatible; Pleroma 2.4.0)". Only the leading
// major.minor[.patch] is compared.
var versionPattern = regexp.MustCompile(`^\s*v?(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the comparable Mastodon version from a server version string.
func ParseVersion(s string) (semver.Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return semver.Version{}, fmt.Errorf("unrecognised server version %q", s)
	}
	major, _ := strconv.ParseUint(m[1], 10, 64)
	minor, _ := strconv.ParseUint(m[2], 10, 64)
	var patch uint64
	if m[3] != "" {
		patch, _ = strconv.ParseUint(m[3], 10, 64)
	}
	return semver.Version{Major: major, Minor: minor, Patch: patch}, nil
}

// VersionAtLeast reports whether the connected server is at least version. The server version
// is discovered first if needed.
func (c *Client) VersionAtLeast(ctx context.Context, version string) (bool, error) {
	server, err := c.ServerVersion(ctx)
	if err != nil {
		return false, err
	}
	have, err := ParseVersion(server)
	if err != nil {
		return false, err
	}
	want, err := ParseVersion(version)
	if err != nil {
		return false, err
	}
	return have.GTE(want), nil
}

// ServerVersion returns the version string reported by the server, discovering it if needed.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	if v, ok := c.conn.Version(); ok {
		return v, nil
	}
	return c.conn.Initialize(ctx, c.discoverVersion)
}

// requireVersion guards an endpoint: created is the version that introduced it, changed the
// version that last changed its behaviour (empty when it never did). Which one applies depends
// on the configured VersionCheckMode.
func (c *Client) requireVersion(ctx context.Context, endpoint, created, changed string) error {
	required := created
	switch c.config.VersionCheckMode {
	case VersionCheckNone:
		return nil
	case VersionCheckChanged:
		if changed != "" {
			required = changed
		}
	}

	server, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}
	have, err := ParseVersion(server)
	if err != nil {
		// Unknown version formats are not held against the caller.
		c.logger.WarnContext(ctx, "cannot compare server version", "version", server, "error", err)
		return nil
	}
	want, err := ParseVersion(required)
	if err != nil {
		return err
	}
	if have.LT(want) {
		return &pkgerrs.VersionError{Endpoint: endpoint, Required: required, Actual: server}
	}
	return nil
}
