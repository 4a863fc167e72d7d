package mastodon

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	pkgerrs "github.com/jamesprial/go-mastodon-api-wrapper/pkg/errors"
)

// Credentials are the secrets needed to act as a logged in user of an application.
type Credentials struct {
	AccessToken  string
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Credentials returns the client's current credentials.
func (c *Client) Credentials() Credentials {
	return Credentials{
		AccessToken:  c.AccessToken(),
		BaseURL:      c.config.BaseURL,
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
	}
}

// Apply copies the credentials into config. Empty fields leave config unchanged.
func (cr Credentials) Apply(config *Config) {
	if cr.AccessToken != "" {
		config.AccessToken = cr.AccessToken
	}
	if cr.BaseURL != "" {
		config.BaseURL = cr.BaseURL
	}
	if cr.ClientID != "" {
		config.ClientID = cr.ClientID
	}
	if cr.ClientSecret != "" {
		config.ClientSecret = cr.ClientSecret
	}
}

// WriteCredentials stores cr in path as four lines: access token, base URL, client id and
// client secret. The file is only readable by its owner.
func WriteCredentials(path string, cr Credentials) error {
	for _, v := range []string{cr.AccessToken, cr.BaseURL, cr.ClientID, cr.ClientSecret} {
		if strings.ContainsAny(v, "\r\n") {
			return &pkgerrs.IllegalArgumentError{Field: "credentials", Message: "values cannot contain line breaks"}
		}
	}
	data := strings.Join([]string{cr.AccessToken, cr.BaseURL, cr.ClientID, cr.ClientSecret}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// ReadCredentials reads a file written by WriteCredentials. Missing trailing lines are left
// empty, so a file holding only a token and a base URL is accepted.
func ReadCredentials(path string) (Credentials, error) {
	f, err := os.Open(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && len(lines) < 4 {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	if len(lines) == 0 || lines[0] == "" {
		return Credentials{}, &pkgerrs.ConfigError{Field: "AccessToken", Message: fmt.Sprintf("%s holds no access token", path)}
	}
	for len(lines) < 4 {
		lines = append(lines, "")
	}
	return Credentials{
		AccessToken:  lines[0],
		BaseURL:      lines[1],
		ClientID:     lines[2],
		ClientSecret: lines[3],
	}, nil
}
