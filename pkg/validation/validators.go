package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
)

// Regular expressions for validating Mastodon data formats
var (
	// usernameRegex matches local usernames (letters, digits and underscores, dots and dashes inside)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+(?:[A-Za-z0-9_.-]*[A-Za-z0-9_])?$`)

	// acctRegex matches an account handle, optionally with a leading @ and a domain
	// Format: user or user@example.social
	acctRegex = regexp.MustCompile(`^@?[A-Za-z0-9_]+(?:[A-Za-z0-9_.-]*[A-Za-z0-9_])?(?:@[A-Za-z0-9.-]+\.[A-Za-z]{2,})?$`)

	// hashtagRegex matches a hashtag name without the leading #
	hashtagRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}_\x{00B7}\x{200C}]+$`)

	// digitsRegex matches names made only of digits, which are not hashtags
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)
)

var (
	visibilities = map[string]bool{"public": true, "unlisted": true, "private": true, "direct": true}

	notificationTypes = map[string]bool{
		"mention": true, "status": true, "reblog": true, "follow": true, "follow_request": true,
		"favourite": true, "poll": true, "update": true, "admin.sign_up": true, "admin.report": true,
		"severed_relationships": true, "moderation_warning": true,
	}

	mediaTypes = map[string]bool{"unknown": true, "image": true, "gifv": true, "video": true, "audio": true}
)

// mastodonEpoch is the earliest creation time an object can have.
var mastodonEpoch = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// IsValidID checks if a string can be used as an object id in a request path
func IsValidID(s string) bool {
	return strings.TrimSpace(s) != "" && !strings.ContainsAny(s, "/?# \t\r\n")
}

// IsValidUsername checks if a string is a valid local username
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidAcct checks if a string is a valid account handle
func IsValidAcct(s string) bool {
	return acctRegex.MatchString(s)
}

// IsValidHashtag checks if a string is a hashtag name, given without the leading #
func IsValidHashtag(s string) bool {
	return hashtagRegex.MatchString(s) && !digitsRegex.MatchString(s)
}

// IsValidVisibility checks a status visibility. The empty string selects the account default.
func IsValidVisibility(s string) bool {
	return s == "" || visibilities[s]
}

// IsKnownNotificationType reports whether a notification type is one the server documents
func IsKnownNotificationType(s string) bool {
	return notificationTypes[s]
}

// validateCreated checks a creation timestamp. A missing timestamp is not checked.
func validateCreated(created time.Time) error {
	if created.IsZero() {
		return nil
	}
	// One hour grace period for clock skew
	if created.After(time.Now().Add(time.Hour)) {
		return fmt.Errorf("CreatedAt is in the future: %s", created.Format(time.RFC3339))
	}
	if created.Before(mastodonEpoch) {
		return fmt.Errorf("CreatedAt is before Mastodon existed: %s", created.Format(time.RFC3339))
	}
	return nil
}

// ValidateAccount validates an Account's fields
func ValidateAccount(a types.Account) error {
	if a.Entity == nil {
		return fmt.Errorf("account is nil")
	}

	var errs []error

	if id := string(a.ID()); id == "" {
		errs = append(errs, fmt.Errorf("ID is required"))
	} else if !IsValidID(id) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %s", id))
	}

	if a.Username() != "" && !IsValidUsername(a.Username()) {
		errs = append(errs, fmt.Errorf("Username has invalid format: %s", a.Username()))
	}

	if a.Acct() == "" {
		errs = append(errs, fmt.Errorf("Acct is required"))
	} else if !IsValidAcct(a.Acct()) {
		errs = append(errs, fmt.Errorf("Acct has invalid format: %s", a.Acct()))
	}

	if err := validateCreated(a.CreatedAt()); err != nil {
		errs = append(errs, err)
	}

	if a.FollowersCount() < 0 {
		errs = append(errs, fmt.Errorf("FollowersCount cannot be negative, got %d", a.FollowersCount()))
	}
	if a.FollowingCount() < 0 {
		errs = append(errs, fmt.Errorf("FollowingCount cannot be negative, got %d", a.FollowingCount()))
	}
	if a.StatusesCount() < 0 {
		errs = append(errs, fmt.Errorf("StatusesCount cannot be negative, got %d", a.StatusesCount()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("account validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateStatus validates a Status's fields, its author and any boosted status
func ValidateStatus(s types.Status) error {
	if s.Entity == nil {
		return fmt.Errorf("status is nil")
	}

	var errs []error

	if id := string(s.ID()); id == "" {
		errs = append(errs, fmt.Errorf("ID is required"))
	} else if !IsValidID(id) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %s", id))
	}

	if err := validateCreated(s.CreatedAt()); err != nil {
		errs = append(errs, err)
	}

	if !IsValidVisibility(s.Visibility()) {
		errs = append(errs, fmt.Errorf("Visibility has invalid value: %s", s.Visibility()))
	}

	if reply := string(s.InReplyToID()); reply != "" && !IsValidID(reply) {
		errs = append(errs, fmt.Errorf("InReplyToID has invalid format: %s", reply))
	}

	counts := []struct {
		name string
		n    int64
	}{
		{"RepliesCount", s.RepliesCount()},
		{"ReblogsCount", s.ReblogsCount()},
		{"FavouritesCount", s.FavouritesCount()},
	}
	for _, c := range counts {
		if c.n < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", c.name, c.n))
		}
	}

	if s.Value("account") != nil {
		if err := ValidateAccount(s.Account()); err != nil {
			errs = append(errs, err)
		}
	}

	for i, m := range s.MediaAttachments() {
		if err := ValidateMediaAttachment(m); err != nil {
			errs = append(errs, fmt.Errorf("media attachment %d: %w", i, err))
		}
	}

	if rb, ok := s.Reblog(); ok {
		if rb.ID() == s.ID() {
			errs = append(errs, fmt.Errorf("status boosts itself"))
		} else if err := ValidateStatus(rb); err != nil {
			errs = append(errs, fmt.Errorf("reblog: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("status validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateMediaAttachment validates a MediaAttachment's fields
func ValidateMediaAttachment(m types.MediaAttachment) error {
	if m.Entity == nil {
		return fmt.Errorf("media attachment is nil")
	}

	var errs []error

	if !IsValidID(string(m.ID())) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %q", m.ID()))
	}
	if !mediaTypes[m.Type()] {
		errs = append(errs, fmt.Errorf("Type has invalid value: %s", m.Type()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("media attachment validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateNotification validates a Notification's fields. Unknown types are accepted since
// servers add new ones; only the documented types are checked for the fields they need.
func ValidateNotification(n types.Notification) error {
	if n.Entity == nil {
		return fmt.Errorf("notification is nil")
	}

	var errs []error

	if !IsValidID(string(n.ID())) {
		errs = append(errs, fmt.Errorf("ID has invalid format: %q", n.ID()))
	}

	kind := n.Type()
	if kind == "" {
		errs = append(errs, fmt.Errorf("Type is required"))
	}

	if n.Value("account") != nil {
		if err := ValidateAccount(n.Account()); err != nil {
			errs = append(errs, err)
		}
	}

	st, hasStatus := n.Status()
	switch kind {
	case "mention", "status", "reblog", "favourite", "poll", "update":
		if !hasStatus {
			errs = append(errs, fmt.Errorf("%s notification has no status", kind))
		}
	}
	if hasStatus {
		if err := ValidateStatus(st); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
