package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/test_generators"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"snowflake", "109372843234", true},
		{"opaque", "AbC-123_x", true},
		{"empty string", "", false},
		{"blank", "  ", false},
		{"slash", "../admin", false},
		{"query", "1?x=y", false},
		{"space", "1 2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidID(tt.input); got != tt.want {
				t.Errorf("IsValidID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidAcct(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"local", "alice", true},
		{"with at", "@alice", true},
		{"remote", "gargron@mastodon.social", true},
		{"dot inside", "first.last", true},
		{"trailing dot", "alice.", false},
		{"space", "not a handle", false},
		{"domain without tld", "alice@localhost", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidAcct(tt.input); got != tt.want {
				t.Errorf("IsValidAcct(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	if !IsValidUsername("alice_2") {
		t.Error("expected alice_2 to be valid")
	}
	if IsValidUsername("alice@mastodon.social") {
		t.Error("a full handle is not a username")
	}
}

func TestIsValidHashtag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"ascii", "golang", true},
		{"underscore and digits", "fedi_22", true},
		{"unicode", "日本語", true},
		{"middle dot", "l·l", true},
		{"leading hash", "#golang", false},
		{"digits only", "2024", false},
		{"hyphen", "go-lang", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidHashtag(tt.input); got != tt.want {
				t.Errorf("IsValidHashtag(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidVisibility(t *testing.T) {
	for _, v := range []string{"", "public", "unlisted", "private", "direct"} {
		if !IsValidVisibility(v) {
			t.Errorf("IsValidVisibility(%q) = false", v)
		}
	}
	if IsValidVisibility("friends") {
		t.Error("IsValidVisibility(friends) = true")
	}
	if !IsKnownNotificationType("follow_request") || IsKnownNotificationType("poke") {
		t.Error("IsKnownNotificationType gave the wrong answer")
	}
}

func status(t *testing.T, m map[string]any) types.Status {
	t.Helper()
	st, ok := types.AsStatus(entity.Cast(types.StatusType, m))
	if !ok {
		t.Fatalf("could not cast %v to a status", m)
	}
	return st
}

func TestValidateStatus_Generated(t *testing.T) {
	gen := test_generators.NewStatusGenerator(11)
	for _, m := range gen.GenerateThread(1, 30) {
		if err := ValidateStatus(status(t, m)); err != nil {
			t.Errorf("generated status %v failed validation: %v", m["id"], err)
		}
	}
}

func TestValidateStatus(t *testing.T) {
	gen := test_generators.NewStatusGenerator(3)

	tests := []struct {
		name    string
		extra   map[string]any
		wantErr string
	}{
		{name: "valid"},
		{name: "bad visibility", extra: map[string]any{"visibility": "friends"}, wantErr: "Visibility"},
		{name: "negative replies", extra: map[string]any{"replies_count": -1}, wantErr: "RepliesCount cannot be negative"},
		{name: "future", extra: map[string]any{"created_at": time.Now().Add(48 * time.Hour).Format(time.RFC3339)}, wantErr: "in the future"},
		{name: "too old", extra: map[string]any{"created_at": "2001-01-01T00:00:00Z"}, wantErr: "before Mastodon existed"},
		{name: "bad reply id", extra: map[string]any{"in_reply_to_id": "1/2"}, wantErr: "InReplyToID"},
		{name: "bad author", extra: map[string]any{"account": map[string]any{"id": "9", "acct": "not valid"}}, wantErr: "Acct has invalid format"},
		{name: "bad media", extra: map[string]any{"media_attachments": []any{map[string]any{"id": "4", "type": "hologram"}}}, wantErr: "media attachment 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := gen.GenerateStatusWithOptions(5, test_generators.StatusOptions{Extra: tt.extra})
			err := ValidateStatus(status(t, m))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStatus_Reblog(t *testing.T) {
	gen := test_generators.NewStatusGenerator(4)
	inner := gen.GenerateStatus(7)

	boost := gen.GenerateStatusWithOptions(8, test_generators.StatusOptions{Extra: map[string]any{"reblog": inner}})
	if err := ValidateStatus(status(t, boost)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	inner["visibility"] = "friends"
	bad := gen.GenerateStatusWithOptions(9, test_generators.StatusOptions{Extra: map[string]any{"reblog": inner}})
	if err := ValidateStatus(status(t, bad)); err == nil || !strings.Contains(err.Error(), "reblog:") {
		t.Errorf("error = %v, want a reblog error", err)
	}

	if err := ValidateStatus(types.Status{}); err == nil {
		t.Error("expected an error for a nil status")
	}
}

func TestValidateNotification(t *testing.T) {
	gen := test_generators.NewStatusGenerator(5)

	for _, kind := range []string{"mention", "follow", "favourite", "admin.sign_up"} {
		n, ok := types.AsNotification(entity.Cast(types.NotificationType, gen.GenerateNotification(1, kind)))
		if !ok {
			t.Fatalf("could not cast %s notification", kind)
		}
		if err := ValidateNotification(n); err != nil {
			t.Errorf("%s notification: unexpected error: %v", kind, err)
		}
	}

	// A mention always carries the status it mentions.
	m := gen.GenerateNotification(2, "follow")
	m["type"] = "mention"
	n, _ := types.AsNotification(entity.Cast(types.NotificationType, m))
	if err := ValidateNotification(n); err == nil || !strings.Contains(err.Error(), "has no status") {
		t.Errorf("error = %v, want missing status", err)
	}
}

func TestValidateAccount(t *testing.T) {
	gen := test_generators.NewStatusGenerator(6)
	acct, ok := types.AsAccount(entity.Cast(types.AccountType, gen.GenerateAccount(2)))
	if !ok {
		t.Fatal("could not cast account")
	}
	if err := ValidateAccount(acct); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	m := gen.GenerateAccount(3)
	m["followers_count"] = -4
	m["acct"] = ""
	acct, _ = types.AsAccount(entity.Cast(types.AccountType, m))
	err := ValidateAccount(acct)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"Acct is required", "FollowersCount cannot be negative"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
