package test_generators

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// StatusGenerator generates realistic Mastodon statuses and accounts as decoded JSON maps, the
// shape a server response has before it is cast.
type StatusGenerator struct {
	rand       *rand.Rand
	base       time.Time
	domain     string
	usernames  []string
	sentences  []string
	hashtags   []string
	languages  []string
	visibility []string
}

// NewStatusGenerator creates a new status generator. The same seed produces the same data.
func NewStatusGenerator(seed int64) *StatusGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StatusGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		base:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		domain: "mastodon.example",
		usernames: []string{
			"alice", "bob", "carol", "dave", "erin", "frank",
			"grace", "heidi", "ivan", "judy", "mallory", "oscar",
		},
		sentences: []string{
			"Just deployed a new release, fingers crossed.",
			"Does anyone have a good recipe for sourdough?",
			"The sunrise this morning was unreal.",
			"Reading a great book about distributed systems.",
			"Reminder that backups you never restored are not backups.",
			"Coffee first, then the inbox.",
			"Our meetup is on Thursday, everyone is welcome.",
			"Finally fixed that flaky test.",
			"Trying out a new mechanical keyboard today.",
			"What are you all listening to this week?",
		},
		hashtags:   []string{"golang", "fediverse", "photography", "music", "books", "caturday"},
		languages:  []string{"en", "de", "fr", "es"},
		visibility: []string{"public", "public", "public", "unlisted", "private"},
	}
}

// Base returns the creation time of the status with id 1.
func (sg *StatusGenerator) Base() time.Time {
	return sg.base
}

// GenerateAccount creates an account with the given numeric id.
func (sg *StatusGenerator) GenerateAccount(id int) map[string]any {
	username := sg.usernames[(id-1+len(sg.usernames))%len(sg.usernames)]
	if id > len(sg.usernames) {
		username += strconv.Itoa(id)
	}
	return map[string]any{
		"id":              strconv.Itoa(id),
		"username":        username,
		"acct":            username,
		"display_name":    strings.ToUpper(username[:1]) + username[1:],
		"locked":          false,
		"bot":             sg.rand.Intn(10) == 0,
		"created_at":      sg.base.AddDate(-1, 0, -id).Format(time.RFC3339),
		"note":            "<p>Hello from " + username + "</p>",
		"url":             fmt.Sprintf("https://%s/@%s", sg.domain, username),
		"avatar":          fmt.Sprintf("https://%s/avatars/%d.png", sg.domain, id),
		"followers_count": sg.rand.Intn(5000),
		"following_count": sg.rand.Intn(500),
		"statuses_count":  sg.rand.Intn(20000),
		"fields":          []any{},
		"emojis":          []any{},
	}
}

// GenerateStatus creates a status with the given numeric id. Higher ids are newer.
func (sg *StatusGenerator) GenerateStatus(id int) map[string]any {
	return sg.GenerateStatusWithOptions(id, StatusOptions{})
}

// StatusOptions controls generated statuses.
type StatusOptions struct {
	// InReplyToID makes the status a reply.
	InReplyToID string
	// AccountID selects the author; zero picks one.
	AccountID int
	// Extra keys are added verbatim, e.g. fields a newer server sends.
	Extra map[string]any
}

// GenerateStatusWithOptions creates a status with the given numeric id and options.
func (sg *StatusGenerator) GenerateStatusWithOptions(id int, opts StatusOptions) map[string]any {
	accountID := opts.AccountID
	if accountID == 0 {
		accountID = sg.rand.Intn(len(sg.usernames)) + 1
	}
	account := sg.GenerateAccount(accountID)
	tag := sg.hashtags[sg.rand.Intn(len(sg.hashtags))]
	created := sg.base.Add(time.Duration(id) * time.Minute)

	status := map[string]any{
		"id":                     strconv.Itoa(id),
		"uri":                    fmt.Sprintf("https://%s/users/%s/statuses/%d", sg.domain, account["username"], id),
		"url":                    fmt.Sprintf("https://%s/@%s/%d", sg.domain, account["username"], id),
		"created_at":             created.Format("2006-01-02T15:04:05.000Z"),
		"content":                fmt.Sprintf("<p>%s #%s</p>", sg.sentences[sg.rand.Intn(len(sg.sentences))], tag),
		"visibility":             sg.visibility[sg.rand.Intn(len(sg.visibility))],
		"sensitive":              false,
		"spoiler_text":           "",
		"language":               sg.languages[sg.rand.Intn(len(sg.languages))],
		"replies_count":          sg.rand.Intn(20),
		"reblogs_count":          sg.rand.Intn(50),
		"favourites_count":       sg.rand.Intn(200),
		"in_reply_to_id":         nil,
		"in_reply_to_account_id": nil,
		"account":                account,
		"media_attachments":      []any{},
		"mentions":               []any{},
		"tags":                   []any{map[string]any{"name": tag, "url": fmt.Sprintf("https://%s/tags/%s", sg.domain, tag)}},
		"emojis":                 []any{},
		"reblog":                 nil,
		"poll":                   nil,
		"edited_at":              nil,
	}
	if opts.InReplyToID != "" {
		status["in_reply_to_id"] = opts.InReplyToID
		status["in_reply_to_account_id"] = strconv.Itoa(sg.rand.Intn(len(sg.usernames)) + 1)
	}
	for k, v := range opts.Extra {
		status[k] = v
	}
	return status
}

// GenerateStatuses creates statuses with ids 1..count, newest first as timelines return them.
func (sg *StatusGenerator) GenerateStatuses(count int) []map[string]any {
	out := make([]map[string]any, 0, count)
	for id := count; id >= 1; id-- {
		out = append(out, sg.GenerateStatus(id))
	}
	return out
}

// GenerateThread creates a conversation of count statuses starting at id first: the first
// status is the root and every other status replies to a random earlier one. Statuses are in
// creation order.
func (sg *StatusGenerator) GenerateThread(first, count int) []map[string]any {
	out := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		opts := StatusOptions{}
		if i > 0 {
			opts.InReplyToID = strconv.Itoa(first + sg.rand.Intn(i))
		}
		out = append(out, sg.GenerateStatusWithOptions(first+i, opts))
	}
	return out
}

// GenerateNotification creates a notification of type kind with the given id. Mention,
// reblog and favourite notifications carry a status.
func (sg *StatusGenerator) GenerateNotification(id int, kind string) map[string]any {
	n := map[string]any{
		"id":         strconv.Itoa(id),
		"type":       kind,
		"created_at": sg.base.Add(time.Duration(id) * time.Minute).Format(time.RFC3339),
		"account":    sg.GenerateAccount(sg.rand.Intn(len(sg.usernames)) + 1),
	}
	switch kind {
	case "mention", "reblog", "favourite", "status", "update":
		n["status"] = sg.GenerateStatus(id)
	}
	return n
}

// GenerateInstance creates an API v1 instance description reporting version.
func (sg *StatusGenerator) GenerateInstance(version string) map[string]any {
	return map[string]any{
		"uri":               sg.domain,
		"title":             "Example Social",
		"short_description": "A server for testing",
		"description":       "",
		"email":             "admin@" + sg.domain,
		"version":           version,
		"urls":              map[string]any{"streaming_api": "wss://" + sg.domain},
		"stats":             map[string]any{"user_count": 42, "status_count": 1000, "domain_count": 7},
		"languages":         []any{"en"},
		"registrations":     true,
		"approval_required": false,
		"invites_enabled":   true,
		"configuration": map[string]any{
			"statuses": map[string]any{"max_characters": 500, "max_media_attachments": 4},
		},
		"rules": []any{map[string]any{"id": "1", "text": "Be kind"}},
	}
}
