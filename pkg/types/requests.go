package types

import (
	"io"
	"strings"
)

// Pagination captures the boundaries shared by Mastodon's paginated endpoints.
//
// The boundary fields accept an ID, an entity carrying an id, or a time.Time. A time is
// converted into the smallest snowflake id created at that instant, so MaxID: time.Now()
// pages back from now.
type Pagination struct {
	// MaxID returns results older than this id.
	MaxID any
	// MinID returns results immediately newer than this id.
	MinID any
	// SinceID returns the newest results newer than this id.
	SinceID any

	// Limit is the page size. Zero uses the server default; most endpoints cap it at 40 or 80.
	Limit int `validate:"gte=0,lte=80"`
}

func (p Pagination) params(m map[string]any) map[string]any {
	if m == nil {
		m = map[string]any{}
	}
	m["max_id"] = p.MaxID
	m["min_id"] = p.MinID
	m["since_id"] = p.SinceID
	if p.Limit > 0 {
		m["limit"] = p.Limit
	}
	return m
}

// Params returns the request parameters for the boundaries that are set.
func (p Pagination) Params() map[string]any {
	return p.params(nil)
}

func setString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func setTrue(m map[string]any, key string, v bool) {
	if v {
		m[key] = true
	}
}

func setBool(m map[string]any, key string, v *bool) {
	if v != nil {
		m[key] = *v
	}
}

func setIDs(m map[string]any, key string, ids []ID) {
	if len(ids) > 0 {
		m[key] = ids
	}
}

func setStrings(m map[string]any, key string, v []string) {
	if len(v) > 0 {
		m[key] = v
	}
}

// AccountStatusesRequest filters an account's statuses.
type AccountStatusesRequest struct {
	Pagination
	OnlyMedia      bool
	Pinned         bool
	ExcludeReplies bool
	ExcludeReblogs bool
	// Tagged restricts results to statuses using this hashtag, without the leading #.
	Tagged string
}

// Params returns the request parameters.
func (r *AccountStatusesRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := r.Pagination.params(nil)
	setTrue(m, "only_media", r.OnlyMedia)
	setTrue(m, "pinned", r.Pinned)
	setTrue(m, "exclude_replies", r.ExcludeReplies)
	setTrue(m, "exclude_reblogs", r.ExcludeReblogs)
	setString(m, "tagged", r.Tagged)
	return m
}

// TimelineRequest filters the public, hashtag and list timelines.
type TimelineRequest struct {
	Pagination
	// Local shows only statuses from this server.
	Local bool
	// Remote shows only statuses from other servers. Cannot be combined with Local.
	Remote    bool `validate:"excluded_with=Local"`
	OnlyMedia bool
}

// Params returns the request parameters.
func (r *TimelineRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := r.Pagination.params(nil)
	setTrue(m, "local", r.Local)
	setTrue(m, "remote", r.Remote)
	setTrue(m, "only_media", r.OnlyMedia)
	return m
}

// NotificationsRequest filters the notification list.
type NotificationsRequest struct {
	Pagination
	// Types limits results to these notification types, e.g. "mention" or "follow".
	Types        []string
	ExcludeTypes []string
	// AccountID limits results to notifications caused by this account.
	AccountID ID
}

// Params returns the request parameters.
func (r *NotificationsRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := r.Pagination.params(nil)
	setStrings(m, "types", r.Types)
	setStrings(m, "exclude_types", r.ExcludeTypes)
	setString(m, "account_id", string(r.AccountID))
	return m
}

// PollRequest attaches a poll to a new status.
type PollRequest struct {
	Options []string `validate:"min=2,max=4"`
	// ExpiresIn is the poll duration in seconds.
	ExpiresIn  int `validate:"min=300"`
	Multiple   bool
	HideTotals bool
}

func (p *PollRequest) params() map[string]any {
	m := map[string]any{
		"options":    p.Options,
		"expires_in": p.ExpiresIn,
	}
	setTrue(m, "multiple", p.Multiple)
	setTrue(m, "hide_totals", p.HideTotals)
	return m
}

// StatusRequest describes a new status.
type StatusRequest struct {
	// Status is the text. Required unless media is attached.
	Status      string `validate:"required_without=MediaIDs,max=5000"`
	InReplyToID ID
	MediaIDs    []ID `validate:"max=4"`
	Sensitive   bool
	SpoilerText string
	// Visibility is public, unlisted, private or direct. Empty uses the account default.
	Visibility string `validate:"visibility"`
	// Language is an ISO 639 code.
	Language string
	// Poll cannot be combined with media.
	Poll *PollRequest `validate:"omitempty,excluded_with=MediaIDs"`

	// IdempotencyKey makes retries of the same post safe. One is generated when empty.
	IdempotencyKey string
}

// Params returns the request parameters.
func (r *StatusRequest) Params() map[string]any {
	m := map[string]any{}
	setString(m, "status", r.Status)
	setString(m, "in_reply_to_id", string(r.InReplyToID))
	setIDs(m, "media_ids", r.MediaIDs)
	setTrue(m, "sensitive", r.Sensitive)
	setString(m, "spoiler_text", r.SpoilerText)
	setString(m, "visibility", r.Visibility)
	setString(m, "language", r.Language)
	if r.Poll != nil {
		m["poll"] = r.Poll.params()
	}
	return m
}

// StatusEditRequest replaces the content of an existing status.
type StatusEditRequest struct {
	Status      string `validate:"required_without=MediaIDs,max=5000"`
	SpoilerText string
	Sensitive   *bool
	Language    string
	MediaIDs    []ID         `validate:"max=4"`
	Poll        *PollRequest `validate:"omitempty,excluded_with=MediaIDs"`
}

// Params returns the request parameters.
func (r *StatusEditRequest) Params() map[string]any {
	m := map[string]any{}
	setString(m, "status", r.Status)
	setString(m, "spoiler_text", r.SpoilerText)
	setBool(m, "sensitive", r.Sensitive)
	setString(m, "language", r.Language)
	setIDs(m, "media_ids", r.MediaIDs)
	if r.Poll != nil {
		m["poll"] = r.Poll.params()
	}
	return m
}

// FollowRequest sets the options of a follow.
type FollowRequest struct {
	// Reblogs shows the account's boosts in the home timeline. Server default is true.
	Reblogs *bool
	// Notify sends a notification whenever the account posts.
	Notify *bool
	// Languages limits the followed statuses to these ISO 639 codes.
	Languages []string
}

// Params returns the request parameters.
func (r *FollowRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := map[string]any{}
	setBool(m, "reblogs", r.Reblogs)
	setBool(m, "notify", r.Notify)
	setStrings(m, "languages", r.Languages)
	return m
}

// AccountSearchRequest searches accounts by handle or display name.
type AccountSearchRequest struct {
	Query string `validate:"required"`
	Limit int    `validate:"gte=0,lte=80"`
	// Resolve looks up remote accounts through WebFinger.
	Resolve   bool
	Following bool
	Offset    int `validate:"gte=0"`
}

// Params returns the request parameters.
func (r *AccountSearchRequest) Params() map[string]any {
	m := map[string]any{"q": r.Query}
	if r.Limit > 0 {
		m["limit"] = r.Limit
	}
	if r.Offset > 0 {
		m["offset"] = r.Offset
	}
	setTrue(m, "resolve", r.Resolve)
	setTrue(m, "following", r.Following)
	return m
}

// SearchRequest searches accounts, statuses and hashtags.
type SearchRequest struct {
	Pagination
	Query string `validate:"required"`
	// Type limits results to accounts, hashtags or statuses.
	Type              string `validate:"omitempty,oneof=accounts hashtags statuses"`
	Resolve           bool
	Following         bool
	AccountID         ID
	ExcludeUnreviewed bool
	Offset            int `validate:"gte=0"`
}

// Params returns the request parameters.
func (r *SearchRequest) Params() map[string]any {
	m := r.Pagination.params(nil)
	m["q"] = r.Query
	setString(m, "type", r.Type)
	setTrue(m, "resolve", r.Resolve)
	setTrue(m, "following", r.Following)
	setString(m, "account_id", string(r.AccountID))
	setTrue(m, "exclude_unreviewed", r.ExcludeUnreviewed)
	if r.Offset > 0 {
		m["offset"] = r.Offset
	}
	return m
}

// MediaRequest describes a media upload.
type MediaRequest struct {
	File io.Reader `validate:"required"`
	// FileName is reported to the server; its extension helps the server detect the type.
	FileName string
	// MIMEType defaults to application/octet-stream.
	MIMEType    string
	Description string `validate:"max=1500"`
	// Focus is the "x,y" focal point, each coordinate within [-1, 1].
	Focus     string
	Thumbnail io.Reader
	// ThumbnailName and ThumbnailMIMEType describe Thumbnail.
	ThumbnailName     string
	ThumbnailMIMEType string
}

// Params returns the non-file request parameters.
func (r *MediaRequest) Params() map[string]any {
	m := map[string]any{}
	setString(m, "description", r.Description)
	setString(m, "focus", r.Focus)
	return m
}

// MediaUpdateRequest changes the metadata of an uploaded attachment.
type MediaUpdateRequest struct {
	Description string `validate:"max=1500"`
	Focus       string
}

// Params returns the request parameters.
func (r *MediaUpdateRequest) Params() map[string]any {
	m := map[string]any{}
	setString(m, "description", r.Description)
	setString(m, "focus", r.Focus)
	return m
}

// ReportRequest files a report with the moderators.
type ReportRequest struct {
	AccountID ID   `validate:"required"`
	StatusIDs []ID `validate:"max=50"`
	Comment   string `validate:"max=1000"`
	// Forward sends a copy of the report to the account's server.
	Forward  bool
	Category string `validate:"omitempty,oneof=spam legal violation other"`
	// RuleIDs are the violated server rules, for the violation category.
	RuleIDs []ID
}

// Params returns the request parameters.
func (r *ReportRequest) Params() map[string]any {
	m := map[string]any{"account_id": r.AccountID}
	setIDs(m, "status_ids", r.StatusIDs)
	setString(m, "comment", r.Comment)
	setTrue(m, "forward", r.Forward)
	setString(m, "category", r.Category)
	setIDs(m, "rule_ids", r.RuleIDs)
	return m
}

// AdminAccountsRequest filters the moderation account list.
type AdminAccountsRequest struct {
	Pagination
	Origin      string `validate:"omitempty,oneof=local remote"`
	Status      string `validate:"omitempty,oneof=active pending disabled silenced suspended"`
	Permissions string `validate:"omitempty,oneof=staff"`
	RoleIDs     []ID
	InvitedBy   ID
	Username    string
	DisplayName string
	ByDomain    string
	Email       string
	IP          string
}

// Params returns the request parameters.
func (r *AdminAccountsRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := r.Pagination.params(nil)
	setString(m, "origin", r.Origin)
	setString(m, "status", r.Status)
	setString(m, "permissions", r.Permissions)
	setIDs(m, "role_ids", r.RoleIDs)
	setString(m, "invited_by", string(r.InvitedBy))
	setString(m, "username", r.Username)
	setString(m, "display_name", r.DisplayName)
	setString(m, "by_domain", r.ByDomain)
	setString(m, "email", r.Email)
	setString(m, "ip", r.IP)
	return m
}

// AdminActionRequest is a moderation action against an account.
type AdminActionRequest struct {
	Type            string `validate:"required,oneof=none sensitive disable silence suspend"`
	ReportID        ID
	WarningPresetID ID
	Text            string
	// SendEmailNotification tells the account why the action was taken.
	SendEmailNotification *bool
}

// Params returns the request parameters.
func (r *AdminActionRequest) Params() map[string]any {
	m := map[string]any{"type": r.Type}
	setString(m, "report_id", string(r.ReportID))
	setString(m, "warning_preset_id", string(r.WarningPresetID))
	setString(m, "text", r.Text)
	setBool(m, "send_email_notification", r.SendEmailNotification)
	return m
}

// AdminReportsRequest filters the moderation report list.
type AdminReportsRequest struct {
	Pagination
	Resolved        bool
	AccountID       ID
	TargetAccountID ID
}

// Params returns the request parameters.
func (r *AdminReportsRequest) Params() map[string]any {
	if r == nil {
		return nil
	}
	m := r.Pagination.params(nil)
	setTrue(m, "resolved", r.Resolved)
	setString(m, "account_id", string(r.AccountID))
	setString(m, "target_account_id", string(r.TargetAccountID))
	return m
}

// MarkerRequest saves the reading position in the home timeline, the notifications or both.
type MarkerRequest struct {
	HomeLastReadID          ID
	NotificationsLastReadID ID
}

// Params returns the request parameters.
func (r *MarkerRequest) Params() map[string]any {
	m := map[string]any{}
	if r.HomeLastReadID != "" {
		m["home"] = map[string]any{"last_read_id": r.HomeLastReadID}
	}
	if r.NotificationsLastReadID != "" {
		m["notifications"] = map[string]any{"last_read_id": r.NotificationsLastReadID}
	}
	return m
}

// AppRequest registers an OAuth application.
type AppRequest struct {
	ClientName string `validate:"required"`
	// RedirectURIs defaults to the out of band redirect, which shows the code to the user.
	RedirectURIs []string
	// Scopes defaults to read.
	Scopes  []string
	Website string `validate:"omitempty,http_url"`
}

// Params returns the request parameters.
func (r *AppRequest) Params() map[string]any {
	m := map[string]any{"client_name": r.ClientName}
	if len(r.RedirectURIs) > 0 {
		m["redirect_uris"] = strings.Join(r.RedirectURIs, "\n")
	}
	if len(r.Scopes) > 0 {
		m["scopes"] = strings.Join(r.Scopes, " ")
	}
	setString(m, "website", r.Website)
	return m
}

// PushSubscriptionRequest subscribes to web push notifications.
type PushSubscriptionRequest struct {
	// Endpoint is the push service URL the server delivers to.
	Endpoint string `validate:"required,http_url"`
	// P256DH and Auth are the subscriber's public key and auth secret, unpadded base64url.
	P256DH string `validate:"required"`
	Auth   string `validate:"required"`
	// Alerts selects the notification types to push, e.g. {"mention": true}.
	Alerts map[string]bool
	// Policy is all, followed, follower or none.
	Policy string `validate:"omitempty,oneof=all followed follower none"`
}

// Params returns the request parameters.
func (r *PushSubscriptionRequest) Params() map[string]any {
	m := map[string]any{
		"subscription": map[string]any{
			"endpoint": r.Endpoint,
			"keys":     map[string]any{"p256dh": r.P256DH, "auth": r.Auth},
		},
	}
	data := map[string]any{}
	if len(r.Alerts) > 0 {
		alerts := make(map[string]any, len(r.Alerts))
		for k, v := range r.Alerts {
			alerts[k] = v
		}
		data["alerts"] = alerts
	}
	setString(data, "policy", r.Policy)
	if len(data) > 0 {
		m["data"] = data
	}
	return m
}
