// Package types declares the Mastodon entity schemas and thin typed views over them.
//
// Every view embeds *entity.Entity, so untyped access through Get keeps working next to the
// typed accessors:
//
//	st, _ := types.AsStatus(v)
//	fmt.Println(st.Account().Acct(), st.Content())
//	lang, _ := st.Get("language")
package types

import (
	"time"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// ID identifies a server object.
type ID = entity.ID

func str(e *entity.Entity, name string) string {
	s, _ := e.Value(name).(string)
	return s
}

func boolean(e *entity.Entity, name string) bool {
	b, _ := e.Value(name).(bool)
	return b
}

func integer(e *entity.Entity, name string) int64 {
	n, _ := e.Value(name).(int64)
	return n
}

func timestamp(e *entity.Entity, name string) time.Time {
	t, _ := e.Value(name).(time.Time)
	return t
}

func id(e *entity.Entity, name string) ID {
	v, _ := e.Value(name).(ID)
	return v
}

func nested(e *entity.Entity, name string) *entity.Entity {
	v, _ := e.Value(name).(*entity.Entity)
	return v
}

func entities(e *entity.Entity, name string) []*entity.Entity {
	items, _ := e.Value(name).([]any)
	out := make([]*entity.Entity, 0, len(items))
	for _, it := range items {
		if x, ok := it.(*entity.Entity); ok {
			out = append(out, x)
		}
	}
	return out
}

func as(v any, schema string) (*entity.Entity, bool) {
	e, ok := v.(*entity.Entity)
	if !ok || e == nil || e.SchemaName() != schema {
		return nil, false
	}
	return e, true
}

// Account is a user profile.
type Account struct{ *entity.Entity }

// AsAccount views v as an Account.
func AsAccount(v any) (Account, bool) {
	e, ok := as(v, SchemaAccount)
	return Account{e}, ok
}

func (a Account) ID() ID                   { return id(a.Entity, "id") }
func (a Account) Username() string         { return str(a.Entity, "username") }
func (a Account) Acct() string             { return str(a.Entity, "acct") }
func (a Account) DisplayName() string      { return str(a.Entity, "display_name") }
func (a Account) Note() string             { return str(a.Entity, "note") }
func (a Account) URL() string              { return str(a.Entity, "url") }
func (a Account) Bot() bool                { return boolean(a.Entity, "bot") }
func (a Account) Locked() bool             { return boolean(a.Entity, "locked") }
func (a Account) CreatedAt() time.Time     { return timestamp(a.Entity, "created_at") }
func (a Account) FollowersCount() int64    { return integer(a.Entity, "followers_count") }
func (a Account) FollowingCount() int64    { return integer(a.Entity, "following_count") }
func (a Account) StatusesCount() int64     { return integer(a.Entity, "statuses_count") }
func (a Account) Moved() (Account, bool)   { return AsAccount(a.Value("moved")) }
func (a Account) Fields() []*entity.Entity { return entities(a.Entity, "fields") }

// Status is a post.
type Status struct{ *entity.Entity }

// AsStatus views v as a Status.
func AsStatus(v any) (Status, bool) {
	e, ok := as(v, SchemaStatus)
	return Status{e}, ok
}

func (s Status) ID() ID                 { return id(s.Entity, "id") }
func (s Status) URI() string            { return str(s.Entity, "uri") }
func (s Status) URL() string            { return str(s.Entity, "url") }
func (s Status) Content() string        { return str(s.Entity, "content") }
func (s Status) SpoilerText() string    { return str(s.Entity, "spoiler_text") }
func (s Status) Visibility() string     { return str(s.Entity, "visibility") }
func (s Status) Language() string       { return str(s.Entity, "language") }
func (s Status) Sensitive() bool        { return boolean(s.Entity, "sensitive") }
func (s Status) CreatedAt() time.Time   { return timestamp(s.Entity, "created_at") }
func (s Status) InReplyToID() ID        { return id(s.Entity, "in_reply_to_id") }
func (s Status) RepliesCount() int64    { return integer(s.Entity, "replies_count") }
func (s Status) ReblogsCount() int64    { return integer(s.Entity, "reblogs_count") }
func (s Status) FavouritesCount() int64 { return integer(s.Entity, "favourites_count") }
func (s Status) Favourited() bool       { return boolean(s.Entity, "favourited") }
func (s Status) Reblogged() bool        { return boolean(s.Entity, "reblogged") }
func (s Status) Account() Account       { return Account{nested(s.Entity, "account")} }
func (s Status) Reblog() (Status, bool) { return AsStatus(s.Value("reblog")) }
func (s Status) Poll() (Poll, bool)     { return AsPoll(s.Value("poll")) }
func (s Status) Tags() []*entity.Entity { return entities(s.Entity, "tags") }
func (s Status) Mentions() []*entity.Entity {
	return entities(s.Entity, "mentions")
}

// EditedAt reports when the status was last edited.
func (s Status) EditedAt() (time.Time, bool) {
	t, ok := s.Value("edited_at").(time.Time)
	return t, ok
}

// MediaAttachments returns the attached media.
func (s Status) MediaAttachments() []MediaAttachment {
	var out []MediaAttachment
	for _, e := range entities(s.Entity, "media_attachments") {
		if m, ok := AsMediaAttachment(e); ok {
			out = append(out, m)
		}
	}
	return out
}

// MediaAttachment is an uploaded or remote media file.
type MediaAttachment struct{ *entity.Entity }

// AsMediaAttachment views v as a MediaAttachment.
func AsMediaAttachment(v any) (MediaAttachment, bool) {
	e, ok := as(v, SchemaMediaAttachment)
	return MediaAttachment{e}, ok
}

func (m MediaAttachment) ID() ID              { return id(m.Entity, "id") }
func (m MediaAttachment) Type() string        { return str(m.Entity, "type") }
func (m MediaAttachment) URL() string         { return str(m.Entity, "url") }
func (m MediaAttachment) PreviewURL() string  { return str(m.Entity, "preview_url") }
func (m MediaAttachment) Description() string { return str(m.Entity, "description") }

// Processed reports whether the server has finished processing the file. Until then the url
// is null.
func (m MediaAttachment) Processed() bool { return m.URL() != "" }

// Poll is a poll attached to a status.
type Poll struct{ *entity.Entity }

// AsPoll views v as a Poll.
func AsPoll(v any) (Poll, bool) {
	e, ok := as(v, SchemaPoll)
	return Poll{e}, ok
}

func (p Poll) ID() ID            { return id(p.Entity, "id") }
func (p Poll) Expired() bool     { return boolean(p.Entity, "expired") }
func (p Poll) Multiple() bool    { return boolean(p.Entity, "multiple") }
func (p Poll) VotesCount() int64 { return integer(p.Entity, "votes_count") }
func (p Poll) Options() []*entity.Entity {
	return entities(p.Entity, "options")
}

// Notification is an event concerning the authenticated user.
type Notification struct{ *entity.Entity }

// AsNotification views v as a Notification.
func AsNotification(v any) (Notification, bool) {
	e, ok := as(v, SchemaNotification)
	return Notification{e}, ok
}

func (n Notification) ID() ID                 { return id(n.Entity, "id") }
func (n Notification) Type() string           { return str(n.Entity, "type") }
func (n Notification) CreatedAt() time.Time   { return timestamp(n.Entity, "created_at") }
func (n Notification) Account() Account       { return Account{nested(n.Entity, "account")} }
func (n Notification) Status() (Status, bool) { return AsStatus(n.Value("status")) }

// Relationship describes how the authenticated user relates to another account.
type Relationship struct{ *entity.Entity }

// AsRelationship views v as a Relationship.
func AsRelationship(v any) (Relationship, bool) {
	e, ok := as(v, SchemaRelationship)
	return Relationship{e}, ok
}

func (r Relationship) ID() ID           { return id(r.Entity, "id") }
func (r Relationship) Following() bool  { return boolean(r.Entity, "following") }
func (r Relationship) FollowedBy() bool { return boolean(r.Entity, "followed_by") }
func (r Relationship) Blocking() bool   { return boolean(r.Entity, "blocking") }
func (r Relationship) Muting() bool     { return boolean(r.Entity, "muting") }
func (r Relationship) Requested() bool  { return boolean(r.Entity, "requested") }

// Context holds the ancestors and descendants of a status.
type Context struct{ *entity.Entity }

// AsContext views v as a Context.
func AsContext(v any) (Context, bool) {
	e, ok := as(v, SchemaContext)
	return Context{e}, ok
}

func (c Context) Ancestors() []*entity.Entity   { return entities(c.Entity, "ancestors") }
func (c Context) Descendants() []*entity.Entity { return entities(c.Entity, "descendants") }

// Instance is the v1 instance description.
type Instance struct{ *entity.Entity }

// AsInstance views v as an Instance.
func AsInstance(v any) (Instance, bool) {
	e, ok := as(v, SchemaInstance)
	return Instance{e}, ok
}

func (i Instance) URI() string     { return str(i.Entity, "uri") }
func (i Instance) Title() string   { return str(i.Entity, "title") }
func (i Instance) Version() string { return str(i.Entity, "version") }

// MaxTootChars returns the status length limit, or 0 when the server does not report one.
func (i Instance) MaxTootChars() int64 {
	v, err := i.Get("max_toot_chars")
	if err != nil {
		return 0
	}
	n, _ := entity.Cast(entity.Int(), v).(int64)
	return n
}

// Conversation is a direct message thread.
type Conversation struct{ *entity.Entity }

// AsConversation views v as a Conversation.
func AsConversation(v any) (Conversation, bool) {
	e, ok := as(v, SchemaConversation)
	return Conversation{e}, ok
}

func (c Conversation) ID() ID                     { return id(c.Entity, "id") }
func (c Conversation) Unread() bool               { return boolean(c.Entity, "unread") }
func (c Conversation) Accounts() []*entity.Entity { return entities(c.Entity, "accounts") }
func (c Conversation) LastStatus() (Status, bool) { return AsStatus(c.Value("last_status")) }

// Tag is a hashtag.
type Tag struct{ *entity.Entity }

// AsTag views v as a Tag.
func AsTag(v any) (Tag, bool) {
	e, ok := as(v, SchemaTag)
	return Tag{e}, ok
}

func (t Tag) Name() string { return str(t.Entity, "name") }
func (t Tag) URL() string  { return str(t.Entity, "url") }

// Search holds the results of a search.
type Search struct{ *entity.Entity }

// AsSearch views v as a Search result.
func AsSearch(v any) (Search, bool) {
	e, ok := as(v, SchemaSearch)
	return Search{e}, ok
}

func (s Search) Accounts() []*entity.Entity { return entities(s.Entity, "accounts") }
func (s Search) Statuses() []*entity.Entity { return entities(s.Entity, "statuses") }

// Hashtags returns tag names whether the server sent Tag objects or plain strings.
func (s Search) Hashtags() []string {
	items, _ := s.Value("hashtags").([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch x := it.(type) {
		case string:
			out = append(out, x)
		case *entity.Entity:
			out = append(out, str(x, "name"))
		}
	}
	return out
}

// Marker records the read position of a timeline.
type Marker struct{ *entity.Entity }

func (m Marker) LastReadID() ID       { return id(m.Entity, "last_read_id") }
func (m Marker) Version() int64       { return integer(m.Entity, "version") }
func (m Marker) UpdatedAt() time.Time { return timestamp(m.Entity, "updated_at") }

// Markers returns the marker of timeline ("home" or "notifications"), if the server sent one.
func Markers(v any, timeline string) (Marker, bool) {
	e, ok := as(v, SchemaMarkers)
	if !ok {
		return Marker{}, false
	}
	m, ok := as(e.Value(timeline), SchemaMarker)
	return Marker{m}, ok
}

// NodeInfo is the server's nodeinfo document.
type NodeInfo struct{ *entity.Entity }

// AsNodeInfo views v as a NodeInfo document.
func AsNodeInfo(v any) (NodeInfo, bool) {
	e, ok := as(v, SchemaNodeInfo)
	return NodeInfo{e}, ok
}

func (n NodeInfo) OpenRegistrations() bool { return boolean(n.Entity, "open_registrations") }

// SoftwareName returns software.name, for example "mastodon" or "pleroma".
func (n NodeInfo) SoftwareName() string { return str(nested(n.Entity, "software"), "name") }

// Application is a registered OAuth client.
type Application struct{ *entity.Entity }

// AsApplication views v as an Application.
func AsApplication(v any) (Application, bool) {
	e, ok := as(v, SchemaApplication)
	return Application{e}, ok
}

func (a Application) Name() string         { return str(a.Entity, "name") }
func (a Application) ClientID() string     { return str(a.Entity, "client_id") }
func (a Application) ClientSecret() string { return str(a.Entity, "client_secret") }
func (a Application) VapidKey() string     { return str(a.Entity, "vapid_key") }

// Report is a moderation report filed by the user.
type Report struct{ *entity.Entity }

// AsReport views v as a Report.
func AsReport(v any) (Report, bool) {
	e, ok := as(v, SchemaReport)
	return Report{e}, ok
}

func (r Report) ID() ID            { return id(r.Entity, "id") }
func (r Report) Category() string  { return str(r.Entity, "category") }
func (r Report) ActionTaken() bool { return boolean(r.Entity, "action_taken") }
func (r Report) TargetAccount() Account {
	return Account{nested(r.Entity, "target_account")}
}

// AdminAccount is the moderator view of an account.
type AdminAccount struct{ *entity.Entity }

// AsAdminAccount views v as an AdminAccount.
func AsAdminAccount(v any) (AdminAccount, bool) {
	e, ok := as(v, SchemaAdminAccount)
	return AdminAccount{e}, ok
}

func (a AdminAccount) ID() ID           { return id(a.Entity, "id") }
func (a AdminAccount) Username() string { return str(a.Entity, "username") }
func (a AdminAccount) Email() string    { return str(a.Entity, "email") }
func (a AdminAccount) Suspended() bool  { return boolean(a.Entity, "suspended") }
func (a AdminAccount) Silenced() bool   { return boolean(a.Entity, "silenced") }
func (a AdminAccount) Account() Account { return Account{nested(a.Entity, "account")} }

// AdminReport is a report as seen by moderators.
type AdminReport struct{ *entity.Entity }

// AsAdminReport views v as an AdminReport.
func AsAdminReport(v any) (AdminReport, bool) {
	e, ok := as(v, SchemaAdminReport)
	return AdminReport{e}, ok
}

func (r AdminReport) ID() ID            { return id(r.Entity, "id") }
func (r AdminReport) Category() string  { return str(r.Entity, "category") }
func (r AdminReport) Comment() string   { return str(r.Entity, "comment") }
func (r AdminReport) ActionTaken() bool { return boolean(r.Entity, "action_taken") }
func (r AdminReport) TargetAccount() AdminAccount {
	return AdminAccount{nested(r.Entity, "target_account")}
}
