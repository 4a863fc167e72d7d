package types

import (
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// Schema names of the Mastodon entities.
const (
	SchemaAccount          = "Account"
	SchemaAccountField     = "AccountField"
	SchemaRole             = "Role"
	SchemaCustomEmoji      = "CustomEmoji"
	SchemaStatus           = "Status"
	SchemaStatusSource     = "StatusSource"
	SchemaMention          = "Mention"
	SchemaTag              = "Tag"
	SchemaMediaAttachment  = "MediaAttachment"
	SchemaApplication      = "Application"
	SchemaPoll             = "Poll"
	SchemaPollOption       = "PollOption"
	SchemaPreviewCard      = "PreviewCard"
	SchemaNotification     = "Notification"
	SchemaRelationship     = "Relationship"
	SchemaContext          = "Context"
	SchemaRule             = "Rule"
	SchemaInstance         = "Instance"
	SchemaInstanceV2       = "InstanceV2"
	SchemaNodeInfo         = "NodeInfo"
	SchemaReport           = "Report"
	SchemaAdminAccount     = "AdminAccount"
	SchemaAdminReport      = "AdminReport"
	SchemaConversation     = "Conversation"
	SchemaSearch           = "Search"
	SchemaPushSubscription = "PushSubscription"
	SchemaPushNotification = "PushNotification"
	SchemaMarker           = "Marker"
	SchemaMarkers          = "Markers"
	SchemaUserList         = "UserList"
)

// Return types of the endpoint methods.
var (
	AccountType          = entity.Ref(SchemaAccount)
	AccountListType      = entity.PaginatableList(AccountType)
	StatusType           = entity.Ref(SchemaStatus)
	StatusListType       = entity.PaginatableList(StatusType)
	StatusSourceType     = entity.Ref(SchemaStatusSource)
	NotificationType     = entity.Ref(SchemaNotification)
	NotificationListType = entity.PaginatableList(NotificationType)
	MediaAttachmentType  = entity.Ref(SchemaMediaAttachment)
	ApplicationType      = entity.Ref(SchemaApplication)
	RelationshipType     = entity.Ref(SchemaRelationship)
	RelationshipListType = entity.ListOf(RelationshipType)
	ContextType          = entity.Ref(SchemaContext)
	InstanceType         = entity.Ref(SchemaInstance)
	InstanceV2Type       = entity.Ref(SchemaInstanceV2)
	NodeInfoType         = entity.Ref(SchemaNodeInfo)
	ReportType           = entity.Ref(SchemaReport)
	AdminAccountType     = entity.Ref(SchemaAdminAccount)
	AdminAccountListType = entity.PaginatableList(AdminAccountType)
	AdminReportType      = entity.Ref(SchemaAdminReport)
	AdminReportListType  = entity.PaginatableList(AdminReportType)
	ConversationType     = entity.Ref(SchemaConversation)
	ConversationListType = entity.PaginatableList(ConversationType)
	SearchType           = entity.Ref(SchemaSearch)
	PushSubscriptionType = entity.Ref(SchemaPushSubscription)
	PushNotificationType = entity.Ref(SchemaPushNotification)
	MarkersType          = entity.Ref(SchemaMarkers)
	TagType              = entity.Ref(SchemaTag)
	UserListType         = entity.Ref(SchemaUserList)
	EmptyType            = entity.Generic()
)

func init() {
	for _, s := range schemas() {
		entity.Register(s)
	}
}

// RegisterAll adds the Mastodon schemas to r. DefaultRegistry is populated at init.
func RegisterAll(r *entity.Registry) {
	for _, s := range schemas() {
		r.Register(s)
	}
}

func optString() *entity.Type { return entity.Optional(entity.String()) }
func optBool() *entity.Type   { return entity.Optional(entity.Bool()) }
func optTime() *entity.Type   { return entity.Optional(entity.Time()) }
func optID() *entity.Type     { return entity.Optional(entity.IDType()) }

func schemas() []*entity.Schema {
	account := entity.Ref(SchemaAccount)
	status := entity.Ref(SchemaStatus)
	emojis := entity.ListOf(entity.Ref(SchemaCustomEmoji))

	return []*entity.Schema{
		{
			Name: SchemaAccount,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("username", entity.String()),
				entity.F("acct", entity.String()),
				entity.F("display_name", entity.String()),
				entity.F("locked", entity.Bool()),
				entity.F("bot", entity.Bool()),
				entity.F("discoverable", optBool()),
				entity.F("group", entity.Bool()),
				entity.F("created_at", entity.Time()),
				entity.F("note", entity.String()),
				entity.F("url", entity.String()),
				entity.F("avatar", entity.String()),
				entity.F("avatar_static", entity.String()),
				entity.F("header", entity.String()),
				entity.F("header_static", entity.String()),
				entity.F("followers_count", entity.Int()),
				entity.F("following_count", entity.Int()),
				entity.F("statuses_count", entity.Int()),
				entity.F("last_status_at", optTime()),
				entity.F("emojis", emojis),
				entity.F("fields", entity.ListOf(entity.Ref(SchemaAccountField))),
				entity.F("moved", entity.Optional(account)),
				entity.F("suspended", optBool()),
				entity.F("limited", optBool()),
				entity.F("source", entity.Optional(entity.Generic())),
				entity.F("role", entity.Optional(entity.Ref(SchemaRole))),
			},
		},
		{
			Name:   SchemaAccountField,
			Fields: []entity.Field{entity.F("name", entity.String()), entity.F("value", entity.String()), entity.F("verified_at", optTime())},
		},
		{
			Name: SchemaRole,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("name", entity.String()),
				entity.F("color", entity.String()),
				entity.F("permissions", entity.String()),
				entity.F("highlighted", entity.Bool()),
			},
		},
		{
			Name: SchemaCustomEmoji,
			Fields: []entity.Field{
				entity.F("shortcode", entity.String()),
				entity.F("url", entity.String()),
				entity.F("static_url", entity.String()),
				entity.F("visible_in_picker", entity.Bool()),
				entity.F("category", optString()),
			},
		},
		{
			Name: SchemaStatus,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("uri", entity.String()),
				entity.F("url", optString()),
				entity.F("created_at", entity.Time()),
				entity.F("edited_at", optTime()),
				entity.F("account", account),
				entity.F("content", entity.String()),
				entity.F("visibility", entity.String()),
				entity.F("sensitive", entity.Bool()),
				entity.F("spoiler_text", entity.String()),
				entity.F("media_attachments", entity.ListOf(entity.Ref(SchemaMediaAttachment))),
				entity.F("application", entity.Optional(entity.Ref(SchemaApplication))),
				entity.F("mentions", entity.ListOf(entity.Ref(SchemaMention))),
				entity.F("tags", entity.ListOf(entity.Ref(SchemaTag))),
				entity.F("emojis", emojis),
				entity.F("reblogs_count", entity.Int()),
				entity.F("favourites_count", entity.Int()),
				entity.F("replies_count", entity.Int()),
				entity.F("in_reply_to_id", optID()),
				entity.F("in_reply_to_account_id", optID()),
				entity.F("reblog", entity.Optional(status)),
				entity.F("poll", entity.Optional(entity.Ref(SchemaPoll))),
				entity.F("card", entity.Optional(entity.Ref(SchemaPreviewCard))),
				entity.F("language", optString()),
				entity.F("text", optString()),
				entity.F("favourited", optBool()),
				entity.F("reblogged", optBool()),
				entity.F("muted", optBool()),
				entity.F("bookmarked", optBool()),
				entity.F("pinned", optBool()),
				entity.F("filtered", entity.Optional(entity.ListOf(entity.Generic()))),
			},
		},
		{
			Name:   SchemaStatusSource,
			Fields: []entity.Field{entity.F("id", entity.IDType()), entity.F("text", entity.String()), entity.F("spoiler_text", entity.String())},
		},
		{
			Name:   SchemaMention,
			Fields: []entity.Field{entity.F("id", entity.IDType()), entity.F("username", entity.String()), entity.F("url", entity.String()), entity.F("acct", entity.String())},
		},
		{
			Name: SchemaTag,
			Fields: []entity.Field{
				entity.F("name", entity.String()),
				entity.F("url", entity.String()),
				entity.F("history", entity.Optional(entity.ListOf(entity.Generic()))),
				entity.F("following", optBool()),
			},
		},
		{
			Name: SchemaMediaAttachment,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("type", entity.String()),
				entity.F("url", optString()),
				entity.F("preview_url", optString()),
				entity.F("remote_url", optString()),
				entity.F("description", optString()),
				entity.F("blurhash", optString()),
				entity.F("meta", entity.Optional(entity.Generic())),
			},
		},
		{
			Name: SchemaApplication,
			Fields: []entity.Field{
				entity.F("id", optID()),
				entity.F("name", entity.String()),
				entity.F("website", optString()),
				entity.F("redirect_uri", optString()),
				entity.F("client_id", optString()),
				entity.F("client_secret", optString()),
				entity.F("vapid_key", optString()),
			},
		},
		{
			Name: SchemaPoll,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("expires_at", optTime()),
				entity.F("expired", entity.Bool()),
				entity.F("multiple", entity.Bool()),
				entity.F("votes_count", entity.Int()),
				entity.F("voters_count", entity.Optional(entity.Int())),
				entity.F("options", entity.ListOf(entity.Ref(SchemaPollOption))),
				entity.F("emojis", emojis),
				entity.F("voted", optBool()),
				entity.F("own_votes", entity.Optional(entity.ListOf(entity.Int()))),
			},
		},
		{
			Name:   SchemaPollOption,
			Fields: []entity.Field{entity.F("title", entity.String()), entity.F("votes_count", entity.Optional(entity.Int()))},
		},
		{
			Name: SchemaPreviewCard,
			Fields: []entity.Field{
				entity.F("url", entity.String()),
				entity.F("title", entity.String()),
				entity.F("description", entity.String()),
				entity.F("type", entity.String()),
				entity.F("author_name", entity.String()),
				entity.F("provider_name", entity.String()),
				entity.F("image", optString()),
				entity.F("width", entity.Int()),
				entity.F("height", entity.Int()),
			},
		},
		{
			Name: SchemaNotification,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("type", entity.String()),
				entity.F("created_at", entity.Time()),
				entity.F("account", account),
				entity.F("status", entity.Optional(status)),
				entity.F("report", entity.Optional(entity.Ref(SchemaReport))),
				entity.F("group_key", optString()),
			},
		},
		{
			Name: SchemaRelationship,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("following", entity.Bool()),
				entity.F("showing_reblogs", entity.Bool()),
				entity.F("notifying", entity.Bool()),
				entity.F("followed_by", entity.Bool()),
				entity.F("blocking", entity.Bool()),
				entity.F("blocked_by", entity.Bool()),
				entity.F("muting", entity.Bool()),
				entity.F("muting_notifications", entity.Bool()),
				entity.F("requested", entity.Bool()),
				entity.F("domain_blocking", entity.Bool()),
				entity.F("endorsed", entity.Bool()),
				entity.F("note", entity.String()),
				entity.F("languages", entity.Optional(entity.ListOf(entity.String()))),
			},
		},
		{
			Name:   SchemaContext,
			Fields: []entity.Field{entity.F("ancestors", entity.ListOf(status)), entity.F("descendants", entity.ListOf(status))},
		},
		{
			Name:   SchemaRule,
			Fields: []entity.Field{entity.F("id", entity.IDType()), entity.F("text", entity.String())},
		},
		{
			Name: SchemaInstance,
			Fields: []entity.Field{
				entity.F("uri", entity.String()),
				entity.F("title", entity.String()),
				entity.F("short_description", entity.String()),
				entity.F("description", entity.String()),
				entity.F("email", entity.String()),
				entity.F("version", entity.String()),
				entity.F("urls", entity.Optional(entity.Generic())),
				entity.F("stats", entity.Optional(entity.Generic())),
				entity.F("thumbnail", optString()),
				entity.F("languages", entity.ListOf(entity.String())),
				entity.F("registrations", entity.Bool()),
				entity.F("approval_required", entity.Bool()),
				entity.F("invites_enabled", entity.Bool()),
				entity.F("configuration", entity.Optional(entity.Generic())),
				entity.F("contact_account", entity.Optional(account)),
				entity.F("rules", entity.Optional(entity.ListOf(entity.Ref(SchemaRule)))),
			},
			Redirects: map[string]string{
				"max_toot_chars": "configuration.statuses.max_characters",
			},
		},
		{
			Name: SchemaInstanceV2,
			Fields: []entity.Field{
				entity.F("domain", entity.String()),
				entity.F("title", entity.String()),
				entity.F("version", entity.String()),
				entity.F("source_url", entity.String()),
				entity.F("description", entity.String()),
				entity.F("usage", entity.Optional(entity.Generic())),
				entity.F("thumbnail", entity.Optional(entity.Generic())),
				entity.F("languages", entity.ListOf(entity.String())),
				entity.F("configuration", entity.Optional(entity.Generic())),
				entity.F("registrations", entity.Optional(entity.Generic())),
				entity.F("contact", entity.Optional(entity.Generic())),
				entity.F("rules", entity.Optional(entity.ListOf(entity.Ref(SchemaRule)))),
			},
			Redirects: map[string]string{
				"max_toot_chars": "configuration.statuses.max_characters",
				"active_month":   "usage.users.active_month",
			},
		},
		{
			Name: SchemaNodeInfo,
			Fields: []entity.Field{
				entity.F("version", entity.String()),
				entity.F("software", entity.Generic()),
				entity.F("protocols", entity.ListOf(entity.String())),
				entity.F("services", entity.Optional(entity.Generic())),
				entity.F("usage", entity.Generic()),
				entity.F("open_registrations", entity.Bool()),
				entity.F("metadata", entity.Optional(entity.Generic())),
			},
			Renames: map[string]string{
				"open_registrations": "openRegistrations",
			},
			Redirects: map[string]string{
				"total_users":  "usage.users.total",
				"local_posts":  "usage.localPosts",
				"software_ver": "software.version",
			},
		},
		{
			Name: SchemaReport,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("action_taken", entity.Bool()),
				entity.F("action_taken_at", optTime()),
				entity.F("category", entity.String()),
				entity.F("comment", entity.String()),
				entity.F("forwarded", entity.Bool()),
				entity.F("created_at", entity.Time()),
				entity.F("status_ids", entity.Optional(entity.ListOf(entity.IDType()))),
				entity.F("rule_ids", entity.Optional(entity.ListOf(entity.IDType()))),
				entity.F("target_account", account),
			},
		},
		{
			Name: SchemaAdminAccount,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("username", entity.String()),
				entity.F("domain", optString()),
				entity.F("created_at", entity.Time()),
				entity.F("email", entity.String()),
				entity.F("ip", optString()),
				entity.F("role", entity.Optional(entity.Ref(SchemaRole))),
				entity.F("confirmed", entity.Bool()),
				entity.F("suspended", entity.Bool()),
				entity.F("silenced", entity.Bool()),
				entity.F("disabled", entity.Bool()),
				entity.F("approved", entity.Bool()),
				entity.F("locale", entity.String()),
				entity.F("invite_request", optString()),
				entity.F("account", account),
			},
		},
		{
			Name: SchemaAdminReport,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("action_taken", entity.Bool()),
				entity.F("action_taken_at", optTime()),
				entity.F("category", entity.String()),
				entity.F("comment", entity.String()),
				entity.F("forwarded", entity.Bool()),
				entity.F("created_at", entity.Time()),
				entity.F("updated_at", entity.Time()),
				entity.F("account", entity.Ref(SchemaAdminAccount)),
				entity.F("target_account", entity.Ref(SchemaAdminAccount)),
				entity.F("assigned_account", entity.Optional(entity.Ref(SchemaAdminAccount))),
				entity.F("action_taken_by_account", entity.Optional(entity.Ref(SchemaAdminAccount))),
				entity.F("statuses", entity.ListOf(status)),
				entity.F("rules", entity.Optional(entity.ListOf(entity.Ref(SchemaRule)))),
			},
		},
		{
			Name: SchemaConversation,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("unread", entity.Bool()),
				entity.F("accounts", entity.ListOf(account)),
				entity.F("last_status", entity.Optional(status)),
			},
		},
		{
			// v1 search returns hashtags as plain strings, v2 as Tag objects.
			Name: SchemaSearch,
			Fields: []entity.Field{
				entity.F("accounts", entity.ListOf(account)),
				entity.F("statuses", entity.ListOf(status)),
				entity.F("hashtags", entity.ListOf(entity.Union(entity.Ref(SchemaTag), entity.String()))),
			},
		},
		{
			Name: SchemaPushSubscription,
			Fields: []entity.Field{
				entity.F("id", entity.IDType()),
				entity.F("endpoint", entity.String()),
				entity.F("server_key", entity.String()),
				entity.F("alerts", entity.Generic()),
				entity.F("policy", optString()),
			},
		},
		{
			Name: SchemaPushNotification,
			Fields: []entity.Field{
				entity.F("access_token", entity.String()),
				entity.F("body", entity.String()),
				entity.F("icon", entity.String()),
				entity.F("notification_id", entity.IDType()),
				entity.F("notification_type", entity.String()),
				entity.F("preferred_locale", entity.String()),
				entity.F("title", entity.String()),
			},
		},
		{
			Name:   SchemaMarker,
			Fields: []entity.Field{entity.F("last_read_id", entity.IDType()), entity.F("version", entity.Int()), entity.F("updated_at", entity.Time())},
		},
		{
			Name:   SchemaMarkers,
			Fields: []entity.Field{entity.F("home", entity.Optional(entity.Ref(SchemaMarker))), entity.F("notifications", entity.Optional(entity.Ref(SchemaMarker)))},
		},
		{
			Name:   SchemaUserList,
			Fields: []entity.Field{entity.F("id", entity.IDType()), entity.F("title", entity.String()), entity.F("replies_policy", optString())},
		},
	}
}
