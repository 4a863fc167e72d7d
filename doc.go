// Package mastodon provides a Go client for the Mastodon REST and streaming APIs.
//
// # Overview
//
// Responses are cast into entities: ordered field maps described by a schema, with typed
// views in package types. Fields the schema does not know are kept, so nothing the server
// sends is lost, and any value can be written with entity.ToJSON and read back with
// entity.FromJSON.
//
// # Features
//
//   - Typed, never failing response casting with a generic fallback
//   - Pagination through Link header cursors, including from persisted collections
//   - Rate limit handling: throw, wait or pace against the server's window
//   - Endpoint version checks against the connected server
//   - OAuth 2 application registration and login flows
//   - Streaming with typed event dispatch and automatic reconnects
//   - Structured logging support via Go's slog package
//
// # Quick Start
//
//	client, err := mastodon.NewClient(&mastodon.Config{
//		BaseURL:     "https://mastodon.social",
//		AccessToken: token,
//		UserAgent:   "myapp/1.0",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	me, err := client.VerifyCredentials(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("logged in as", me.Acct())
//
// # Connection Lifecycle
//
// NewClient makes no request. The server version, needed for endpoint version checks, is
// fetched by Connect or by the first version checked call, and cached afterwards. Set
// Config.MastodonVersion to skip discovery, or Config.VersionCheckMode to VersionCheckNone
// to disable checks.
//
// # Pagination
//
// Paginated endpoints return an *entity.List. Pass it to FetchNext for the following page
// and to FetchPrevious for the preceding one; both return nil when the server has no more
// data in that direction:
//
//	page, err := client.HomeTimeline(ctx, &types.Pagination{Limit: 40})
//	for err == nil && page != nil && page.Len() > 0 {
//		for _, e := range page.Entities() {
//			st := types.Status{Entity: e}
//			fmt.Println(st.Account().Acct(), st.Content())
//		}
//		page, err = client.FetchNext(ctx, page)
//	}
//
// The cursors survive persistence, so a page written with entity.ToJSON can be continued
// later with FetchNext after entity.FromJSON.
//
// # Rate Limits
//
// Mastodon allows 300 calls per 5 minutes by default. With RateLimitWait (the default) a
// 429 response sleeps until the window resets and retries. RateLimitPace additionally
// spreads calls evenly over the window. RateLimitThrow returns a *errors.RateLimitError.
// Every sleep is bounded by Config.RateLimitMaxSleep and aborted by context cancellation.
//
// # Error Handling
//
// Errors are typed values from package errors and work with errors.Is and errors.As:
//
//	_, err := client.Status(ctx, id)
//	switch {
//	case errors.IsNotFound(err):
//		// deleted
//	case errors.IsRateLimited(err):
//		// back off
//	}
//
// # Concurrency
//
// A Client issues requests one at a time and is not safe for concurrent use. Streams started
// with StreamAsync run in their own goroutine and are stopped with StreamHandle.Close.
package mastodon
