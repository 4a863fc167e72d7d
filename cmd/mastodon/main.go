// Command mastodon is a small command line client built on the go-mastodon-api-wrapper library.
//
// Configuration is read from ./config.yaml or ~/.mastodon/config.yaml, and every key can be
// overridden with a MASTODON_ prefixed variable, e.g. MASTODON_SERVER_URL or
// MASTODON_SERVER_ACCESS_TOKEN.
//
// Usage:
//
//	mastodon login --server https://mastodon.social
//	mastodon timeline home --limit 20
//	mastodon stream hashtag:golang
package main

func main() {
	Execute()
}
