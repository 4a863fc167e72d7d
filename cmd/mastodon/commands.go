package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	mastodon "github.com/jamesprial/go-mastodon-api-wrapper"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/types"
	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/validation"
)

var (
	// login flags
	username        string
	password        string
	scopes          []string
	credentialsFile string

	// listing flags
	limit int
	pages int

	// post flags
	visibility  string
	spoilerText string
	inReplyTo   string

	// export and resume flags
	exportOut string
	resumeOut string
)

func init() {
	rootCmd.PersistentFlags().String("server", "", "instance URL, overrides server.url")

	loginCmd.Flags().StringVarP(&username, "username", "u", "", "log in with a password grant as this user (email)")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password for --username")
	loginCmd.Flags().StringSliceVar(&scopes, "scopes", []string{"read", "write", "follow"}, "OAuth scopes to request")
	loginCmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "also write the credentials to this file")

	for _, c := range []*cobra.Command{timelineCmd, notificationsCmd, exportCmd} {
		c.Flags().IntVarP(&limit, "limit", "l", 20, "page size")
		c.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch")
	}

	postCmd.Flags().StringVar(&visibility, "visibility", "", "public, unlisted, private or direct")
	postCmd.Flags().StringVar(&spoilerText, "spoiler", "", "content warning")
	postCmd.Flags().StringVar(&inReplyTo, "reply-to", "", "id of the status to reply to")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "page.json", "file to write the last page to (.json, .yaml or .yml)")
	resumeCmd.Flags().StringVarP(&resumeOut, "out", "o", "", "write the fetched page here instead of overwriting the input")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Register the application and obtain an access token",
	Long: `login registers this client with the instance when no client_id is configured,
then either uses a password grant (--username/--password) or prints an
authorization URL and asks for the code it shows. The token is saved to the
config file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Server.ClientID == "" || cfg.Server.ClientSecret == "" {
		app, err := client.CreateApp(ctx, &types.AppRequest{ClientName: cfg.Client.UserAgent, Scopes: scopes})
		if err != nil {
			return fmt.Errorf("failed to register application: %w", err)
		}
		logger.Info("registered application", "name", app.Name(), "client_id", app.ClientID())
	}

	if username != "" {
		if _, err := client.LogIn(ctx, username, password, scopes...); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	} else {
		authURL, verifier, err := client.AuthRequestURL("", scopes, "", false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Open this URL and authorize the application:\n\n  %s\n\nCode: ", authURL)
		code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read code: %w", err)
		}
		if _, err := client.ExchangeCode(ctx, strings.TrimSpace(code), verifier, "", scopes); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	me, err := client.VerifyCredentials(ctx)
	if err != nil {
		return err
	}

	creds := client.Credentials()
	cfg.Server.URL = creds.BaseURL
	cfg.Server.AccessToken = creds.AccessToken
	cfg.Server.ClientID = creds.ClientID
	cfg.Server.ClientSecret = creds.ClientSecret
	if err := SaveConfig(cfgPath, cfg); err != nil {
		return err
	}
	if credentialsFile != "" {
		if err := mastodon.WriteCredentials(credentialsFile, creds); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as @%s, saved to %s\n", me.Acct(), cfgPath)
	return nil
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := client.VerifyCredentials(cmd.Context())
		if err != nil {
			return err
		}
		version, err := client.ServerVersion(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "@%s (%s)\n", me.Acct(), me.DisplayName())
		fmt.Fprintf(out, "  %d statuses, %d following, %d followers\n", me.StatusesCount(), me.FollowingCount(), me.FollowersCount())
		fmt.Fprintf(out, "  server %s, version %s\n", client.BaseURL(), version)
		return nil
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline [home|public|local|remote|tag:NAME|list:ID]",
	Short: "Print a timeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "home"
		if len(args) == 1 {
			name = args[0]
		}
		ctx := cmd.Context()
		first, err := fetchTimeline(ctx, name, limit)
		if err != nil {
			return err
		}
		return eachPage(ctx, first, pages, func(page *entity.List) {
			for _, e := range page.Entities() {
				printStatus(cmd.OutOrStdout(), types.Status{Entity: e})
			}
		})
	},
}

// fetchTimeline fetches the first page of a named timeline.
func fetchTimeline(ctx context.Context, name string, limit int) (*entity.List, error) {
	page := types.Pagination{Limit: limit}
	kind, arg, _ := strings.Cut(name, ":")
	switch kind {
	case "home":
		return client.HomeTimeline(ctx, &page)
	case "public":
		return client.PublicTimeline(ctx, &types.TimelineRequest{Pagination: page})
	case "local":
		return client.LocalTimeline(ctx, &page)
	case "remote":
		return client.RemoteTimeline(ctx, &page)
	case "tag":
		return client.HashtagTimeline(ctx, arg, &types.TimelineRequest{Pagination: page})
	case "list":
		return client.ListTimeline(ctx, mastodon.ID(arg), &page)
	case "conversations":
		return client.Conversations(ctx, &page)
	}
	return nil, fmt.Errorf("unknown timeline %q", name)
}

// eachPage calls fn for first and up to n-1 following pages.
func eachPage(ctx context.Context, first *entity.List, n int, fn func(*entity.List)) error {
	it := client.Pages(ctx, first)
	for i := 0; i < n && it.HasNext(); i++ {
		page, err := it.Next()
		if err != nil {
			return err
		}
		if page == nil {
			break
		}
		fn(page)
	}
	return it.Err()
}

var postCmd = &cobra.Command{
	Use:   "post TEXT",
	Short: "Post a status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := client.PostStatus(cmd.Context(), &types.StatusRequest{
			Status:      args[0],
			InReplyToID: mastodon.ID(inReplyTo),
			SpoilerText: spoilerText,
			Visibility:  visibility,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Posted %s %s\n", st.ID(), st.URL())
		return nil
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications [TYPE...]",
	Short: "Print notifications, optionally only of the given types",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		first, err := client.Notifications(ctx, &types.NotificationsRequest{
			Pagination: types.Pagination{Limit: limit},
			Types:      args,
		})
		if err != nil {
			return err
		}
		return eachPage(ctx, first, pages, func(page *entity.List) {
			for _, e := range page.Entities() {
				printNotification(cmd.OutOrStdout(), types.Notification{Entity: e})
			}
		})
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream [user|public|local|direct|hashtag:NAME|local-hashtag:NAME|list:ID]",
	Short: "Follow a streaming timeline until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "user"
		if len(args) == 1 {
			name = args[0]
		}
		timeline, err := streamTimeline(name)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		h, err := client.StreamAsync(ctx, timeline, &printListener{out: cmd.OutOrStdout()}, nil)
		if err != nil {
			return err
		}
		logger.Info("streaming", "timeline", timeline.Name)

		select {
		case <-ctx.Done():
			return h.Close()
		case <-h.Done():
			return h.Err()
		}
	},
}

func streamTimeline(name string) (mastodon.StreamTimeline, error) {
	kind, arg, _ := strings.Cut(name, ":")
	switch kind {
	case "user":
		return mastodon.UserStream(), nil
	case "public":
		return mastodon.PublicStream(false), nil
	case "local":
		return mastodon.PublicStream(true), nil
	case "direct":
		return mastodon.DirectStream(), nil
	case "hashtag":
		return mastodon.HashtagStream(arg, false), nil
	case "local-hashtag":
		return mastodon.HashtagStream(arg, true), nil
	case "list":
		return mastodon.ListStream(mastodon.ID(arg)), nil
	}
	return mastodon.StreamTimeline{}, fmt.Errorf("unknown stream %q", name)
}

// printListener writes stream events as they arrive.
type printListener struct {
	mastodon.StreamHandler
	out io.Writer
}

func (l *printListener) OnUpdate(s types.Status) { printStatus(l.out, s) }

func (l *printListener) OnStatusUpdate(s types.Status) {
	fmt.Fprint(l.out, "(edited) ")
	printStatus(l.out, s)
}

func (l *printListener) OnNotification(n types.Notification) { printNotification(l.out, n) }

func (l *printListener) OnDelete(id mastodon.ID) { fmt.Fprintf(l.out, "deleted %s\n", id) }

func (l *printListener) OnAbort(err error) {
	logger.Warn("stream interrupted, reconnecting", "error", err)
}

var exportCmd = &cobra.Command{
	Use:   "export [TIMELINE]",
	Short: "Fetch pages of a timeline and save the last one so it can be resumed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "home"
		if len(args) == 1 {
			name = args[0]
		}
		ctx := cmd.Context()
		first, err := fetchTimeline(ctx, name, limit)
		if err != nil {
			return err
		}
		last, total := first, 0
		if err := eachPage(ctx, first, pages, func(page *entity.List) {
			last = page
			total += page.Len()
		}); err != nil {
			return err
		}
		if err := writePage(exportOut, last); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d statuses, saved last page (%d) to %s\n", total, last.Len(), exportOut)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume FILE",
	Short: "Load a saved page and fetch the one after it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := readPage(args[0])
		if err != nil {
			return err
		}
		if list, ok := page.(*entity.List); ok {
			for _, e := range list.Entities() {
				if st, ok := types.AsStatus(e); ok {
					if err := validation.ValidateStatus(st); err != nil {
						return fmt.Errorf("%s: %w", args[0], err)
					}
				}
			}
		}
		next, err := client.FetchNext(cmd.Context(), page)
		if err != nil {
			return err
		}
		if next == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No further statuses.")
			return nil
		}
		for _, e := range next.Entities() {
			printStatus(cmd.OutOrStdout(), types.Status{Entity: e})
		}
		dest := resumeOut
		if dest == "" {
			dest = args[0]
		}
		return writePage(dest, next)
	},
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// writePage saves a page with its cursors, as JSON or YAML by file extension.
func writePage(path string, page *entity.List) error {
	data, err := entity.ToJSON(page)
	if err != nil {
		return err
	}
	if isYAML(path) {
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		if data, err = yaml.Marshal(doc); err != nil {
			return fmt.Errorf("failed to encode page: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// readPage loads a page written by writePage.
func readPage(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode page: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, err
		}
	}
	return client.Registry().FromJSON(data)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText reduces status HTML to a single line of text.
func plainText(s string) string {
	s = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ", "</p><p>", " ").Replace(s)
	return strings.Join(strings.Fields(html.UnescapeString(tagPattern.ReplaceAllString(s, ""))), " ")
}

func printStatus(w io.Writer, s types.Status) {
	if rb, ok := s.Reblog(); ok {
		fmt.Fprintf(w, "[%s] @%s boosted ", s.ID(), s.Account().Acct())
		s = rb
	} else {
		fmt.Fprintf(w, "[%s] ", s.ID())
	}
	text := plainText(s.Content())
	if cw := s.SpoilerText(); cw != "" {
		text = "CW: " + cw
	}
	fmt.Fprintf(w, "@%s %s: %s\n", s.Account().Acct(), s.CreatedAt().Local().Format(time.DateTime), text)
}

func printNotification(w io.Writer, n types.Notification) {
	fmt.Fprintf(w, "[%s] %s from @%s", n.ID(), n.Type(), n.Account().Acct())
	if st, ok := n.Status(); ok {
		fmt.Fprintf(w, ": %s", plainText(st.Content()))
	}
	fmt.Fprintln(w)
}
