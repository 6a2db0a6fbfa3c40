// Package main provides the CLI entry point for multipass.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/lepinkainen/multipass/internal/config"
	"github.com/lepinkainen/multipass/pkg/aggregator"
	"github.com/lepinkainen/multipass/pkg/cache"
	"github.com/lepinkainen/multipass/pkg/feed"
	"github.com/lepinkainen/multipass/pkg/platforms"
	"github.com/lepinkainen/multipass/pkg/preview"
	"github.com/lepinkainen/multipass/pkg/social"

	// Import adapters to trigger init() self-registration
	_ "github.com/lepinkainen/multipass/internal/mastodon"
	_ "github.com/lepinkainen/multipass/internal/reddit"
	_ "github.com/lepinkainen/multipass/internal/rssbridge"
)

// CLI structure
var CLI struct {
	Config string `help:"Configuration file path" default:"config.yaml"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Feed struct {
		Outfile string `help:"Output file path (- for stdout)" short:"o" default:""`
		Format  string `help:"Feed format" enum:"rss,atom" default:"rss"`
		Limit   int    `help:"Maximum number of posts (0 = all)" default:"0"`
	} `cmd:"feed" help:"Generate a syndication feed from all configured accounts."`

	Post struct {
		Message    string `arg:"" help:"Post content"`
		Title      string `help:"Title for platforms that require one (e.g. Reddit)"`
		Visibility string `help:"Visibility for platforms that support it (e.g. Mastodon)"`
	} `cmd:"post" help:"Publish a post to every configured account."`

	Filter struct {
		Platform string `help:"Only posts from this account ID or platform name"`
		Contains string `help:"Only posts whose content contains this text (case-insensitive)"`
		Limit    int    `help:"Maximum number of posts (0 = all)" default:"0"`
	} `cmd:"filter" help:"Print aggregated posts matching the given filters."`

	Preview struct{} `cmd:"preview" help:"Preview aggregated posts interactively."`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file" default:"false"`
	} `cmd:"init" help:"Write a starter configuration file."`

	Platforms struct{} `cmd:"platforms" help:"List supported platform types."`
}

func main() {
	// Parse CLI with Kong YAML configuration file loading
	ctx := kong.Parse(&CLI,
		kong.Configuration(kongyaml.Loader, "multipass.yaml", "~/.multipass/config.yaml"),
	)

	// Configure logging level based on debug flag
	if CLI.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		slog.SetLogLoggerLevel(slog.LevelWarn)
	}

	switch ctx.Command() {
	case "feed":
		generateFeed()

	case "post <message>":
		publishPost()

	case "filter":
		printFiltered()

	case "preview":
		previewPosts()

	case "init":
		initConfig()

	case "platforms":
		listPlatforms()

	default:
		panic(ctx.Command())
	}
}

// loadAggregator builds an aggregator from the configured accounts,
// authenticating each one. Accounts that fail to authenticate are skipped
// so a single dead account never takes the whole feed down.
func loadAggregator(ctx context.Context) (*aggregator.Aggregator, *config.Config) {
	cfg, err := config.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", CLI.Config, "error", err)
		os.Exit(1)
	}
	if len(cfg.Accounts) == 0 {
		slog.Error("No accounts configured", "path", CLI.Config)
		os.Exit(1)
	}

	var adapters []social.Platform
	for _, entry := range cfg.Accounts {
		account, err := entry.Account()
		if err != nil {
			slog.Error("Invalid account entry", "error", err)
			os.Exit(1)
		}

		adapter, err := platforms.CreatePlatform(account)
		if err != nil {
			slog.Error("Failed to create platform", "account", account.ID, "error", err)
			os.Exit(1)
		}

		if err := adapter.Authenticate(ctx, account.Credentials); err != nil {
			slog.Warn("Skipping account, authentication failed", "account", account.ID, "error", err)
			continue
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		slog.Error("No account authenticated successfully")
		os.Exit(1)
	}

	agg, err := aggregator.New(adapters,
		aggregator.WithTimeout(time.Duration(cfg.Aggregator.TimeoutSeconds)*time.Second),
		aggregator.WithConcurrency(cfg.Aggregator.Concurrency),
	)
	if err != nil {
		slog.Error("Failed to build aggregator", "error", err)
		os.Exit(1)
	}
	return agg, cfg
}

// fetchPosts runs an aggregation pass, folds in posts cached by earlier
// runs, and reports per-account failures. A partial result is fine; an
// all-accounts failure is fatal.
func fetchPosts(ctx context.Context, agg *aggregator.Aggregator, cfg *config.Config) []social.Post {
	posts, report := agg.UnifiedFeed(ctx)
	for id, err := range report.Errors {
		slog.Warn("Account fetch failed", "account", id, "error", err)
	}
	if report.AllFailed() {
		slog.Error("Every account failed to fetch")
		os.Exit(1)
	}

	return mergeCached(ctx, cfg, posts)
}

// mergeCached syncs the fetched posts with the cache and returns the
// accumulated set across runs, newest first. Without a cache path, or when
// the cache misbehaves, the fresh fetch stands alone.
func mergeCached(ctx context.Context, cfg *config.Config, posts []social.Post) []social.Post {
	if cfg.Cache.Path == "" {
		return posts
	}

	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		slog.Warn("Cache unavailable", "path", cfg.Cache.Path, "error", err)
		return posts
	}
	defer func() { _ = store.Close() }()

	retain := time.Duration(cfg.Cache.RetainDays) * 24 * time.Hour
	merged, err := store.Sync(ctx, posts, retain)
	if err != nil {
		slog.Warn("Cache sync failed", "error", err)
		return posts
	}
	slog.Debug("Merged cached posts", "fetched", len(posts), "accumulated", len(merged))

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged
}

func generateFeed() {
	ctx := context.Background()
	agg, cfg := loadAggregator(ctx)
	posts := fetchPosts(ctx, agg, cfg)
	posts = limitPosts(posts, CLI.Feed.Limit)

	items := feed.FromPosts(posts, agg.PostURL)
	gen := feed.NewGenerator(cfg.Feed.Title, cfg.Feed.Description, cfg.Feed.Link, cfg.Feed.Author)

	outfile := CLI.Feed.Outfile
	if outfile == "" {
		outfile = cfg.Feed.OutputPath
	}

	if outfile == "-" {
		if err := gen.Write(os.Stdout, items, feed.FeedType(CLI.Feed.Format)); err != nil {
			slog.Error("Failed to write feed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := gen.SaveToFile(items, feed.FeedType(CLI.Feed.Format), outfile); err != nil {
		slog.Error("Failed to write feed", "path", outfile, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d posts to %s\n", len(items), outfile)
}

func publishPost() {
	ctx := context.Background()
	agg, _ := loadAggregator(ctx)

	metadata := map[string]string{}
	if CLI.Post.Title != "" {
		metadata["title"] = CLI.Post.Title
	}
	if CLI.Post.Visibility != "" {
		metadata["visibility"] = CLI.Post.Visibility
	}

	report := agg.PublishAll(ctx, CLI.Post.Message, metadata)
	fmt.Println(report.Summary())
	if report.AllFailed() {
		os.Exit(1)
	}
}

func printFiltered() {
	ctx := context.Background()
	agg, cfg := loadAggregator(ctx)

	var filters []social.Filter
	if CLI.Filter.Platform != "" {
		filters = append(filters, social.Filter{Platform: CLI.Filter.Platform})
	}
	if CLI.Filter.Contains != "" {
		needle := strings.ToLower(CLI.Filter.Contains)
		filters = append(filters, social.Filter{
			Predicate: func(p social.Post) bool {
				return strings.Contains(strings.ToLower(p.Content), needle)
			},
		})
	}

	// Filters apply to the merged set so cached posts are filtered too.
	posts := fetchPosts(ctx, agg, cfg)
	posts = social.ApplyFilters(posts, filters)

	posts = limitPosts(posts, CLI.Filter.Limit)
	for i, post := range posts {
		fmt.Println(preview.FormatCompactListItem(i, post))
	}
}

func previewPosts() {
	ctx := context.Background()
	agg, cfg := loadAggregator(ctx)
	posts := fetchPosts(ctx, agg, cfg)

	if err := preview.Run(posts, "all accounts", agg.PostURL); err != nil {
		slog.Error("Preview failed", "error", err)
		os.Exit(1)
	}
}

// initConfig writes a starter configuration with one sample account per
// platform. Credentials are referenced by environment variable name, never
// written to the file.
func initConfig() {
	if !CLI.Init.Force {
		if _, err := os.Stat(CLI.Config); err == nil {
			slog.Error("Configuration file already exists, use --force to overwrite", "path", CLI.Config)
			os.Exit(1)
		}
	}

	cfg := &config.Config{}
	cfg.Aggregator.TimeoutSeconds = 30
	cfg.Aggregator.Concurrency = 4
	cfg.Feed.Title = "Multipass"
	cfg.Feed.Description = "Aggregated social media feed"
	cfg.Feed.Link = "https://example.com"
	cfg.Feed.Author = "multipass"
	cfg.Feed.OutputPath = "multipass.xml"
	cfg.Cache.Path = "multipass.db"
	cfg.Cache.RetainDays = 30
	cfg.Accounts = []config.AccountConfig{
		{
			ID:       "mastodon-main",
			Platform: "mastodon",
			BaseURL:  "https://mastodon.social",
			TokenEnv: "MASTODON_TOKEN",
		},
		{
			ID:              "reddit-main",
			Platform:        "reddit",
			UsernameEnv:     "REDDIT_USERNAME",
			PasswordEnv:     "REDDIT_PASSWORD",
			ClientIDEnv:     "REDDIT_CLIENT_ID",
			ClientSecretEnv: "REDDIT_CLIENT_SECRET",
			Options:         map[string]string{"subreddit": "golang"},
		},
		{
			ID:       "blog",
			Platform: "rssbridge",
			BaseURL:  "https://example.com/feed.xml",
		},
	}

	if err := config.SaveConfig(cfg, CLI.Config); err != nil {
		slog.Error("Failed to write configuration", "path", CLI.Config, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote starter configuration to %s\n", CLI.Config)
}

func listPlatforms() {
	for _, name := range platforms.ListPlatforms() {
		if info, err := platforms.DefaultRegistry.Get(name); err == nil {
			fmt.Printf("%-12s %s\n", name, info.Description)
		} else {
			fmt.Println(name)
		}
	}
}

func limitPosts(posts []social.Post, limit int) []social.Post {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
