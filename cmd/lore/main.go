package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/identity"
	. "github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/model"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/store"
)

// version is set by goreleaser via ldflags: -X main.version=...
var version = "dev"

// CLI is the root command tree. Every subcommand talks to the store and
// other internal packages through Context; none reimplements their logic.
type CLI struct {
	Debug  bool   `help:"Enable debug logging." short:"d"`
	Trace  bool   `help:"Enable trace logging." short:"t"`
	Format string `help:"Output format for human-facing commands." enum:"text,json,markdown" default:"text"`

	Init        InitCmd        `cmd:"" help:"Initialize the local store and machine identity."`
	Import      ImportCmd      `cmd:"" help:"Scan every available watcher and import new sessions."`
	Sessions    SessionsCmd    `cmd:"" help:"List recent sessions."`
	Show        ShowCmd        `cmd:"" help:"Show a session's full transcript."`
	Current     CurrentCmd     `cmd:"" help:"Show the most recent session for the current directory."`
	Context     ContextCmd     `cmd:"" help:"Print a token-budgeted transcript for feeding to an assistant."`
	Search      SearchCmd      `cmd:"" help:"Full-text search over message content."`
	Export      ExportCmd      `cmd:"" help:"Export a session to markdown or JSON, with optional redaction."`
	Delete      DeleteCmd      `cmd:"" help:"Delete a session and its associated data."`
	Summarize   SummarizeCmd   `cmd:"" help:"Generate a prose summary of a session via an LLM provider."`
	Tag         TagCmd         `cmd:"" help:"Attach or remove a tag on a session."`
	Link        LinkCmd        `cmd:"" help:"Manually link a session to a commit."`
	Unlink      UnlinkCmd      `cmd:"" help:"Remove a session<->commit link."`
	Blame       BlameCmd       `cmd:"" help:"Show sessions linked to the commit that last touched file:line."`
	Hooks       HooksCmd       `cmd:"" help:"Install, update, or remove lore's git hooks."`
	DB          DBCmd          `cmd:"db" help:"Local database maintenance."`
	Cloud       CloudCmd       `cmd:"" help:"End-to-end encrypted sync with the cloud service."`
	Daemon      DaemonCmd      `cmd:"" help:"Background watcher + importer process."`
	Doctor      DoctorCmd      `cmd:"" help:"Diagnose the local installation."`
	Config      ConfigCmd      `cmd:"config" help:"Read or write config.yaml."`
	Completions CompletionsCmd `cmd:"" help:"Print a shell completion script."`
	Insights    InsightsCmd    `cmd:"" help:"Aggregate report over tags, summaries and activity."`
	Version     VersionCmd     `cmd:"" help:"Show version."`
}

// Context carries flags and lazily-opened resources shared by every
// command's Run method.
type Context struct {
	Debug  bool
	Trace  bool
	Format string

	cfg   *config.Config
	store *store.Store
}

// Cfg lazily loads config.yaml once per process, merging in a repo-local
// .lore.yaml override (if the current directory or an ancestor has one).
func (c *Context) Cfg() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "load config", err)
	}
	cfg, err := config.LoadWithProjectOverride(wd)
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "load config", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// Store lazily opens the local SQLite store once per process.
func (c *Context) Store() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	dbPath, err := paths.DBPath()
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "resolve database path", err)
	}
	st, err := store.Open(store.DefaultConfig(dbPath))
	if err != nil {
		return nil, loreerr.New(loreerr.KindStore, "open database", err)
	}
	c.store = st
	return st, nil
}

// Machine loads this installation's stable identity.
func (c *Context) Machine() (model.Machine, error) {
	m, err := identity.Load()
	if err != nil {
		return model.Machine{}, loreerr.New(loreerr.KindFileSystem, "load machine identity", err)
	}
	return m, nil
}

func (c *Context) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("lore"),
		kong.Description("Capture, store, and search the history of your AI coding sessions."),
		kong.UsageOnError(),
	)

	level := LevelInfo
	if cli.Trace {
		level = LevelTrace
	} else if cli.Debug {
		level = LevelDebug
	}
	Init(&Config{Level: level, TimeFormat: "15:04:05", ShowCaller: false})

	runCtx := &Context{Debug: cli.Debug, Trace: cli.Trace, Format: cli.Format}
	defer runCtx.Close()

	err := kctx.Run(runCtx)
	if err != nil {
		kind := loreerr.KindOf(err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(loreerr.ExitCode(kind))
	}
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run(ctx *Context) error {
	fmt.Println("lore", version)
	return nil
}
