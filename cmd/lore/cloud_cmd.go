package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/lorehq/lore/internal/credentials"
	"github.com/lorehq/lore/internal/loreerr"
	"github.com/lorehq/lore/internal/paths"
	"github.com/lorehq/lore/internal/sync"
)

// CloudCmd groups commands that talk to the end-to-end-encrypted cloud
// sync service.
type CloudCmd struct {
	Login     CloudLoginCmd     `cmd:"" help:"Store the cloud service API key."`
	Status    CloudStatusCmd    `cmd:"" help:"Show remote session count and last sync time."`
	Push      CloudPushCmd      `cmd:"" help:"Upload unsynced sessions."`
	Pull      CloudPullCmd      `cmd:"" help:"Download sessions from other machines."`
	Sync      CloudSyncCmd      `cmd:"" help:"Pull then push."`
	ResetSync CloudResetSyncCmd `cmd:"" help:"Force every session to be re-pushed on the next sync."`
}

// CloudLoginCmd stores the API key used to authenticate every other cloud
// subcommand, read once from stdin so it never lands in shell history.
type CloudLoginCmd struct {
	APIKey string `help:"API key; omit to be prompted for it." name:"api-key"`
}

func (c *CloudLoginCmd) Run(ctx *Context) error {
	key := c.APIKey
	if key == "" {
		var err error
		key, err = readPassword("Cloud API key: ")
		if err != nil {
			return loreerr.New(loreerr.KindInput, "cloud login", err)
		}
	}
	credPath, err := paths.CredentialsPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "cloud login", err)
	}
	creds := credentials.Open(credPath)
	if err := creds.Set(credentials.KeyAPIKey, key); err != nil {
		return loreerr.New(loreerr.KindFileSystem, "cloud login", err)
	}
	fmt.Println("API key stored")
	return nil
}

// readPassword reads a passphrase from stdin without echoing it when
// attached to a terminal, falling back to a plain read otherwise so piped
// input still works.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return string(b), nil
	}
	var pw string
	if _, err := fmt.Scanln(&pw); err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return pw, nil
}

// engineFor builds a sync.Engine from stored credentials, prompting for
// and caching a passphrase-derived key on first use. The encryption salt
// lives on the server (client.GetSalt) so any machine with the right
// passphrase can derive the same key.
func engineFor(ctx *Context) (*sync.Engine, error) {
	cfg, err := ctx.Cfg()
	if err != nil {
		return nil, err
	}
	st, err := ctx.Store()
	if err != nil {
		return nil, err
	}
	machine, err := ctx.Machine()
	if err != nil {
		return nil, err
	}

	credPath, err := paths.CredentialsPath()
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "cloud", err)
	}
	creds := credentials.Open(credPath)

	apiKey, ok, err := creds.Get(credentials.KeyAPIKey)
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "cloud", err)
	}
	if !ok || apiKey == "" {
		return nil, loreerr.New(loreerr.KindInput, "cloud", fmt.Errorf("no API key stored; run `lore cloud login` first"))
	}

	client := sync.NewClient(cfg.Sync.BaseURL, apiKey)

	salt, ok, err := creds.Get(credentials.KeySalt)
	if err != nil {
		return nil, loreerr.New(loreerr.KindFileSystem, "cloud", err)
	}
	if !ok {
		remoteSalt, remoteOK, err := client.GetSalt(context.Background())
		if err != nil {
			return nil, loreerr.New(loreerr.KindNetwork, "cloud", err)
		}
		if remoteOK {
			salt = remoteSalt
		} else {
			salt, err = sync.NewSalt()
			if err != nil {
				return nil, loreerr.New(loreerr.KindCrypto, "cloud", err)
			}
			if err := client.SetSalt(context.Background(), salt); err != nil {
				return nil, loreerr.New(loreerr.KindNetwork, "cloud", err)
			}
		}
		if err := creds.Set(credentials.KeySalt, salt); err != nil {
			return nil, loreerr.New(loreerr.KindFileSystem, "cloud", err)
		}
	}

	passphrase, err := readPassword("Sync passphrase: ")
	if err != nil {
		return nil, loreerr.New(loreerr.KindInput, "cloud", err)
	}
	key, err := sync.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, loreerr.New(loreerr.KindCrypto, "cloud", err)
	}

	return sync.NewEngine(st, client, machine.ID, key), nil
}

type CloudStatusCmd struct{}

func (c *CloudStatusCmd) Run(ctx *Context) error {
	cfg, err := ctx.Cfg()
	if err != nil {
		return err
	}
	credPath, err := paths.CredentialsPath()
	if err != nil {
		return loreerr.New(loreerr.KindFileSystem, "cloud status", err)
	}
	creds := credentials.Open(credPath)
	apiKey, ok, err := creds.Get(credentials.KeyAPIKey)
	if err != nil || !ok {
		return loreerr.New(loreerr.KindInput, "cloud status", fmt.Errorf("no API key stored"))
	}

	client := sync.NewClient(cfg.Sync.BaseURL, apiKey)
	status, err := client.Status(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindNetwork, "cloud status", err)
	}
	fmt.Printf("Remote sessions: %d\nStorage used:    %d bytes\n", status.SessionCount, status.StorageUsedBytes)
	if status.LastSyncAt != nil {
		fmt.Printf("Last sync:       %s\n", status.LastSyncAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

type CloudPushCmd struct{}

func (c *CloudPushCmd) Run(ctx *Context) error {
	eng, err := engineFor(ctx)
	if err != nil {
		return err
	}
	result, err := eng.Push(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindNetwork, "cloud push", err)
	}
	fmt.Printf("Pushed %d session(s)\n", result.Synced)
	if len(result.TooLarge) > 0 {
		fmt.Printf("Skipped %d session(s) exceeding the payload size limit\n", len(result.TooLarge))
	}
	if result.QuotaExceeded != nil {
		fmt.Printf("Quota exceeded: %s\n", result.QuotaExceeded.Error())
	}
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, "error:", e)
	}
	return nil
}

type CloudPullCmd struct{}

func (c *CloudPullCmd) Run(ctx *Context) error {
	eng, err := engineFor(ctx)
	if err != nil {
		return err
	}
	result, err := eng.Pull(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindNetwork, "cloud pull", err)
	}
	fmt.Printf("Imported %d session(s); skipped %d already ours, %d not newer, %d failed to decrypt\n",
		result.Imported, result.SkippedOwn, result.SkippedNotNewer, result.DecryptErrors)
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, "error:", e)
	}
	return nil
}

type CloudSyncCmd struct{}

func (c *CloudSyncCmd) Run(ctx *Context) error {
	eng, err := engineFor(ctx)
	if err != nil {
		return err
	}
	result, err := eng.Sync(context.Background())
	if err != nil {
		return loreerr.New(loreerr.KindNetwork, "cloud sync", err)
	}
	if result.PullErr != nil {
		fmt.Fprintln(os.Stderr, "pull error:", result.PullErr)
	}
	fmt.Printf("Pulled %d, pushed %d\n", result.Pull.Imported, result.Push.Synced)
	return nil
}

type CloudResetSyncCmd struct {
	SessionID string `arg:"" optional:"" help:"Reset a single session; omit to reset sync state for every session."`
}

func (c *CloudResetSyncCmd) Run(ctx *Context) error {
	eng, err := engineFor(ctx)
	if err != nil {
		return err
	}
	if c.SessionID == "" {
		if err := eng.Reset(context.Background(), nil); err != nil {
			return loreerr.New(loreerr.KindStore, "cloud reset-sync", err)
		}
		fmt.Println("Reset sync state for all sessions")
		return nil
	}

	st, err := ctx.Store()
	if err != nil {
		return err
	}
	sess, err := st.FindSessionByIDPrefix(context.Background(), c.SessionID)
	if err != nil {
		return loreerr.New(loreerr.KindInput, "cloud reset-sync", err)
	}
	if err := eng.Reset(context.Background(), []uuid.UUID{sess.ID}); err != nil {
		return loreerr.New(loreerr.KindStore, "cloud reset-sync", err)
	}
	fmt.Println("Reset sync state for", c.SessionID)
	return nil
}
