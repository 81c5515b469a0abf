package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/todmy/stoneweight/internal/client"
	"github.com/todmy/stoneweight/internal/config"
	"github.com/todmy/stoneweight/internal/localcache"
	"github.com/todmy/stoneweight/internal/logger"
	"github.com/todmy/stoneweight/internal/metrics"
	"github.com/todmy/stoneweight/internal/workspace"
)

// sessionKey holds the saved login token next to the state document
const sessionKey = "stoneweight-session"

// app is shared by every command
type app struct {
	cfg    config.Client
	log    *logger.Logger
	store  localcache.Store
	client *client.Client
	ws     *workspace.Workspace
	close  func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, close: func() {}}

	if cfg.RedisAddr != "" {
		rs, err := localcache.NewRedisStore(ctx, cfg.RedisAddr, "stoneweight:")
		if err != nil {
			return nil, err
		}
		a.store = rs
		a.close = func() { rs.Close() }
	} else {
		fs, err := localcache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		a.store = fs
	}

	token := cfg.Token
	if token == "" {
		if data, ok, err := a.store.Load(ctx, sessionKey); err == nil && ok {
			token = strings.TrimSpace(string(data))
		}
	}

	a.client = client.New(client.WithBaseURL(cfg.APIURL), client.WithToken(token))
	a.ws = workspace.New(
		workspace.WithRemote(a.client),
		workspace.WithStore(a.store),
		workspace.WithLogger(log),
		workspace.WithOnUnauthorized(func() { a.logout(context.Background()) }),
	)

	if err := a.ws.Load(ctx); err != nil {
		log.Warn("local cache not loaded", "error", err)
	}
	return a, nil
}

func (a *app) saveToken(ctx context.Context, token string) error {
	a.client.SetToken(token)
	return a.store.Save(ctx, sessionKey, []byte(token))
}

// logout drops the saved session after the server rejected it
func (a *app) logout(ctx context.Context) {
	if err := a.saveToken(ctx, ""); err != nil {
		a.log.Warn("session not cleared", "error", err)
	}
	fmt.Fprintln(os.Stderr, "session expired, run 'stonecalc login' again")
}

func (a *app) shutdown() {
	a.close()
	a.log.Sync()
}

// newRootCmd builds the command tree. open is called once per run to
// build the shared app.
func newRootCmd(open func(ctx context.Context) (*app, error)) *cobra.Command {
	var a *app
	root := &cobra.Command{
		Use:           "stonecalc",
		Short:         "Stone weight calculator for jewelry production",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(cmd.Context())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.shutdown()
			}
		},
	}

	get := func() *app { return a }
	root.AddCommand(
		loginCmd(get),
		syncCmd(get),
		stonesCmd(get),
		modelsCmd(get),
		setsCmd(get),
		calcCmd(get),
		historyCmd(get),
		printCmd(get),
		exportCmd(get),
		importCmd(get),
		pushCmd(get),
	)
	return root
}

func main() {
	metrics.Init()

	if err := newRootCmd(newApp).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
