package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"vetdesk/internal/config"
	"vetdesk/internal/export"
	"vetdesk/internal/guard"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/proxy"
	"vetdesk/internal/remote"
	"vetdesk/internal/session"
)

var (
	configPath string
	sessionID  string
	token      string
	apiKey     string

	cfg    *config.Config
	sess   *session.Session
	rdb    *redis.Client
	output = &printer{}
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRoot()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", describe(err))
	}
	return err
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "vetdesk",
		Short:         "Bulk email validation console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
			logger.SetRedactPII(*cfg.Logging.RedactPII)

			cred := remote.Credential{BearerToken: cfg.Auth.Token, APIKey: cfg.Auth.APIKey}
			if token != "" {
				cred.BearerToken = token
			}
			if apiKey != "" {
				cred.APIKey = apiKey
			}
			if cred.Empty() {
				logger.Warn("no credential configured, requests go out unauthenticated")
			}

			opts := session.Options{ID: sessionID, Timeout: cfg.API.Timeout()}

			pm, err := proxy.NewManager(cfg.Proxy.URLs, cfg.Proxy.Concurrency)
			if err != nil {
				return err
			}
			if pm.Enabled() {
				opts.Remote = append(opts.Remote, remote.WithTransport(pm.Transport()))
				logger.Info("proxy rotation enabled", "proxies", len(cfg.Proxy.URLs), "concurrency", pm.Limit())
			}

			if cfg.Redis.Addr != "" {
				rdb, err = guard.Connect(cfg.Redis.Addr, cfg.Redis.Password)
				if err != nil {
					return err
				}
				opts.Redis = rdb
			}

			sess = session.New(cfg.API.BaseURL, cred, opts)
			output.w = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rdb != nil {
				rdb.Close()
				rdb = nil
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&sessionID, "session", "", "session ID shared with other consoles (needs Redis)")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token (overrides VETDESK_TOKEN)")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (overrides VETDESK_API_KEY)")

	root.AddCommand(validateCmd(), uploadCmd(), checkCmd(), exportCmd(), logsCmd(), healthCmd())
	return root
}

// sink picks where exported files are written.
func sink(ctx context.Context) (export.Sink, error) {
	if cfg.Export.S3Bucket != "" {
		return export.NewS3Sink(ctx, cfg.Export.S3Bucket, cfg.Export.S3Prefix, cfg.Export.S3Region)
	}
	return export.DirSink{Dir: cfg.Export.Dir}, nil
}
