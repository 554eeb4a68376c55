package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amirphl/avax-blinks/app/bootstrap"
	"github.com/amirphl/avax-blinks/app/services"
	businessflow "github.com/amirphl/avax-blinks/business_flow"
	"github.com/amirphl/avax-blinks/config"
	"github.com/amirphl/avax-blinks/logging"
	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/repository"
)

type cli struct {
	cfg      *config.ProductionConfig
	logger   *zap.Logger
	backend  string
	table    string
	logLevel string

	storage *bootstrap.Storage
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "blinkctl",
		Short:         "Generate and inspect Avalanche DeFi blinks",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.backend, "backend", "", "storage backend (memory, redis, postgres, sqlite, dynamodb); defaults to STORAGE_BACKEND")
	root.PersistentFlags().StringVar(&c.table, "table", "", "platform table (dashboard, generator); defaults to BLINKS_PLATFORM_TABLE")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		c.platformsCmd(),
		c.generateCmd(),
		c.listCmd(),
		c.clearCmd(),
		c.walletsCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return err
	}
	if c.backend != "" {
		cfg.Storage.Backend = c.backend
	}
	if c.table != "" {
		cfg.Blinks.PlatformTable = c.table
	}
	cfg.Logging.Output = "stderr"
	cfg.Logging.Level = c.logLevel

	logger, err := logging.New(cfg.Logging, "blinkctl")
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func (c *cli) teardown() {
	if c.storage != nil {
		c.storage.Close()
		c.storage = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *cli) records(ctx context.Context) (repository.LinkRecordRepository, error) {
	if c.storage == nil {
		s, err := bootstrap.OpenStorage(ctx, c.cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.storage = s
	}
	return bootstrap.NewLinkRecordRepository(c.storage.Store, c.logger), nil
}

func (c *cli) flow(ctx context.Context) (businessflow.BlinkFlow, error) {
	records, err := c.records(ctx)
	if err != nil {
		return nil, err
	}
	flow, _, err := bootstrap.NewBlinkFlow(c.cfg.Blinks, records, services.NoopEventPublisher{}, c.logger)
	return flow, err
}

func (c *cli) platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the platforms a blink can point at",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := models.BuiltinPlatformTable(c.cfg.Blinks.PlatformTable)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tDESTINATION")
			for _, e := range table.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, e.Title, e.DestinationURL)
			}
			return w.Flush()
		},
	}
}

func (c *cli) generateCmd() *cobra.Command {
	var address, platform string
	var copyLink bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a blink for a wallet and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			flow, err := c.flow(ctx)
			if err != nil {
				return err
			}
			metadata := businessflow.NewClientMetadata("", "blinkctl")
			metadata.Source = "cli"

			res, err := flow.GenerateBlink(ctx, address, platform, metadata)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "platform:  %s (%s)\n", res.Blink.PlatformTitle, res.Blink.Platform)
			fmt.Fprintf(out, "timestamp: %s\n", res.Blink.Timestamp)
			fmt.Fprintf(out, "display:   %s\n", res.Blink.Display)
			fmt.Fprintf(out, "actual:    %s\n", res.Blink.Actual)
			fmt.Fprintf(out, "total: %d  last 24h: %d\n", res.Summary.TotalCount, res.Summary.Last24hCount)

			if copyLink {
				if businessflow.CopyToClipboard(ctx, services.NewSystemClipboard(), res.Blink.Actual, c.logger) {
					fmt.Fprintln(out, "copied actual link to clipboard")
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "could not copy link to clipboard")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	cmd.Flags().StringVar(&platform, "platform", "", "platform id")
	cmd.Flags().BoolVar(&copyLink, "copy", false, "copy the actual link to the system clipboard")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var address string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a wallet's blinks, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := c.flow(cmd.Context())
			if err != nil {
				return err
			}
			res, err := flow.ListBlinks(cmd.Context(), address)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintf(out, "wallet %s  total: %d  last 24h: %d\n", res.Wallet.DisplayAddress, res.Summary.TotalCount, res.Summary.Last24hCount)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIMESTAMP\tPLATFORM\tACTUAL")
			for _, b := range res.Blinks {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Timestamp, b.PlatformTitle, b.Actual)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func (c *cli) clearCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored blink for a wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := c.flow(cmd.Context())
			if err != nil {
				return err
			}
			if err := flow.ClearBlinks(cmd.Context(), address); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared blinks for %s\n", models.TruncateAddress(address))
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func (c *cli) walletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallets",
		Short: "List wallets with stored blinks (memory, redis, postgres and sqlite backends)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := c.flow(cmd.Context())
			if err != nil {
				return err
			}
			wallets, err := flow.ListWallets(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range wallets {
				fmt.Fprintln(cmd.OutOrStdout(), w.Address)
			}
			return nil
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the JSON-RPC wallet's active account and print its blinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			records, err := c.records(ctx)
			if err != nil {
				return err
			}

			var provider services.WalletProvider
			if c.cfg.Wallet.RPCURL != "" {
				rpcProvider, err := services.DialRPCWalletProvider(ctx, c.cfg.Wallet, c.logger)
				if err != nil {
					return err
				}
				defer rpcProvider.Close()
				provider = rpcProvider
			}

			return runWatch(ctx, cmd, businessflow.NewSessionWatcher(provider, records, nil, c.logger), connect)
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "request account access before watching")
	return cmd
}

// runWatch prints one JSON line per snapshot until ctx is done
func runWatch(ctx context.Context, cmd *cobra.Command, watcher businessflow.SessionWatcher, connect bool) error {
	updates := make(chan businessflow.SessionSnapshot, 16)
	sub := watcher.Subscribe(updates)
	defer watcher.Close()
	defer sub.Unsubscribe()

	if err := watcher.Start(ctx); err != nil {
		return err
	}
	if connect {
		if err := watcher.Connect(ctx); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for {
		select {
		case snap := <-updates:
			if snap.State == businessflow.SessionNoWallet {
				fmt.Fprintln(cmd.ErrOrStderr(), businessflow.NoWalletMessage)
			}
			if err := enc.Encode(snap); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
