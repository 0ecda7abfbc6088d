package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/am"
	"github.com/teranos/uniassoc/cmd/uniassoc/commands"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/logger"
)

var rootCmd = &cobra.Command{
	Use:   "uniassoc",
	Short: "uniassoc - Typed associations, counters and votes",
	Long: `uniassoc - Directed, typed associations between ids with cached counters.

Available commands:
  am     - Manage configuration ("I am")
  assoc  - Raw association engine access
  entity - Manage entities that carry counters
  act    - Register or undo actions
  react  - Add or remove reactions
  vote   - Up and down votes
  follow - Follower edges
  db     - Database statistics and counter repair

Examples:
  uniassoc entity create post-1 --kind post
  uniassoc act u1 post-1 like
  uniassoc vote up u1 post-1
  uniassoc db repair`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")

		// A broken config must not stop `am check` from reporting on it.
		if cfg, err := am.Load(); err == nil {
			jsonLogs = jsonLogs || cfg.Log.JSON
			logger.SetTheme(cfg.Log.Theme)
		}

		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON on stderr")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.AssocCmd)
	rootCmd.AddCommand(commands.EntityCmd)
	rootCmd.AddCommand(commands.ActCmd)
	rootCmd.AddCommand(commands.ReactCmd)
	rootCmd.AddCommand(commands.VoteCmd)
	rootCmd.AddCommand(commands.FollowCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		stop()
		os.Exit(1)
	}
}
