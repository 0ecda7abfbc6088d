package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/assoc/storage"
	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/db"
	"github.com/teranos/uniassoc/entity"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the uniassoc database",
	Long: sym.DB + ` db: Database statistics and counter repair

Counters are cached on entities per namespace and updated incrementally. If
a process dies between writing an association and saving the counter, repair
recomputes every counter and vote score from the stored associations, one
namespace at a time.

Examples:
  uniassoc db stats                # Associations per namespace, entities, migrations
  uniassoc db repair               # Repair every entity
  uniassoc db repair post-1 post-2 # Repair selected entities`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Args:  cobra.NoArgs,
	RunE:  runDbStats,
}

var dbRepairCmd = &cobra.Command{
	Use:   "repair [entity...]",
	Short: "Recompute counters and vote scores from stored associations",
	RunE:  runDbRepair,
}

var repairFormat string

func init() {
	dbRepairCmd.Flags().StringVar(&repairFormat, "format", formatTable, "Output format: table, json, yaml")

	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbRepairCmd)
}

func runDbStats(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		reporter, ok := b.store.(storage.StatsReporter)
		if !ok {
			return errors.Newf("backend %s does not report statistics", b.cfg.GetBackend())
		}
		stats, err := reporter.Stats(ctx)
		if err != nil {
			return err
		}

		entities, err := b.entities.List(ctx, "")
		if err != nil {
			return err
		}
		migrations, err := db.AppliedVersions(b.db)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s Database Statistics\n", sym.DB)
		fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
		fmt.Fprintf(out, "Database Path:      %s\n", b.cfg.GetDatabasePath())
		fmt.Fprintf(out, "Backend:            %s\n", stats.Backend)
		if stats.Backend == storage.BackendBadger && !b.cfg.Database.BadgerInMemory {
			fmt.Fprintf(out, "Badger Dir:         %s\n", b.cfg.Database.BadgerDir)
		}
		fmt.Fprintf(out, "Total Associations: %d\n", stats.Total)
		fmt.Fprintf(out, "Entities:           %d\n", len(entities))
		fmt.Fprintf(out, "Migrations:         %d applied\n", len(migrations))
		fmt.Fprintln(out)

		rows := [][]string{{"Namespace", "Associations"}}
		for _, row := range countRows("", stats.ByNamespace)[1:] {
			rows = append(rows, []string{sym.ForNamespace(row[0]) + " " + row[0], row[1]})
		}
		return printTable(out, rows)
	})
}

func runDbRepair(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()

		var records []*entity.Record
		if len(args) == 0 {
			all, err := b.entities.List(ctx, "")
			if err != nil {
				return err
			}
			records = all
		} else {
			for _, id := range args {
				r, err := b.entity(ctx, id)
				if err != nil {
					return err
				}
				records = append(records, r)
			}
		}

		namespaces, err := counterNamespaces(ctx, b)
		if err != nil {
			return err
		}
		votes := b.voteable()

		drift := []capability.Drift{}
		for _, r := range records {
			for _, ns := range mergeNamespaces(namespaces, r.Namespaces()) {
				var (
					d   []capability.Drift
					err error
				)
				if ns == assoc.NamespaceVote {
					d, err = votes.RecomputeVoteCount(ctx, r)
				} else {
					d, err = b.actionable(ns).RecomputeCounters(ctx, r)
				}
				drift = append(drift, d...)
				if err != nil {
					return errors.Wrapf(err, "repair %s counters of %s", ns, r.ID)
				}
			}
		}

		if repairFormat == formatTable {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Checked %d entities, repaired %d values\n", sym.Repair, len(records), len(drift))
		}
		return render(cmd.OutOrStdout(), repairFormat, drift, func() [][]string {
			rows := [][]string{{"Entity", "Namespace", "Type", "Cached", "Actual"}}
			for _, d := range drift {
				rows = append(rows, []string{d.EntityID, d.Namespace, d.Type, strconv.Itoa(d.Cached), strconv.Itoa(d.Actual)})
			}
			return rows
		})
	})
}

// counterNamespaces lists every namespace that keeps counters: the built-in
// ones plus any other namespace the store holds edges in. Follow edges carry
// no counters.
func counterNamespaces(ctx context.Context, b *backend) ([]string, error) {
	namespaces := []string{assoc.NamespaceAction, assoc.NamespaceReaction, assoc.NamespaceVote}
	reporter, ok := b.store.(storage.StatsReporter)
	if !ok {
		return namespaces, nil
	}
	stats, err := reporter.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stored := make([]string, 0, len(stats.ByNamespace))
	for ns := range stats.ByNamespace {
		stored = append(stored, ns)
	}
	return mergeNamespaces(namespaces, stored), nil
}

// mergeNamespaces returns the sorted union of a and b without follow.
func mergeNamespaces(a, b []string) []string {
	seen := map[string]bool{assoc.NamespaceFollow: true}
	var out []string
	for _, list := range [][]string{a, b} {
		for _, ns := range list {
			if !seen[ns] {
				seen[ns] = true
				out = append(out, ns)
			}
		}
	}
	sort.Strings(out)
	return out
}
