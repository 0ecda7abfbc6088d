package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/sym"
)

// AssocCmd gives raw access to the association engine
var AssocCmd = &cobra.Command{
	Use:   "assoc",
	Short: sym.Assoc + " Inspect and edit raw associations",
	Long: sym.Assoc + ` assoc: Raw association engine access

Associations are directed edges source -> destination carrying a namespace
and a type. Counters on entities are not touched; use act, react, vote and
follow for that.

Examples:
  uniassoc assoc create u1 post-1 like --unique
  uniassoc assoc has u1 post-1 like
  uniassoc assoc who post-1 like --limit 10
  uniassoc assoc count post-1
  uniassoc assoc ls u1 post-1 post-2 --format json`,
}

var assocCreateCmd = &cobra.Command{
	Use:   "create <source> <destination> <type>",
	Short: "Create an association",
	Args:  cobra.ExactArgs(3),
	RunE:  runAssocCreate,
}

var assocRemoveCmd = &cobra.Command{
	Use:   "remove <source> <destination> <type>",
	Short: "Remove every association of one type between two ids",
	Args:  cobra.ExactArgs(3),
	RunE:  runAssocRemove,
}

var assocRemoveAllCmd = &cobra.Command{
	Use:   "remove-all <source> <destination>",
	Short: "Remove every association between two ids in the namespace",
	Args:  cobra.ExactArgs(2),
	RunE:  runAssocRemoveAll,
}

var assocHasCmd = &cobra.Command{
	Use:   "has <source> <destination> <type>",
	Short: "Check whether an association exists",
	Args:  cobra.ExactArgs(3),
	RunE:  runAssocHas,
}

var assocCountCmd = &cobra.Command{
	Use:   "count <destination> [type]",
	Short: "Count incoming associations, per type when no type is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAssocCount,
}

var assocWhoCmd = &cobra.Command{
	Use:   "who <destination> [type]",
	Short: "List sources pointing at a destination, oldest first",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAssocWho,
}

var assocLsCmd = &cobra.Command{
	Use:   "ls <source> <destination>...",
	Short: "List associations from one source to many destinations",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAssocLs,
}

var (
	assocNamespace string
	assocUnique    bool
	assocLimit     int
	assocFormat    string
)

func init() {
	AssocCmd.PersistentFlags().StringVarP(&assocNamespace, "namespace", "n", assoc.NamespaceAction, "Association namespace")
	assocCreateCmd.Flags().BoolVar(&assocUnique, "unique", false, "Skip creation when the same edge already exists")
	assocWhoCmd.Flags().IntVar(&assocLimit, "limit", 0, "Maximum number of sources (0 = unbounded; defaults to assoc.default_limit)")
	assocLsCmd.Flags().StringVar(&assocFormat, "format", formatTable, "Output format: table, json, yaml")

	AssocCmd.AddCommand(assocCreateCmd)
	AssocCmd.AddCommand(assocRemoveCmd)
	AssocCmd.AddCommand(assocRemoveAllCmd)
	AssocCmd.AddCommand(assocHasCmd)
	AssocCmd.AddCommand(assocCountCmd)
	AssocCmd.AddCommand(assocWhoCmd)
	AssocCmd.AddCommand(assocLsCmd)
}

func runAssocCreate(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		created, err := b.engine.CreateAssociation(cmd.Context(), args[0], args[1], assocNamespace, args[2], assocUnique)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "%s created %s -[%s:%s]-> %s\n", sym.ForNamespace(assocNamespace), args[0], assocNamespace, args[2], args[1])
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "already exists")
		}
		return nil
	})
}

func runAssocRemove(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		removed, err := b.engine.RemoveAssociation(cmd.Context(), args[0], args[1], assocNamespace, args[2])
		if err != nil {
			return err
		}
		if removed {
			fmt.Fprintln(cmd.OutOrStdout(), "removed")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "not found")
		}
		return nil
	})
}

func runAssocRemoveAll(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		types, err := b.engine.RemoveAllAssociations(cmd.Context(), args[0], args[1], assocNamespace)
		if len(types) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "removed: %v\n", types)
		}
		if err != nil {
			return err
		}
		if len(types) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to remove")
		}
		return nil
	})
}

func runAssocHas(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		has, err := b.engine.HasAssociation(cmd.Context(), args[0], args[1], assocNamespace, args[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), has)
		return nil
	})
}

func runAssocCount(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		if len(args) == 2 {
			n, err := b.engine.ReverseCount(ctx, args[0], assocNamespace, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		}

		counts, err := b.engine.ReverseCountsByType(ctx, args[0], assocNamespace)
		if err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), countRows("Type", counts))
	})
}

func runAssocWho(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		var (
			sources []string
			err     error
		)
		if len(args) == 2 {
			limit := b.limit(assocLimit, cmd.Flags().Changed("limit"))
			sources, err = b.engine.ReverseAssociations(ctx, args[0], assocNamespace, args[1], limit)
		} else {
			sources, err = b.engine.AssociatedSources(ctx, args[0], assocNamespace)
		}
		if err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), listRows("Source", sources))
	})
}

func runAssocLs(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		records, err := b.engine.BatchUserAssociations(cmd.Context(), args[0], args[1:], assocNamespace)
		if err != nil {
			return err
		}
		if records == nil {
			records = []*assoc.Association{}
		}
		return render(cmd.OutOrStdout(), assocFormat, records, func() [][]string {
			rows := [][]string{{"Destination", "Type", "Created", "ID"}}
			for _, r := range records {
				rows = append(rows, []string{r.DestinationID, r.Type, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID})
			}
			return rows
		})
	})
}
