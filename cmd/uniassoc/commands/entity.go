package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/entity"
	"github.com/teranos/uniassoc/sym"
)

// EntityCmd manages the entities counters are kept on
var EntityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage entities",
	Long: `entity: Manage the entities that carry action counters and vote scores

Examples:
  uniassoc entity create post-1 --kind post
  uniassoc entity show post-1
  uniassoc entity ls --kind post --format json`,
}

var entityCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityCreate,
}

var entityShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an entity with its reactions and counters",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityShow,
}

var entityLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List entities",
	Args:  cobra.NoArgs,
	RunE:  runEntityLs,
}

var (
	createKind   string
	listKind     string
	entityFormat string
)

func init() {
	entityCreateCmd.Flags().StringVar(&createKind, "kind", "item", "Entity kind")
	entityLsCmd.Flags().StringVar(&listKind, "kind", "", "Only list entities of this kind")
	entityShowCmd.Flags().StringVar(&entityFormat, "format", formatTable, "Output format: table, json, yaml")
	entityLsCmd.Flags().StringVar(&entityFormat, "format", formatTable, "Output format: table, json, yaml")

	EntityCmd.AddCommand(entityCreateCmd)
	EntityCmd.AddCommand(entityShowCmd)
	EntityCmd.AddCommand(entityLsCmd)
}

func runEntityCreate(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		r := entity.New(args[0], createKind, time.Now())
		if err := b.entities.Create(cmd.Context(), r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", r.ID, r.Kind)
		return nil
	})
}

// entityView is what `entity show` prints in structured formats.
type entityView struct {
	entity.Record `yaml:",inline"`
	Reactions     []capability.Reaction `json:"reactions" yaml:"reactions"`
}

func runEntityShow(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		r, err := b.entity(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		reactions := b.reactable().UserReactions(r)
		view := entityView{Record: *r, Reactions: reactions}

		return render(cmd.OutOrStdout(), entityFormat, view, func() [][]string {
			rows := [][]string{
				{"Field", "Value"},
				{"ID", r.ID},
				{"Kind", r.Kind},
				{sym.Vote + " Votes", strconv.Itoa(r.Votes)},
				{"Created", r.CreatedAt.Format(time.RFC3339)},
				{"Updated", r.UpdatedAt.Format(time.RFC3339)},
			}
			for _, re := range reactions {
				rows = append(rows, []string{sym.Reaction + " " + re.Name, strconv.Itoa(re.Count)})
			}
			for _, ns := range r.Namespaces() {
				if ns == assoc.NamespaceReaction {
					continue
				}
				for _, row := range countRows("", r.Counters[ns])[1:] {
					rows = append(rows, []string{sym.ForNamespace(ns) + " " + ns + "/" + row[0], row[1]})
				}
			}
			return rows
		})
	})
}

func runEntityLs(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		records, err := b.entities.List(cmd.Context(), listKind)
		if err != nil {
			return err
		}
		if records == nil {
			records = []*entity.Record{}
		}
		return render(cmd.OutOrStdout(), entityFormat, records, func() [][]string {
			rows := [][]string{{"ID", "Kind", "Votes", "Counters", "Created"}}
			for _, r := range records {
				rows = append(rows, []string{
					r.ID, r.Kind, strconv.Itoa(r.Votes),
					strconv.Itoa(counterKeys(r)),
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			return rows
		})
	})
}

// counterKeys counts the counters kept on r across namespaces.
func counterKeys(r *entity.Record) int {
	n := 0
	for _, counters := range r.Counters {
		n += len(counters)
	}
	return n
}
