package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/sym"
)

// ActCmd records a named action by a user on an entity
var ActCmd = &cobra.Command{
	Use:   "act <user> <entity> [action]",
	Short: sym.Action + " Register or undo an action",
	Long: sym.Action + ` act: Register a user's action on an entity and keep its counter

An action is recorded at most once per user, entity and action name.

Examples:
  uniassoc act u1 post-1 like              # u1 likes post-1
  uniassoc act u1 post-1 like --undo       # take it back
  uniassoc act u1 post-1 --undo-all        # remove every action by u1 on post-1`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runAct,
}

// ReactCmd records a reaction by a user on an entity
var ReactCmd = &cobra.Command{
	Use:   "react <user> <entity> <reaction>",
	Short: sym.Reaction + " Add or remove a reaction",
	Long: sym.Reaction + ` react: React to an entity and show its reaction list

Default reactions (reactions.defaults) are always listed, even at zero.

Examples:
  uniassoc react u1 post-1 heart
  uniassoc react u1 post-1 heart --undo`,
	Args: cobra.ExactArgs(3),
	RunE: runReact,
}

var (
	actNamespace string
	actUndo      bool
	actUndoAll   bool
	reactUndo    bool
)

func init() {
	ActCmd.Flags().StringVarP(&actNamespace, "namespace", "n", assoc.NamespaceAction, "Action namespace")
	ActCmd.Flags().BoolVar(&actUndo, "undo", false, "Undo the action")
	ActCmd.Flags().BoolVar(&actUndoAll, "undo-all", false, "Undo every action by the user on the entity")
	ActCmd.MarkFlagsMutuallyExclusive("undo", "undo-all")

	ReactCmd.Flags().BoolVar(&reactUndo, "undo", false, "Remove the reaction")
}

func runAct(cmd *cobra.Command, args []string) error {
	if !actUndoAll && len(args) < 3 {
		return errors.NewInvalidRequestError("an action name is required unless --undo-all is set")
	}

	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user := args[0]

		e, err := b.entity(ctx, args[1])
		if err != nil {
			return err
		}
		act := b.actionable(actNamespace)

		switch {
		case actUndoAll:
			undone, err := act.UndoAllActions(ctx, e, user)
			if len(undone) > 0 {
				fmt.Fprintf(out, "undone: %v\n", undone)
			} else if err == nil {
				fmt.Fprintln(out, "nothing to undo")
			}
			return err
		case actUndo:
			ok, err := act.UndoAction(ctx, e, user, args[2])
			if err != nil {
				return err
			}
			reportChange(cmd, ok, "undone", "not found")
		default:
			ok, err := act.RegisterAction(ctx, e, user, args[2])
			if err != nil {
				return err
			}
			reportChange(cmd, ok, "registered", "already registered")
		}

		if len(args) == 3 {
			fmt.Fprintf(out, "%s %s on %s: %d\n", sym.ForNamespace(actNamespace), args[2], e.ID, act.ActionCount(e, args[2]))
		}
		return nil
	})
}

func runReact(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ctx := cmd.Context()
		user, reaction := args[0], args[2]

		e, err := b.entity(ctx, args[1])
		if err != nil {
			return err
		}
		react := b.reactable()

		var ok bool
		if reactUndo {
			ok, err = react.UndoAction(ctx, e, user, reaction)
			if err != nil {
				return err
			}
			reportChange(cmd, ok, "removed", "not found")
		} else {
			ok, err = react.RegisterAction(ctx, e, user, reaction)
			if err != nil {
				return err
			}
			reportChange(cmd, ok, "reacted", "already reacted")
		}

		if err := react.SetUserReaction(ctx, user, []capability.ReactionAnnotated{e}); err != nil {
			return err
		}
		rows := [][]string{{"Reaction", "Count", "Yours"}}
		for _, r := range react.UserReactions(e) {
			mine := ""
			if r.Name == e.UserReaction() {
				mine = "*"
			}
			rows = append(rows, []string{sym.Reaction + " " + r.Name, fmt.Sprint(r.Count), mine})
		}
		return printTable(cmd.OutOrStdout(), rows)
	})
}

func reportChange(cmd *cobra.Command, changed bool, yes, no string) {
	if changed {
		fmt.Fprintln(cmd.OutOrStdout(), yes)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), no)
	}
}
