package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/entity"
	"github.com/teranos/uniassoc/sym"
)

// VoteCmd manages up and down votes
var VoteCmd = &cobra.Command{
	Use:   "vote",
	Short: sym.Vote + " Vote on entities",
	Long: sym.Vote + ` vote: Up and down votes

A user holds at most one vote per entity; voting the other way replaces it.
The entity's score is upvotes minus downvotes.

Examples:
  uniassoc vote up u1 post-1
  uniassoc vote down u1 post-1     # replaces the upvote
  uniassoc vote undown u1 post-1`,
}

var voteUpCmd = &cobra.Command{
	Use:   "up <user> <entity>",
	Short: "Upvote an entity",
	Args:  cobra.ExactArgs(2),
	RunE: voteRunner(func(ctx context.Context, v *capability.Voteable, e *entity.Record, user string) (bool, error) {
		return true, v.Vote(ctx, e, user)
	}),
}

var voteDownCmd = &cobra.Command{
	Use:   "down <user> <entity>",
	Short: "Downvote an entity",
	Args:  cobra.ExactArgs(2),
	RunE: voteRunner(func(ctx context.Context, v *capability.Voteable, e *entity.Record, user string) (bool, error) {
		return true, v.Downvote(ctx, e, user)
	}),
}

var voteUnvoteCmd = &cobra.Command{
	Use:   "unvote <user> <entity>",
	Short: "Remove an upvote",
	Args:  cobra.ExactArgs(2),
	RunE: voteRunner(func(ctx context.Context, v *capability.Voteable, e *entity.Record, user string) (bool, error) {
		return v.Unvote(ctx, e, user)
	}),
}

var voteUndownCmd = &cobra.Command{
	Use:   "undown <user> <entity>",
	Short: "Remove a downvote",
	Args:  cobra.ExactArgs(2),
	RunE: voteRunner(func(ctx context.Context, v *capability.Voteable, e *entity.Record, user string) (bool, error) {
		return v.UnDownvote(ctx, e, user)
	}),
}

func init() {
	VoteCmd.AddCommand(voteUpCmd)
	VoteCmd.AddCommand(voteDownCmd)
	VoteCmd.AddCommand(voteUnvoteCmd)
	VoteCmd.AddCommand(voteUndownCmd)
}

type voteFunc func(ctx context.Context, v *capability.Voteable, e *entity.Record, user string) (bool, error)

func voteRunner(fn voteFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *backend) error {
			ctx := cmd.Context()
			user := args[0]

			e, err := b.entity(ctx, args[1])
			if err != nil {
				return err
			}
			votes := b.voteable()

			changed, err := fn(ctx, votes, e, user)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "no such vote")
			}

			if err := votes.SetUserVote(ctx, user, []capability.VoteAnnotated{e}); err != nil {
				return err
			}
			current := e.UserVote()
			if current == "" {
				current = "none"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s score %d (%s: %s)\n", sym.Vote, e.ID, e.VoteCount(), user, current)
			return nil
		})
	}
}
