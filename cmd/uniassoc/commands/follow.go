package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/sym"
)

// FollowCmd manages follower edges. Followed ids need not be entities.
var FollowCmd = &cobra.Command{
	Use:   "follow",
	Short: sym.Follow + " Manage followers",
	Long: sym.Follow + ` follow: Follower edges between arbitrary ids

Examples:
  uniassoc follow add alice bob      # alice follows bob
  uniassoc follow ls bob --limit 20
  uniassoc follow count bob`,
}

var followAddCmd = &cobra.Command{
	Use:   "add <follower> <followed>",
	Short: "Follow an id",
	Args:  cobra.ExactArgs(2),
	RunE:  runFollowAdd,
}

var followRemoveCmd = &cobra.Command{
	Use:   "remove <follower> <followed>",
	Short: "Stop following an id",
	Args:  cobra.ExactArgs(2),
	RunE:  runFollowRemove,
}

var followLsCmd = &cobra.Command{
	Use:   "ls <followed>",
	Short: "List followers, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollowLs,
}

var followCountCmd = &cobra.Command{
	Use:   "count <followed>",
	Short: "Count followers",
	Args:  cobra.ExactArgs(1),
	RunE:  runFollowCount,
}

var followLimit int

func init() {
	followLsCmd.Flags().IntVar(&followLimit, "limit", 0, "Maximum number of followers (0 = unbounded; defaults to assoc.default_limit)")

	FollowCmd.AddCommand(followAddCmd)
	FollowCmd.AddCommand(followRemoveCmd)
	FollowCmd.AddCommand(followLsCmd)
	FollowCmd.AddCommand(followCountCmd)
}

func runFollowAdd(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ok, err := b.followable().AddFollower(cmd.Context(), capability.ID(args[1]), args[0])
		if err != nil {
			return err
		}
		reportChange(cmd, ok, "following", "already following")
		return nil
	})
}

func runFollowRemove(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		ok, err := b.followable().RemoveFollower(cmd.Context(), capability.ID(args[1]), args[0])
		if err != nil {
			return err
		}
		reportChange(cmd, ok, "unfollowed", "not following")
		return nil
	})
}

func runFollowLs(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		limit := b.limit(followLimit, cmd.Flags().Changed("limit"))
		followers, err := b.followable().Followers(cmd.Context(), capability.ID(args[0]), limit)
		if err != nil {
			return err
		}
		return printTable(cmd.OutOrStdout(), listRows("Follower", followers))
	})
}

func runFollowCount(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		n, err := b.followable().FollowerCount(cmd.Context(), capability.ID(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
}
