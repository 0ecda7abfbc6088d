package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/uniassoc/am"
	"github.com/teranos/uniassoc/assoc"
	"github.com/teranos/uniassoc/capability"
	"github.com/teranos/uniassoc/entity"
	"github.com/teranos/uniassoc/errors"
)

// setupCLI points configuration at a fresh temp dir with its own database.
func setupCLI(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("UNIASSOC_DATABASE_PATH", filepath.Join(dir, "test.db"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	pterm.DisableStyling()
	am.Reset()
	t.Cleanup(func() {
		os.Chdir(wd)
		am.Reset()
	})
	return dir
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes one CLI invocation and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "uniassoc", SilenceUsage: true, SilenceErrors: true}
	for _, c := range []*cobra.Command{AmCmd, AssocCmd, EntityCmd, ActCmd, ReactCmd, VoteCmd, FollowCmd, DbCmd, VersionCmd} {
		resetFlags(c)
		root.AddCommand(c)
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestEntityCommands(t *testing.T) {
	setupCLI(t)

	assert.Contains(t, mustRun(t, "entity", "create", "post-1", "--kind", "post"), "created post-1 (post)")
	mustRun(t, "entity", "create", "user-1", "--kind", "user")

	_, err := run(t, "entity", "create", "post-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	out := mustRun(t, "entity", "show", "post-1")
	assert.Contains(t, out, "post-1")
	assert.Contains(t, out, "like", "default reactions are shown at zero")

	var records []*entity.Record
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "entity", "ls", "--kind", "post", "--format", "json")), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "post-1", records[0].ID)

	_, err = run(t, "entity", "show", "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestActCommand(t *testing.T) {
	setupCLI(t)
	mustRun(t, "entity", "create", "post-1")

	out := mustRun(t, "act", "u1", "post-1", "like")
	assert.Contains(t, out, "registered")
	assert.Contains(t, out, "like on post-1: 1")

	assert.Contains(t, mustRun(t, "act", "u1", "post-1", "like"), "already registered")
	mustRun(t, "act", "u2", "post-1", "like")
	mustRun(t, "act", "u1", "post-1", "share")

	out = mustRun(t, "act", "u1", "post-1", "like", "--undo")
	assert.Contains(t, out, "undone")
	assert.Contains(t, out, "like on post-1: 1")

	assert.Contains(t, mustRun(t, "act", "u2", "post-1", "--undo-all"), "undone: [like]")
	assert.Contains(t, mustRun(t, "act", "u2", "post-1", "--undo-all"), "nothing to undo")

	_, err := run(t, "act", "u1", "post-1")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = run(t, "act", "u1", "post-1", "like", "--undo", "--undo-all")
	assert.Error(t, err)

	assert.Equal(t, "1\n", mustRun(t, "assoc", "count", "post-1", "share"))
}

func TestReactCommand(t *testing.T) {
	setupCLI(t)
	mustRun(t, "entity", "create", "post-1")

	out := mustRun(t, "react", "u1", "post-1", "wow")
	assert.Contains(t, out, "reacted")
	assert.Contains(t, out, "wow")
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "heart")

	out = mustRun(t, "react", "u1", "post-1", "wow", "--undo")
	assert.Contains(t, out, "removed")
	assert.NotContains(t, out, "*")

	mustRun(t, "vote", "up", "u2", "post-1")
	mustRun(t, "act", "u2", "post-1", "share")
	out = mustRun(t, "react", "u2", "post-1", "heart")
	assert.NotContains(t, out, capability.VoteUp, "votes are not reactions")
	assert.NotContains(t, out, "share", "actions are not reactions")
}

func TestVoteCommands(t *testing.T) {
	setupCLI(t)
	mustRun(t, "entity", "create", "post-1")

	assert.Contains(t, mustRun(t, "vote", "up", "u1", "post-1"), "score 1 (u1: voteup)")
	assert.Contains(t, mustRun(t, "vote", "down", "u1", "post-1"), "score -1 (u1: votedown)")
	assert.Contains(t, mustRun(t, "vote", "unvote", "u1", "post-1"), "no such vote")

	out := mustRun(t, "vote", "undown", "u1", "post-1")
	assert.Contains(t, out, "score 0 (u1: none)")

	var records []*entity.Record
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "entity", "ls", "--format", "json")), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Votes)
}

func TestFollowCommands(t *testing.T) {
	setupCLI(t)

	assert.Contains(t, mustRun(t, "follow", "add", "alice", "bob"), "following")
	assert.Contains(t, mustRun(t, "follow", "add", "alice", "bob"), "already following")
	mustRun(t, "follow", "add", "carol", "bob")

	assert.Equal(t, "2\n", mustRun(t, "follow", "count", "bob"))

	out := mustRun(t, "follow", "ls", "bob", "--limit", "1")
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "carol")

	assert.Contains(t, mustRun(t, "follow", "remove", "alice", "bob"), "unfollowed")
	assert.Equal(t, "1\n", mustRun(t, "follow", "count", "bob"))
}

func TestAssocCommands(t *testing.T) {
	setupCLI(t)

	assert.Contains(t, mustRun(t, "assoc", "create", "u1", "a", "like", "--unique"), "created")
	assert.Contains(t, mustRun(t, "assoc", "create", "u1", "a", "like", "--unique"), "already exists")
	mustRun(t, "assoc", "create", "u1", "b", "share", "-n", "custom")
	mustRun(t, "assoc", "create", "u1", "b", "share")

	assert.Equal(t, "true\n", mustRun(t, "assoc", "has", "u1", "a", "like"))
	assert.Equal(t, "false\n", mustRun(t, "assoc", "has", "u1", "a", "share"))

	var records []assoc.Association
	require.NoError(t, yaml.Unmarshal([]byte(mustRun(t, "assoc", "ls", "u1", "a", "b", "--format", "yaml")), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].DestinationID)
	assert.Equal(t, "b", records[1].DestinationID)

	assert.Contains(t, mustRun(t, "assoc", "who", "a"), "u1")
	assert.Contains(t, mustRun(t, "assoc", "remove-all", "u1", "b"), "removed: [share]")
	assert.Equal(t, "true\n", mustRun(t, "assoc", "has", "u1", "b", "share", "-n", "custom"))

	_, err := run(t, "assoc", "ls", "u1", "a", "--format", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestDbRepair(t *testing.T) {
	setupCLI(t)
	mustRun(t, "entity", "create", "post-1")
	mustRun(t, "act", "u1", "post-1", "like")
	mustRun(t, "react", "u1", "post-1", "heart")
	mustRun(t, "vote", "up", "u1", "post-1")
	mustRun(t, "act", "u1", "post-1", "save", "-n", "bookmark")

	// Edges written without their counters.
	mustRun(t, "assoc", "create", "u2", "post-1", "like", "--unique")
	mustRun(t, "assoc", "create", "u2", "post-1", capability.VoteUp, "--unique", "-n", assoc.NamespaceVote)
	mustRun(t, "assoc", "create", "u2", "post-1", "save", "--unique", "-n", "bookmark")

	var drift []capability.Drift
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "db", "repair", "--format", "json")), &drift))
	assert.Equal(t, []capability.Drift{
		{EntityID: "post-1", Namespace: "action", Type: "like", Cached: 1, Actual: 2},
		{EntityID: "post-1", Namespace: "bookmark", Type: "save", Cached: 1, Actual: 2},
		{EntityID: "post-1", Namespace: "vote", Type: capability.VoteUp, Cached: 1, Actual: 2},
		{EntityID: "post-1", Namespace: "vote", Type: "vote_count", Cached: 1, Actual: 2},
	}, drift)

	drift = nil
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "db", "repair", "post-1", "--format", "json")), &drift))
	assert.Empty(t, drift, "heart and the other counters survived the repair")

	out := mustRun(t, "entity", "show", "post-1")
	assert.Contains(t, out, "bookmark/save")
	assert.Contains(t, out, "action/like")

	out = mustRun(t, "db", "stats")
	assert.Contains(t, out, "Total Associations: 7")
	assert.Contains(t, out, "Entities:           1")
}

func TestBadgerBackend(t *testing.T) {
	dir := setupCLI(t)
	t.Setenv("UNIASSOC_DATABASE_BACKEND", "badger")
	t.Setenv("UNIASSOC_DATABASE_BADGER_DIR", filepath.Join(dir, "badger"))

	mustRun(t, "entity", "create", "post-1")
	mustRun(t, "act", "u1", "post-1", "like")
	mustRun(t, "act", "u2", "post-1", "like")

	assert.Equal(t, "2\n", mustRun(t, "assoc", "count", "post-1", "like"))

	out := mustRun(t, "db", "stats")
	assert.Contains(t, out, "Backend:            badger")
	assert.Contains(t, out, "Total Associations: 2")
}

func TestAmCommands(t *testing.T) {
	dir := setupCLI(t)
	path := filepath.Join(dir, "conf", am.ConfigFileName)

	assert.Contains(t, mustRun(t, "am", "init", path), "Wrote default configuration")
	assert.Contains(t, mustRun(t, "am", "check", path), "is valid")

	out := mustRun(t, "am", "show", "--format", "yaml")
	assert.Contains(t, out, "backend: sqlite")

	out = mustRun(t, "am", "show", "--sources")
	assert.Contains(t, out, "database.path")
	assert.Contains(t, out, "UNIASSOC_DATABASE_PATH")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[databse]\npath = \"x\"\n"), 0644))
	_, err := run(t, "am", "check", bad)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestVersionCommand(t *testing.T) {
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "version", "--json")), &info))
	assert.Equal(t, "dev", info["version"])
	assert.Contains(t, mustRun(t, "version"), "uniassoc dev")
}
