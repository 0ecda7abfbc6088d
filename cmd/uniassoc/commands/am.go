package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/uniassoc/am"
	"github.com/teranos/uniassoc/errors"
	"github.com/teranos/uniassoc/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage uniassoc configuration",
	Long: sym.AM + ` am: Manage uniassoc configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (UNIASSOC_* prefix)
2. Project config (nearest am.toml walking up)
3. User config (~/.uniassoc/am.toml)
4. System config (/etc/uniassoc/am.toml)
5. Default values

Examples:
  uniassoc am show                  # Show current configuration
  uniassoc am show --format json    # Show configuration in JSON format
  uniassoc am show --sources        # Show where every value came from
  uniassoc am init                  # Write defaults to ./am.toml
  uniassoc am check am.toml         # Reject unknown keys and bad values`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Long:  "Write the built-in defaults as TOML. An existing file is kept as .back1 (rotating up to .back3).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var amCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Strictly validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmCheck,
}

var (
	configFormat string
	showSources  bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amShowCmd.Flags().BoolVar(&showSources, "sources", false, "Show the origin of every setting")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amInitCmd)
	AmCmd.AddCommand(amCheckCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if showSources {
		info, err := am.GetConfigIntrospection()
		if err != nil {
			return err
		}
		if info.ConfigFile != "" {
			fmt.Fprintf(out, "Config file: %s\n", info.ConfigFile)
		}
		rows := [][]string{{"Key", "Value", "Source", "From"}}
		for _, s := range info.Settings {
			rows = append(rows, []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.SourcePath})
		}
		return printTable(out, rows)
	}

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Fprintln(out, string(data))
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Fprintf(out, "# uniassoc configuration\n%s", data)
	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Fprintf(out, "# uniassoc configuration\n%s", data)
	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ConfigFileName
	if len(args) == 1 {
		path = args[0]
	}
	if err := am.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote default configuration to %s\n", sym.AM, path)
	return nil
}

func runAmCheck(cmd *cobra.Command, args []string) error {
	if err := am.CheckFile(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid\n", sym.AM, args[0])
	return nil
}
