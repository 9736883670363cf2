package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	apiURL    string
	apiToken  string
	cronToken string
	verbose   bool
	outputFmt string
)

// configKeys are the settings `config set` accepts.
var configKeys = []string{"api_url", "api_token", "cron_token"}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tracker-cli",
	Short: "Tree Tracker CLI - digest operations from the terminal",
	Long: `tracker-cli triggers and previews the overdue-alerts and
inspection-reminders digests and checks API health.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConfig()
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "API URL: %s\n", apiURL)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tracker-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Tracker API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "staff bearer token (preview)")
	rootCmd.PersistentFlags().StringVar(&cronToken, "cron-token", "", "cron shared secret (trigger)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("cron_token", rootCmd.PersistentFlags().Lookup("cron-token"))

	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tracker-cli")
	}

	// Environment variables: TRACKER_API_URL, TRACKER_API_TOKEN, TRACKER_CRON_TOKEN
	viper.SetEnvPrefix("TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
	if apiToken == "" {
		apiToken = viper.GetString("api_token")
	}
	if cronToken == "" {
		cronToken = viper.GetString("cron_token")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
}

func newClient() *TrackerClient { return NewTrackerClient(apiURL, apiToken, cronToken) }

// Digest commands
var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Trigger or preview digests",
}

var (
	triggerAsync  bool
	previewFormat string
)

var digestTriggerCmd = &cobra.Command{
	Use:       "trigger <overdue-alerts|inspection-reminders>",
	Short:     "Run a digest now",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"overdue-alerts", "inspection-reminders"},
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newClient().Trigger(cmd.Context(), args[0], triggerAsync)
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Result)
		if res.RunID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Run: %s\n", res.RunID)
		}
		return nil
	},
}

var digestPreviewCmd = &cobra.Command{
	Use:   "preview <overdue-alerts|inspection-reminders>",
	Short: "Show the digest you would receive now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		switch previewFormat {
		case "html", "text":
			body, err := c.PreviewRaw(cmd.Context(), args[0], previewFormat)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), body)
			return nil
		}
		p, err := c.Preview(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(cmd.OutOrStdout(), p)
		}
		printPreview(cmd.OutOrStdout(), p)
		return nil
	},
}

func printPreview(w io.Writer, p PreviewResponse) {
	fmt.Fprintf(w, "%s\n", p.Subject)
	fmt.Fprintf(w, "To: %s  Generated: %s\n\n", p.Recipient, p.GeneratedAt)
	fmt.Fprintf(w, "%-6s %-16s %-36s %-8s %-16s %-16s\n", "ID", "ZONE", "ITEM", "LEVEL", "OWNER", "AGE")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for _, r := range p.Rows {
		fmt.Fprintf(w, "%-6d %-16s %-36s %-8s %-16s %-16s\n", r.ID, r.Zone, r.Label, r.Level, r.Owner, r.Staleness)
	}
	if p.Shown < p.Total {
		fmt.Fprintf(w, "\nShowing %d of %d.\n", p.Shown, p.Total)
	} else {
		fmt.Fprintf(w, "\nTotal: %d\n", p.Total)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check API health",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}
		if outputFmt == "json" {
			return writeJSON(cmd.OutOrStdout(), h)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\nVersion: %s\nDatabase: %s\nCache: %s\n", h.Status, h.Version, h.DB, h.Cache)
		return nil
	},
}

// Configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a CLI setting (api_url, api_token, cron_token)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isConfigKey(args[0]) {
			return fmt.Errorf("unknown config key %q (want one of %s)", args[0], strings.Join(configKeys, ", "))
		}
		viper.Set(args[0], args[1])

		path := viper.ConfigFileUsed()
		if path == "" {
			path = cfgFile
		}
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			path = filepath.Join(home, ".tracker-cli.yaml")
		}
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Current Configuration:")
		fmt.Fprintf(w, "API URL: %s\n", apiURL)
		fmt.Fprintf(w, "API Token: %s\n", maskToken(apiToken))
		fmt.Fprintf(w, "Cron Token: %s\n", maskToken(cronToken))
		if viper.ConfigFileUsed() != "" {
			fmt.Fprintf(w, "Config file: %s\n", viper.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	digestTriggerCmd.Flags().BoolVar(&triggerAsync, "async", false, "return immediately; the run continues server-side")
	digestPreviewCmd.Flags().StringVar(&previewFormat, "format", "json", "json, html or text")
	digestCmd.AddCommand(digestTriggerCmd)
	digestCmd.AddCommand(digestPreviewCmd)

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func isConfigKey(k string) bool {
	for _, c := range configKeys {
		if c == k {
			return true
		}
	}
	return false
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func logVerbose(format string, args ...any) {
	if verbose {
		log.Printf("[VERBOSE] "+format, args...)
	}
}
