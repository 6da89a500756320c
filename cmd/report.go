// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/triage-tools/github-triage/internal/cache"
	"github.com/triage-tools/github-triage/internal/config"
	"github.com/triage-tools/github-triage/internal/domain"
	"github.com/triage-tools/github-triage/internal/gateway"
	"github.com/triage-tools/github-triage/internal/report"
	"github.com/triage-tools/github-triage/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Builds an HTML review-status report for one project",
	Long: `Lists a project's open and recently closed pull requests, classifies
each one by review status (unreviewed, needs work, needs decision, and so
on), and writes an HTML report. Fetched state is cached in a local file so
repeated runs only touch pull requests that changed since the last run.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		s, err := buildSettings(cmd)
		if err != nil {
			return err
		}

		token, err := resolveToken(s.authPrompt, os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Fprintln(os.Stderr, "Warning: no access token; anonymous requests are heavily rate limited.")
		}

		store := cache.NewStore(s.cacheFile, logger)
		if err := store.Load(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "using %s as cache (remove it if you want fresh data)\n", s.cacheFile)

		if s.evictClosed > 0 {
			cutoff := time.Now().AddDate(0, 0, -s.evictClosed)
			if n := store.EvictClosedBefore(cutoff); n > 0 {
				logger.Printf("Evicted %d closed pull requests from the cache.", n)
			}
		}

		// Inject dependencies and run the main business logic.
		source, err := gateway.NewGitHubGateway(token, s.timeout, s.closedWindow, store, logger)
		if err != nil {
			return fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		triager := usecase.NewTriager(source, s.rules, s.workers, logger)

		result, err := triager.Triage(ctx, s.project)
		if err != nil {
			return fmt.Errorf("failed to triage %s: %w", s.project, err)
		}
		for _, f := range result.Unavailable {
			fmt.Fprintf(os.Stderr, "Warning: pull request #%d unavailable: %s\n", f.Number, f.Reason)
		}

		var out io.Writer = os.Stdout
		if s.output != "-" {
			f, err := os.Create(s.output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := report.RenderHTML(out, result); err != nil {
			return err
		}

		// A failed cache flush degrades the next run but not this one.
		if err := store.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save cache: %v\n", err)
		}
		return nil
	},
}

// settings is the merged view of the command line and the optional
// config file. Flags that were explicitly set always win.
type settings struct {
	project      string
	cacheFile    string
	output       string
	closedWindow time.Duration
	timeout      time.Duration
	evictClosed  int
	workers      int
	rules        domain.LabelRules
	authPrompt   bool
}

func buildSettings(cmd *cobra.Command) (*settings, error) {
	cfg := &config.Config{}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	return mergeSettings(cmd, cfg)
}

func mergeSettings(cmd *cobra.Command, cfg *config.Config) (*settings, error) {
	fileTimeout, err := cfg.ParseTimeout()
	if err != nil {
		return nil, err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !cmd.Flags().Changed("timeout") && fileTimeout > 0 {
		timeout = fileTimeout
	}

	s := &settings{
		project:      stringSetting(cmd, "project", cfg.Project),
		cacheFile:    stringSetting(cmd, "cache-file", cfg.CacheFile),
		output:       stringSetting(cmd, "output", cfg.Output),
		closedWindow: time.Duration(intSetting(cmd, "closed-window", cfg.ClosedWindow)) * 24 * time.Hour,
		timeout:      timeout,
		evictClosed:  intSetting(cmd, "evict-closed", cfg.EvictClosed),
		workers:      intSetting(cmd, "workers", cfg.Workers),
		rules: domain.LabelRules{
			NeedsWork:     stringSetting(cmd, "label-needs-work", cfg.Labels.NeedsWork),
			NeedsDecision: stringSetting(cmd, "label-needs-decision", cfg.Labels.NeedsDecision),
			NeedsChampion: stringSetting(cmd, "label-needs-champion", cfg.Labels.NeedsChampion),
			NeedsBackport: stringSetting(cmd, "label-needs-backport", cfg.Labels.NeedsBackport),
		},
	}
	s.authPrompt, _ = cmd.Flags().GetBool("auth")

	if s.project == "" {
		return nil, fmt.Errorf("a project is required: pass --project owner/repo or set it in the config file")
	}
	if owner, repo, ok := strings.Cut(s.project, "/"); !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid project %q, expected owner/repo", s.project)
	}
	return s, nil
}

// stringSetting resolves one string option: an explicitly set flag wins,
// then a non-empty config file value, then the flag's default.
func stringSetting(cmd *cobra.Command, name, fileValue string) string {
	if !cmd.Flags().Changed(name) && fileValue != "" {
		return fileValue
	}
	v, _ := cmd.Flags().GetString(name)
	return v
}

func intSetting(cmd *cobra.Command, name string, fileValue int) int {
	if !cmd.Flags().Changed(name) && fileValue != 0 {
		return fileValue
	}
	v, _ := cmd.Flags().GetInt(name)
	return v
}

// resolveToken returns the API token: prompted from stdin under --auth,
// otherwise taken from the GITHUB_TOKEN environment variable. An empty
// result means anonymous access.
func resolveToken(prompt bool, in io.Reader, errOut io.Writer) (string, error) {
	if !prompt {
		return os.Getenv("GITHUB_TOKEN"), nil
	}
	fmt.Fprintln(errOut, "A GitHub access token is required (no scopes are needed).")
	fmt.Fprint(errOut, "Access token: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read access token: %w", err)
		}
		return "", fmt.Errorf("failed to read access token: no input")
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return "", fmt.Errorf("failed to read access token: empty input")
	}
	return token, nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	registerReportFlags(reportCmd)
}

func registerReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("project", "p", "", "Target project as owner/repo")
	cmd.Flags().Bool("auth", false, "Prompt for a GitHub access token on stdin")
	cmd.Flags().String("label-needs-work", "needs-work", "Label marking a PR as needing work")
	cmd.Flags().String("label-needs-decision", "needs-decision", "Label marking a PR as needing a decision")
	cmd.Flags().String("label-needs-champion", "needs-champion", "Label marking a PR as needing a champion")
	cmd.Flags().String("label-needs-backport", "needs-backport", "Label marking a PR as a backport candidate")
	cmd.Flags().String("cache-file", "gh-cache.json", "Snapshot cache file (a .gz suffix enables compression)")
	cmd.Flags().Int("closed-window", 30, "How many days back to include closed pull requests")
	cmd.Flags().Int("workers", 4, "Concurrent pull request fetches")
	cmd.Flags().Duration("timeout", 30*time.Second, "HTTP request timeout")
	cmd.Flags().Int("evict-closed", 0, "Evict cached closed PRs older than this many days (0 keeps everything)")
	cmd.Flags().StringP("output", "o", "-", "Report destination file, - for stdout")
	cmd.Flags().String("config", "", "Optional YAML configuration file")
}
