package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/migsilva89/markmind/internal/bookmarks"
	"github.com/migsilva89/markmind/internal/config"
	"github.com/migsilva89/markmind/internal/session"
	"github.com/migsilva89/markmind/internal/storage"
)

// openOrchestrator wires a session orchestrator over the shared SQLite
// store. The caller must invoke the returned cleanup.
func openOrchestrator() (*session.Orchestrator, config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("opening storage: %w", err)
	}
	svc := bookmarks.NewSQLiteService(store)
	orch := session.NewOrchestrator(session.NewStore(store), svc)
	cleanup := func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}
	return orch, cfg, cleanup, nil
}

// --- organize ---

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Organize bookmarks into folders with AI assistance",
	Long: `Organize bookmarks into folders with AI assistance.

The flow is: scan the library, pick which folders to pull bookmarks
from, run the AI analysis in the background daemon, review the proposed
folder plan, review the per-bookmark assignments, then apply the moves.

Examples:
  markmind organize scan
  markmind organize select --all
  markmind organize run --service google --wait
  markmind organize plan
  markmind organize plan approve
  markmind organize apply`,
}

var organizeScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the bookmark library and start a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cfg, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if _, err := orch.Attach(ctx); err != nil {
			return err
		}
		sess, err := orch.StartScan(ctx, cfg.Organize.DefaultParent)
		if err != nil {
			return err
		}

		printSuccess("Scanned %d bookmarks", len(sess.AllBookmarks))
		if sess.FolderTree != "" {
			fmt.Println(sess.FolderTree)
		}
		printStatus("Selected folders", "%d (all)", len(sess.SelectedFolderIDs))
		printStep("Adjust the selection with `markmind organize select`, then run `markmind organize run`")
		return nil
	},
}

var organizeSelectCmd = &cobra.Command{
	Use:   "select [folder-id]",
	Short: "Toggle folder selection, or select all/none",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		none, _ := cmd.Flags().GetBool("none")

		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if _, err := orch.Attach(ctx); err != nil {
			return err
		}

		var sess *session.Session
		switch {
		case all:
			sess, err = orch.SelectAllFolders(ctx)
		case none:
			sess, err = orch.DeselectAllFolders(ctx)
		case len(args) == 1:
			sess, err = orch.ToggleFolder(ctx, args[0])
		default:
			return fmt.Errorf("a folder id, --all, or --none is required")
		}
		if err != nil {
			return err
		}

		selected := sess.SelectedSet()
		count := 0
		for _, b := range sess.AllBookmarks {
			if selected[b.CurrentFolderID] {
				count++
			}
		}
		printStatus("Selected folders", "%d", len(sess.SelectedFolderIDs))
		printStatus("Bookmarks in scope", "%d", count)
		return nil
	},
}

var organizeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Hand the selected bookmarks to the daemon for AI analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _ := cmd.Flags().GetString("service")
		wait, _ := cmd.Flags().GetBool("wait")

		orch, cfg, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if service == "" {
			service = cfg.Organize.Service
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if _, err := orch.Attach(ctx); err != nil {
			return err
		}
		sess, err := orch.StartOrganizing(ctx, service, client)
		if err != nil {
			return err
		}

		printSuccess("Organizing %d bookmarks with %s", len(sess.BookmarksToOrganize), service)
		if !wait {
			printStep("Running in the background; check progress with `markmind organize status`")
			return nil
		}

		return waitForPlan(ctx, orch)
	},
}

// waitForPlan polls the persisted session until the background AI call
// lands a result or fails.
func waitForPlan(ctx context.Context, orch *session.Orchestrator) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	printStep("Waiting for AI analysis...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		sess, err := orch.Attach(ctx)
		if err != nil {
			return err
		}
		switch sess.Status {
		case session.StatusOrganizing:
			continue
		case session.StatusError:
			return fmt.Errorf("organize failed: %s", sess.ErrorMessage)
		default:
			printSuccess("Analysis complete")
			printPlan(sess)
			return nil
		}
	}
}

var organizeWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream organize events from the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		printStep("Watching for events (Ctrl-C to stop)...")
		return client.WatchEvents(cmd.Context(), func(event string, data []byte) {
			fmt.Printf("%s %s\n", colorize(colorBold, event), data)
		})
	},
}

var organizeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current organize session",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		sess, err := orch.Attach(cmd.Context())
		if err != nil {
			return err
		}

		printStatus("Status", "%s", sess.Status)
		if len(sess.AllBookmarks) > 0 {
			printStatus("Bookmarks scanned", "%d", len(sess.AllBookmarks))
		}
		if len(sess.BookmarksToOrganize) > 0 {
			printStatus("In scope", "%d", len(sess.BookmarksToOrganize))
		}
		if sess.ServiceID != "" {
			printStatus("AI service", "%s", sess.ServiceID)
		}
		if sess.Status == session.StatusCompleted {
			printStatus("Applied", "%d", sess.AppliedCount)
			printStatus("Skipped", "%d", sess.SkippedCount)
		}
		if sess.ErrorMessage != "" {
			printError("%s", sess.ErrorMessage)
		}
		return nil
	},
}

var organizePlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the proposed folder plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		sess, err := orch.Attach(cmd.Context())
		if err != nil {
			return err
		}
		if sess.FolderPlan == nil {
			printWarning("No folder plan yet; run `markmind organize run` first")
			return nil
		}
		printPlan(sess)
		return nil
	},
}

var organizePlanApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the folder plan and move to assignment review",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Attach(cmd.Context()); err != nil {
			return err
		}
		sess, err := orch.ApprovePlan(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Plan approved; %d assignments to review", len(sess.Assignments))
		return nil
	},
}

var organizePlanRejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject the folder plan and return to folder selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Attach(cmd.Context()); err != nil {
			return err
		}
		if _, err := orch.RejectPlan(cmd.Context()); err != nil {
			return err
		}
		printSuccess("Plan rejected; back to folder selection")
		return nil
	},
}

var organizePlanExcludeCmd = &cobra.Command{
	Use:   "exclude <folder-path>",
	Short: "Toggle exclusion of a proposed folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Attach(cmd.Context()); err != nil {
			return err
		}
		sess, err := orch.ToggleFolderExclusion(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printPlan(sess)
		return nil
	},
}

var organizeAssignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Show the proposed bookmark assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		sess, err := orch.Attach(cmd.Context())
		if err != nil {
			return err
		}
		if len(sess.Assignments) == 0 {
			printWarning("No assignments to review")
			return nil
		}
		printAssignments(sess)
		return nil
	},
}

var organizeToggleCmd = &cobra.Command{
	Use:   "toggle <bookmark-id>",
	Short: "Toggle approval of one assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Attach(cmd.Context()); err != nil {
			return err
		}
		if _, err := orch.ToggleApproval(cmd.Context(), args[0]); err != nil {
			return err
		}
		printSuccess("Toggled %s", args[0])
		return nil
	},
}

var organizeApproveAllCmd = &cobra.Command{
	Use:   "approve-all",
	Short: "Approve every assignment",
	RunE:  runSetAll(true),
}

var organizeRejectAllCmd = &cobra.Command{
	Use:   "reject-all",
	Short: "Reject every assignment",
	RunE:  runSetAll(false),
}

func runSetAll(approve bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Attach(cmd.Context()); err != nil {
			return err
		}
		var sess *session.Session
		if approve {
			sess, err = orch.ApproveAll(cmd.Context())
		} else {
			sess, err = orch.RejectAll(cmd.Context())
		}
		if err != nil {
			return err
		}
		if approve {
			printSuccess("Approved %d assignments", len(sess.Assignments))
		} else {
			printSuccess("Rejected %d assignments", len(sess.Assignments))
		}
		return nil
	}
}

var organizeApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the approved moves",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		if _, err := orch.Attach(ctx); err != nil {
			return err
		}
		sess, err := orch.Apply(ctx)
		if err != nil {
			return err
		}

		printSuccess("Moved %d bookmarks (%d skipped)", sess.AppliedCount, sess.SkippedCount)
		return nil
	},
}

var organizeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the current organize session",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, _, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Reset(cmd.Context()); err != nil {
			return err
		}
		printSuccess("Session reset")
		return nil
	},
}

func init() {
	organizeSelectCmd.Flags().Bool("all", false, "select every folder")
	organizeSelectCmd.Flags().Bool("none", false, "deselect every folder")
	organizeRunCmd.Flags().String("service", "", "AI service to use (google, openai, anthropic, openrouter)")
	organizeRunCmd.Flags().Bool("wait", false, "wait for the analysis to finish")

	organizePlanCmd.AddCommand(organizePlanApproveCmd)
	organizePlanCmd.AddCommand(organizePlanRejectCmd)
	organizePlanCmd.AddCommand(organizePlanExcludeCmd)

	organizeCmd.AddCommand(organizeScanCmd)
	organizeCmd.AddCommand(organizeSelectCmd)
	organizeCmd.AddCommand(organizeRunCmd)
	organizeCmd.AddCommand(organizeWatchCmd)
	organizeCmd.AddCommand(organizeStatusCmd)
	organizeCmd.AddCommand(organizePlanCmd)
	organizeCmd.AddCommand(organizeAssignmentsCmd)
	organizeCmd.AddCommand(organizeToggleCmd)
	organizeCmd.AddCommand(organizeApproveAllCmd)
	organizeCmd.AddCommand(organizeRejectAllCmd)
	organizeCmd.AddCommand(organizeApplyCmd)
	organizeCmd.AddCommand(organizeResetCmd)
}

// --- import / export ---

var importCmd = &cobra.Command{
	Use:   "import <bookmarks.html>",
	Short: "Import bookmarks from a Netscape bookmark HTML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		folderCount, bookmarkCount, err := bookmarks.Import(f, store)
		if err != nil {
			return err
		}
		printSuccess("Imported %d folders and %d bookmarks", folderCount, bookmarkCount)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export bookmarks as Netscape bookmark HTML (default: stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		svc := bookmarks.NewSQLiteService(store)
		root, err := svc.GetTree(cmd.Context())
		if err != nil {
			return err
		}

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		if err := bookmarks.ExportNetscapeHTML(out, root); err != nil {
			return err
		}
		if len(args) == 1 {
			printSuccess("Bookmarks exported to %s", args[0])
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List valid configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
}
