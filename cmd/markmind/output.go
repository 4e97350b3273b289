package main

import (
	"fmt"
	"os"

	"github.com/migsilva89/markmind/internal/plan"
	"github.com/migsilva89/markmind/internal/session"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// All status output goes to stderr so piped stdout (export, watch) stays
// machine-readable.
func statusLine(color, prefix, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, prefix+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { statusLine(colorGreen, "✓ ", format, args...) }
func printError(format string, args ...any)   { statusLine(colorRed, "✗ ", format, args...) }
func printWarning(format string, args ...any) { statusLine(colorYellow, "⚠ ", format, args...) }
func printStep(format string, args ...any)    { statusLine(colorCyan, "→ ", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

// printPlan renders the proposed folder plan for review.
func printPlan(sess *session.Session) {
	if sess.FolderPlan == nil {
		return
	}
	if sess.FolderPlan.Summary != "" {
		fmt.Println(sess.FolderPlan.Summary)
		fmt.Println()
	}
	for _, f := range sess.FolderPlan.Folders {
		line := folderMarker(f) + f.Path
		if f.Description != "" {
			line += "  - " + f.Description
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d assignments pending review\n", len(sess.Assignments))
}

func folderMarker(f plan.ProposedFolder) string {
	switch {
	case f.IsExcluded:
		return colorize(colorRed, "✗ ")
	case f.IsNew:
		return colorize(colorGreen, "+ ")
	}
	return "  "
}

// printAssignments renders the per-bookmark review list.
func printAssignments(sess *session.Session) {
	for _, a := range sess.Assignments {
		target := a.SuggestedPath
		if a.IsNewFolder {
			target += colorize(colorYellow, " (new)")
		}
		fmt.Printf("%s %s  %s → %s\n", approvalMarker(a.IsApproved), a.BookmarkID, a.BookmarkTitle, target)
	}
}

func approvalMarker(approved bool) string {
	if approved {
		return colorize(colorGreen, "✓")
	}
	return colorize(colorRed, "✗")
}
