package main

import (
	"fmt"
	"io"
	"time"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/validate"
)

// printReport lists every issue, errors first, then the summary line.
func printReport(w io.Writer, report *validate.Report) {
	if report == nil {
		return
	}
	for _, issue := range report.Errors() {
		printIssue(w, errorStyle.Render("✗"), issue)
	}
	for _, issue := range report.Warnings() {
		printIssue(w, warningStyle.Render("!"), issue)
	}
	status := okStyle.Render("OK")
	if !report.IsValid() {
		status = errorStyle.Render("Invalid")
	}
	fmt.Fprintf(w, "%s %s\n", status, dimStyle.Render(report.Summary()))
}

func printIssue(w io.Writer, marker string, issue validate.Issue) {
	fmt.Fprintf(w, "%s %s %s %s\n", marker, accentStyle.Render(issue.Location()), dimStyle.Render("["+string(issue.Kind)+"]"), issue.Message)
	if issue.Suggestion != "" {
		fmt.Fprintf(w, "    did you mean {%s}?\n", issue.Suggestion)
	}
}

// printResult summarises a finished build. A non-strict build can finish
// with errors in its report; they are listed before the summary.
func printResult(w io.Writer, result *build.Result, output string) {
	if result == nil {
		return
	}
	for _, issue := range result.Report.Errors() {
		printIssue(w, errorStyle.Render("✗"), issue)
	}
	for _, issue := range result.Report.Warnings() {
		printIssue(w, warningStyle.Render("!"), issue)
	}
	fmt.Fprintf(w, "%s %d tokens → %d files in %s %s\n",
		okStyle.Render("Built"),
		result.TokensEmitted,
		len(result.FilesWritten),
		output,
		dimStyle.Render("("+result.Duration.Round(time.Millisecond).String()+")"))
	if n := len(result.Resolved.Unresolved); n > 0 {
		fmt.Fprintf(w, "%s %d references left unresolved\n", warningStyle.Render("!"), n)
	}
}
