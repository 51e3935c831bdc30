// Package app implements the citycal CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "match":
		return runMatch(args[1:])
	case "materialize":
		return runMaterialize(args[1:])
	case "process", "run-once":
		return runProcess(args[1:])
	case "export-ics":
		return runExportICS(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "citycal CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  citycal <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest       Insert one event payload into cal.events")
	fmt.Fprintln(os.Stderr, "  validate     Validate event JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  match        Score source pairs and replace the match edge set")
	fmt.Fprintln(os.Stderr, "  materialize  Rebuild cal.display_events from events and match edges")
	fmt.Fprintln(os.Stderr, "  process      Run match + materialize in sequence")
	fmt.Fprintln(os.Stderr, "  run-once     Alias for process")
	fmt.Fprintln(os.Stderr, "  export-ics   Write the display set as an iCalendar file")
	fmt.Fprintln(os.Stderr, "  daemon       Run process on a cron schedule")
	fmt.Fprintln(os.Stderr, "  serve        Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"citycal <command> -h\" for command-specific flags.")
}
