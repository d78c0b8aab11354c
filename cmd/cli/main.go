package main

import (
	"fmt"
	"os"

	"github.com/akeren/waitlist-signup/config"
	"github.com/akeren/waitlist-signup/internal/log"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "migrate":
		err = runMigrate(logger)

	case "count":
		err = runCount(logger, os.Stdout)

	case "export":
		err = runExport(logger, args[1:])

	case "backup":
		err = runBackup(logger, os.Stdout)

	case "hash-export-key":
		err = runHashExportKey(args[1:], os.Stdout)

	case "issue-export-token":
		err = runIssueExportToken(args[1:], os.Stdout)

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", "command", args[0], "error", err.Error())
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: cli <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate                          Apply SQL migrations for STORE_DRIVER=sqlite|postgres and exit")
	fmt.Println("  count                            Print the number of stored signups")
	fmt.Println("  export [file]                    Write the signup store as CSV to file (default stdout)")
	fmt.Println("  backup                           Upload a CSV snapshot to MinIO/S3 and print a download link")
	fmt.Println("  hash-export-key <key>            Print a bcrypt hash for EXPORT_KEY_BCRYPT")
	fmt.Println("  issue-export-token [sub] [ttl]   Print a JWT for /api/download-signups (needs EXPORT_JWT_SECRET)")
}
