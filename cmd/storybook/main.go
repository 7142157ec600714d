package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:      "storybook",
		Usage:     "Read illustrated, narrated picture books in the terminal",
		ArgsUsage: "[location]",
		Action:    runRead,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("STORYBOOK_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "read",
				Usage:     "Open the reader, optionally at a location such as /slimey/2",
				ArgsUsage: "[location]",
				Action:    runRead,
			},
			{
				Name:      "validate",
				Usage:     "Check book documents and report field errors",
				ArgsUsage: "FILE...",
				Action:    runValidate,
			},
			{
				Name:  "progress",
				Usage: "Inspect or clear reading progress",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List the last page read in each book",
						Action: runProgressList,
					},
					{
						Name:      "clear",
						Usage:     "Forget progress for one book, or all books",
						ArgsUsage: "[slug]",
						Action:    runProgressClear,
					},
				},
			},
			{
				Name:  "settings",
				Usage: "Show or change preferences",
				Commands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the current preferences",
						Action: runSettingsShow,
					},
					{
						Name:      "set",
						Usage:     "Change preferences",
						ArgsUsage: "theme=system|light|dark mode=self-read|narrated",
						Action:    runSettingsSet,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Manage the config file",
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write a config file with the default values",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
						},
						Action: runConfigInit,
					},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("storybook error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
