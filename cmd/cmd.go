// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/transcribeflow/internal/formatter"
	"github.com/urfave/cli/v3"
)

// uploadCommand sends an audio file for transcription
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Transcribe an audio file (2 free uploads without signing in)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "lang",
				Aliases: []string{"l"},
				Usage:   "Target language for transcript and summary (original keeps the source language)",
				Value:   r.config.Upload.TargetLanguage,
			},
			&cli.BoolFlag{
				Name:    "diarize",
				Aliases: []string{"d"},
				Usage:   "Label speakers in the transcript",
				Value:   r.config.Upload.Diarization,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Upload,
	}
}

// historyCommand handles stored transcriptions
func historyCommand(r *Runner) *cli.Command {
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: txt, markdown, csv, json",
		Value:   formatter.FormatText,
	}

	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Browse, export and delete stored transcriptions",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored transcriptions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "local",
						Usage: "List uploads recorded on this device instead",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "With --local, filter by status (in_flight, succeeded, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to show",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show a stored transcription",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					formatFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a stored transcription",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
			{
				Name:  "delete-all",
				Usage: "Delete every stored transcription",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.HistoryDeleteAll,
			},
			{
				Name:  "export",
				Usage: "Export a transcription, or archive many with --all/--ids",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					formatFlag,
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Archive every stored transcription",
					},
					&cli.StringFlag{
						Name:  "ids",
						Usage: "Comma-separated IDs to archive",
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Archive directory (default: tflow_archive_{epoch})",
					},
					&cli.BoolFlag{
						Name:  "audio",
						Usage: "Also download each item's audio when archiving",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent archive workers (max 10)",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Audio downloads per second",
						Value: 5,
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:  "download",
				Usage: "Download the audio of a stored transcription",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: the original filename)",
					},
				},
				Action: r.HistoryDownload,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser (OAuth2 authorization code + PKCE)",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the local session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user, trial allowance and backend health",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// trialCommand reports the local trial allowance
func trialCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "trial",
		Usage: "Free trial allowance",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show used and remaining trial uploads",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TrialStatus,
			},
		},
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   r.configName(),
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Create or update the configuration file",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reset an existing file to defaults",
					},
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "Backend base URL",
					},
					&cli.StringFlag{
						Name:  "issuer",
						Usage: "OpenID Connect issuer URL",
					},
					&cli.StringFlag{
						Name:  "client-id",
						Usage: "OAuth2 client ID",
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Default target language",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for uploads and history",
		Action:  r.TUI,
	}
}
