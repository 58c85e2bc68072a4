package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dukex/flowgraph/pkg/cmd"
	"github.com/dukex/flowgraph/pkg/log"
	"github.com/dukex/flowgraph/pkg/models"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrInvalidWorkflow = errors.New("workflow is invalid")
	ErrRunNotSucceeded = errors.New("execution did not succeed")
)

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "flowgraph",
		Usage:                 "Validate, migrate and run workflow graphs",
		EnableShellCompletion: true,
		Writer:                stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), log.FormatText)

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			migrateCommand(),
			runCommand(),
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a serialized workflow and print the report",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, command *cli.Command) error {
			var candidate any
			if err := readJSON(command, &candidate); err != nil {
				return err
			}

			graph, err := cmd.NewGraphValidator(log.WithModule("cli"), nil)
			if err != nil {
				return err
			}

			result := graph.Validate(candidate)
			if err := writeJSON(command.Root().Writer, result); err != nil {
				return err
			}

			if !result.Valid {
				return cli.Exit(ErrInvalidWorkflow.Error(), 1)
			}

			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Aliases:   []string{"m"},
		Usage:     "Print a serialized workflow upgraded to the current format",
		ArgsUsage: "<file>",
		Action: func(_ context.Context, command *cli.Command) error {
			var document map[string]any
			if err := readJSON(command, &document); err != nil {
				return err
			}

			return writeJSON(command.Root().Writer, validation.MigrateFormat(document))
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Execute a stored workflow and print the result",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://path or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Trigger data as JSON",
			},
			&cli.StringSliceFlag{
				Name:    "agent",
				Usage:   "Agent command as name=command, repeatable",
				Sources: cli.EnvVars("AGENTS"),
			},
			&cli.StringFlag{
				Name:    "discord-webhook-url",
				Sources: cli.EnvVars("DISCORD_WEBHOOK_URL"),
			},
			&cli.StringFlag{
				Name:    "slack-webhook-url",
				Sources: cli.EnvVars("SLACK_WEBHOOK_URL"),
			},
			&cli.DurationFlag{
				Name:    "task-timeout",
				Usage:   "Maximum wait for one task execution (0 = no limit)",
				Sources: cli.EnvVars("TASK_TIMEOUT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			workflowID := command.Args().First()
			if workflowID == "" {
				return fmt.Errorf("%w: workflow id", ErrMissingArgument)
			}

			var data any

			if raw := command.String("data"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &data); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
			}

			logger := log.WithModule("cli")

			runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfig{
				DatabaseURL: command.String("database-url"),
				Notifier: cmd.NotifierConfig{
					DiscordWebhookURL: command.String("discord-webhook-url"),
					SlackWebhookURL:   command.String("slack-webhook-url"),
				},
				Agents: command.StringSlice("agent"),
				Wait: protocol.WaitOptions{
					PollInterval: time.Second,
					Timeout:      command.Duration("task-timeout"),
				},
			})
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			result, err := runtime.Executor.Execute(ctx, workflowID, data)
			if err != nil {
				return err
			}

			if err := writeJSON(command.Root().Writer, result); err != nil {
				return err
			}

			if result.Execution.Status != models.ExecutionStatusSuccess {
				return cli.Exit(fmt.Sprintf("%v: %s", ErrRunNotSucceeded, result.Execution.Status), 1)
			}

			return nil
		},
	}
}

func readJSON(command *cli.Command, target any) error {
	path := command.Args().First()
	if path == "" {
		return fmt.Errorf("%w: file", ErrMissingArgument)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(content, target); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
