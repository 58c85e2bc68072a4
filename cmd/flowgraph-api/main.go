package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flowgraph/pkg/channels/kafka"
	"github.com/dukex/flowgraph/pkg/cmd"
	"github.com/dukex/flowgraph/pkg/eventbus"
	"github.com/dukex/flowgraph/pkg/events"
	"github.com/dukex/flowgraph/pkg/log"
	"github.com/dukex/flowgraph/pkg/notify"
	"github.com/dukex/flowgraph/pkg/otelhelper"
	"github.com/dukex/flowgraph/pkg/protocol"
	"github.com/dukex/flowgraph/pkg/triggers/queue"
	"github.com/dukex/flowgraph/pkg/triggers/schedule"
	"github.com/dukex/flowgraph/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowgraph-api",
		Usage:                 "Serve the workflow API and run scheduled and queued workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://path or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   log.FormatText,
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL of the execution queue; the queue trigger is disabled when empty",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list consumed by the queue trigger",
				Value:   queue.DefaultQueue,
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.DurationFlag{
				Name:    "schedule-sync-interval",
				Usage:   "How often schedules are reloaded from persistence",
				Value:   time.Minute,
				Sources: cli.EnvVars("SCHEDULE_SYNC_INTERVAL"),
			},
			&cli.StringFlag{
				Name:    "discord-webhook-url",
				Usage:   "Discord webhook used by discord notifications",
				Sources: cli.EnvVars("DISCORD_WEBHOOK_URL"),
			},
			&cli.StringFlag{
				Name:    "slack-webhook-url",
				Usage:   "Slack incoming webhook used by slack notifications",
				Sources: cli.EnvVars("SLACK_WEBHOOK_URL"),
			},
			&cli.StringFlag{
				Name:    "ses-region",
				Usage:   "AWS region of the SES email sender",
				Sources: cli.EnvVars("SES_REGION"),
			},
			&cli.StringFlag{
				Name:    "ses-from",
				Usage:   "Sender address of email notifications",
				Sources: cli.EnvVars("SES_FROM"),
			},
			&cli.StringSliceFlag{
				Name:    "ses-to",
				Usage:   "Recipients of email notifications",
				Sources: cli.EnvVars("SES_TO"),
			},
			&cli.StringSliceFlag{
				Name:    "agent",
				Usage:   "Agent command as name=command, repeatable",
				Sources: cli.EnvVars("AGENTS"),
			},
			&cli.IntFlag{
				Name:    "max-parallel-nodes",
				Usage:   "Maximum nodes of one level running at once (0 = unbounded)",
				Sources: cli.EnvVars("MAX_PARALLEL_NODES"),
			},
			&cli.DurationFlag{
				Name:    "task-poll-interval",
				Usage:   "Poll interval for task runners without completion signals",
				Value:   time.Second,
				Sources: cli.EnvVars("TASK_POLL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "task-timeout",
				Usage:   "Maximum wait for one task execution (0 = no limit)",
				Sources: cli.EnvVars("TASK_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces with OTLP over HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))
	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing flowgraph API")

	eventBus, err := cmd.NewEventBus(logger, command.String("event-bus"), kafka.ParseBrokers(command.String("kafka-brokers")))
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	logEvents := eventbus.LogHandler(logger)
	for _, eventType := range []events.EventType{events.ExecutionCompletedEvent, events.ExecutionFailedEvent, events.ExecutionCancelledEvent} {
		if err := eventBus.Handle(ctx, eventType, logEvents); err != nil {
			return err
		}
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	executorOptions := []workflow.Option{
		workflow.WithObservers(eventbus.NewEventBusObserver(eventBus, logger)),
	}

	if command.Bool("otel-enabled") {
		tracer, err := otelhelper.NewTracer(ctx, "flowgraph-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		executorOptions = append(executorOptions, workflow.WithTracer(tracer))
	}

	runtime, err := cmd.NewRuntime(ctx, logger, cmd.RuntimeConfig{
		DatabaseURL: command.String("database-url"),
		Notifier: cmd.NotifierConfig{
			DiscordWebhookURL: command.String("discord-webhook-url"),
			SlackWebhookURL:   command.String("slack-webhook-url"),
			SES: notify.SESConfig{
				Region: command.String("ses-region"),
				From:   command.String("ses-from"),
				To:     command.StringSlice("ses-to"),
			},
		},
		Agents:           command.StringSlice("agent"),
		MaxParallelNodes: int(command.Int("max-parallel-nodes")),
		Wait: protocol.WaitOptions{
			PollInterval: command.Duration("task-poll-interval"),
			Timeout:      command.Duration("task-timeout"),
		},
		ExecutorOptions: executorOptions,
	})
	if err != nil {
		return err
	}

	defer func() {
		if err := runtime.Close(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	start := func(ctx context.Context, workflowID string, data any) error {
		_, err := runtime.Executor.Start(ctx, workflowID, data)

		return err
	}

	triggers, err := startTriggers(ctx, command, runtime, start)

	defer func() {
		for _, trigger := range triggers {
			if err := trigger.Stop(context.WithoutCancel(ctx)); err != nil {
				logger.ErrorContext(ctx, "Failed to stop trigger", "error", err)
			}
		}
	}()

	if err != nil {
		return err
	}

	api := NewAPI(logger, runtime.Store, runtime.Registry, runtime.Executor)

	return api.Start(ctx, int(command.Int("port")))
}

func startTriggers(ctx context.Context, command *cli.Command, runtime *cmd.Runtime, start protocol.TriggerCallback) ([]protocol.Trigger, error) {
	logger := log.WithModule("triggers")

	scheduler := schedule.NewTrigger(runtime.Store.WorkflowRepository(), logger)
	if err := scheduler.Start(ctx, start); err != nil {
		return nil, fmt.Errorf("failed to start schedule trigger: %w", err)
	}

	interval := command.Duration("schedule-sync-interval")
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := scheduler.Sync(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to sync schedules", "error", err)
				}
			}
		}
	}()

	triggers := []protocol.Trigger{scheduler}

	redisURL := command.String("redis-url")
	if redisURL == "" {
		return triggers, nil
	}

	client, err := queue.NewClient(redisURL)
	if err != nil {
		return triggers, err
	}

	consumer := queue.NewTrigger(client, command.String("queue-name"), logger)
	if err := consumer.Start(ctx, start); err != nil {
		return triggers, fmt.Errorf("failed to start queue trigger: %w", err)
	}

	return append(triggers, consumer), nil
}
