package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitefolio/scheduling/services/scheduling-service/internal/events"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect appointment lifecycle events",
	}

	var group string
	var topics []string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print lifecycle events from Kafka as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.KafkaBrokers) == "" {
				return fmt.Errorf("KAFKA_BROKERS is required")
			}
			if len(topics) == 0 {
				topics = outbox.AppointmentEventTypes
			}
			if group == "" && len(topics) > 1 {
				return fmt.Errorf("--group is required when tailing more than one topic")
			}

			reader := events.NewReader(events.Config{Brokers: cfg.KafkaBrokers, GroupID: group, Topics: topics})
			enc := json.NewEncoder(cmd.OutOrStdout())
			consumer := events.New(c.logger(cfg, cmd.ErrOrStderr()), reader, nil, func(_ context.Context, env events.Envelope) error {
				return enc.Encode(env)
			})
			consumer.Run(cmd.Context())
			return nil
		},
	}
	tail.Flags().StringVar(&group, "group", "schedctl-tail", "consumer group id; empty reads a single topic from its latest offset")
	tail.Flags().StringSliceVar(&topics, "topic", nil, "topic to read (repeatable); defaults to every lifecycle topic")

	cmd.AddCommand(tail)
	return cmd
}
