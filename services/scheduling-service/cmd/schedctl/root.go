package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sitefolio/scheduling/libs/grpcx"
	"github.com/sitefolio/scheduling/libs/kafkax"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/app"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/availability"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/model"
	"github.com/sitefolio/scheduling/services/scheduling-service/internal/outbox"
)

type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "schedctl",
		Short:        "Operate the scheduling service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(cmd.Flags())
			if err != nil {
				return err
			}
			c.v = v
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("backend", "", "storage backend: postgres or mongo (STORAGE_BACKEND)")
	pf.String("database-url", "", "postgres connection string (DATABASE_URL)")
	pf.String("mongo-uri", "", "mongodb connection string (MONGO_URI)")
	pf.String("mongo-database", "", "mongodb database name (MONGO_DATABASE)")
	pf.String("timezone", "", "IANA zone used for weekly windows (BUSINESS_TIMEZONE)")
	pf.String("grpc-addr", "", "scheduling service gRPC address (GRPC_ADDR)")
	pf.String("kafka-brokers", "", "comma separated Kafka brokers (KAFKA_BROKERS)")
	pf.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	pf.String("env-file", ".env", "optional dotenv file read after flags and environment")

	root.AddCommand(c.migrateCmd(), c.activitiesCmd(), c.slotsCmd(), c.daysCmd(), c.healthCmd(), c.eventsCmd())
	return root
}

func (c *cli) config() (cliConfig, error) {
	if c.v == nil {
		return cliConfig{}, fmt.Errorf("configuration not loaded")
	}
	return loadConfig(c.v)
}

func (c *cli) logger(cfg cliConfig, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.logLevel()})).With("service", "schedctl")
}

// openBackend connects without the Redis cache so reads always hit the store.
func (c *cli) openBackend(cmd *cobra.Command, migrate bool) (*app.Backend, cliConfig, *slog.Logger, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, cliConfig{}, nil, err
	}
	logger := c.logger(cfg, cmd.ErrOrStderr())
	bc := cfg.backendConfig()
	bc.AutoMigrate = migrate
	b, err := app.Open(cmd.Context(), bc, nil, logger)
	if err != nil {
		return nil, cliConfig{}, nil, err
	}
	return b, cfg, logger, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations (postgres) or ensure indexes (mongo)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, cfg, _, err := c.openBackend(cmd, true)
			if err != nil {
				return err
			}
			defer b.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", cfg.Backend)
			return nil
		},
	}
}

func (c *cli) activitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Manage the activity catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every activity as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, _, _, err := c.openBackend(cmd, false)
			if err != nil {
				return err
			}
			defer b.Close()
			activities, err := b.Activities.FindAll(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), activities)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.json>",
		Short: "Insert or replace activities from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			activities, err := readActivities(f, uuid.NewString)
			if err != nil {
				return err
			}

			b, _, logger, err := c.openBackend(cmd, false)
			if err != nil {
				return err
			}
			defer b.Close()
			for _, a := range activities {
				if err := b.Activities.Upsert(cmd.Context(), a); err != nil {
					return fmt.Errorf("upsert activity %s: %w", a.ID, err)
				}
				logger.Info("activity imported", "activity_id", a.ID, "name", a.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d activities\n", len(activities))
			return nil
		},
	})
	return cmd
}

// readActivities decodes and validates a catalog file. Activities without an id get one from newID.
func readActivities(r io.Reader, newID func() string) ([]model.Activity, error) {
	var activities []model.Activity
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	seen := make(map[string]bool, len(activities))
	for i := range activities {
		if activities[i].ID == "" {
			activities[i].ID = newID()
		}
		if err := activities[i].Validate(); err != nil {
			return nil, fmt.Errorf("activity %d (%s): %w", i, activities[i].ID, err)
		}
		if seen[activities[i].ID] {
			return nil, fmt.Errorf("activity %d: duplicate id %s", i, activities[i].ID)
		}
		seen[activities[i].ID] = true
	}
	return activities, nil
}

func (c *cli) slotsCmd() *cobra.Command {
	var activityID, date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List bookable slots for an activity on a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := availability.ParseDate(date)
			if err != nil {
				return err
			}
			b, cfg, logger, err := c.openBackend(cmd, false)
			if err != nil {
				return err
			}
			defer b.Close()
			loc, err := cfg.location()
			if err != nil {
				return err
			}
			slots, err := b.Service(logger, loc).GetAvailableSlots(cmd.Context(), activityID, d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), slots)
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (c *cli) daysCmd() *cobra.Command {
	var activityID, weekStart string
	cmd := &cobra.Command{
		Use:   "days",
		Short: "List dates with at least one bookable slot in the week starting at --week-start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := availability.ParseDate(weekStart)
			if err != nil {
				return err
			}
			b, cfg, logger, err := c.openBackend(cmd, false)
			if err != nil {
				return err
			}
			defer b.Close()
			loc, err := cfg.location()
			if err != nil {
				return err
			}
			days, err := b.Service(logger, loc).GetAvailableDaysInWeek(cmd.Context(), activityID, d)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), days)
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "activity id")
	cmd.Flags().StringVar(&weekStart, "week-start", "", "first day of the week as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("week-start")
	return cmd
}

// healthReport is printed by `schedctl health`.
type healthReport struct {
	GRPCAddr string                `json:"grpc_addr"`
	Service  string                `json:"service,omitempty"`
	Status   string                `json:"status"`
	Kafka    *kafkax.ClusterReport `json:"kafka,omitempty"`
	Missing  []string              `json:"missing_topics,omitempty"`
}

func (c *cli) healthCmd() *cobra.Command {
	var service string
	var timeout time.Duration
	var wait, kafka bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health service of a running instance and, with --kafka, its event topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if kafka && strings.TrimSpace(cfg.KafkaBrokers) == "" {
				return fmt.Errorf("KAFKA_BROKERS is required for --kafka")
			}
			conn, err := grpcx.Dial(cfg.GRPCAddr)
			if err != nil {
				return fmt.Errorf("dial %s: %w", cfg.GRPCAddr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			var status healthpb.HealthCheckResponse_ServingStatus
			if wait {
				status, err = grpcx.WaitServing(ctx, conn, service, 250*time.Millisecond)
			} else {
				status, err = grpcx.CheckHealth(ctx, conn, service)
			}
			if err != nil {
				return fmt.Errorf("health %s: %w", cfg.GRPCAddr, err)
			}
			report := healthReport{GRPCAddr: cfg.GRPCAddr, Service: service, Status: status.String()}

			if kafka {
				cluster, err := kafkax.Inspect(ctx, cfg.KafkaBrokers, outbox.AppointmentEventTypes)
				if err != nil {
					return err
				}
				report.Kafka = &cluster
				report.Missing = cluster.Missing()
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", cfg.GRPCAddr, status)
			}
			if len(report.Missing) > 0 {
				return fmt.Errorf("missing topics: %s", strings.Join(report.Missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "service name to check; empty checks the whole server")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "overall deadline for all checks")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until SERVING or the timeout passes")
	cmd.Flags().BoolVar(&kafka, "kafka", false, "also check that every lifecycle topic exists")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
