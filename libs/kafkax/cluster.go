package kafkax

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
)

const dialTimeout = 2 * time.Second

// TopicStatus is the cluster's view of one topic. Partitions is zero when the
// topic does not exist yet.
type TopicStatus struct {
	Topic      string `json:"topic"`
	Partitions int    `json:"partitions"`
}

// ClusterReport is what Inspect saw through the first reachable broker.
type ClusterReport struct {
	Broker string        `json:"broker"`
	Topics []TopicStatus `json:"topics"`
}

// Missing lists the inspected topics that have no partitions.
func (r ClusterReport) Missing() []string {
	var out []string
	for _, t := range r.Topics {
		if t.Partitions == 0 {
			out = append(out, t.Topic)
		}
	}
	return out
}

// Inspect connects to the first reachable broker and counts partitions for
// each of topics.
func Inspect(ctx context.Context, brokers string, topics []string) (ClusterReport, error) {
	conn, addr, err := dialAny(ctx, brokers)
	if err != nil {
		return ClusterReport{}, err
	}
	defer conn.Close()

	report := ClusterReport{Broker: addr}
	if len(topics) == 0 {
		return report, nil
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return ClusterReport{}, fmt.Errorf("read partitions from %s: %w", addr, err)
	}
	counts := make(map[string]int, len(topics))
	for _, p := range partitions {
		counts[p.Topic]++
	}
	for _, t := range topics {
		report.Topics = append(report.Topics, TopicStatus{Topic: t, Partitions: counts[t]})
	}
	sort.Slice(report.Topics, func(i, j int) bool { return report.Topics[i].Topic < report.Topics[j].Topic })
	return report, nil
}

// ReadyCheck passes while any configured broker accepts connections.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		conn, _, err := dialAny(ctx, brokers)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

func dialAny(ctx context.Context, brokers string) (*kafka.Conn, string, error) {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil, "", errors.New("kafka brokers not configured")
	}
	dialer := kafka.Dialer{Timeout: dialTimeout}
	var errs []error
	for _, addr := range list {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, addr, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", errors.Join(errs...)
}
