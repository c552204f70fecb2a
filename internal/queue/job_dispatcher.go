package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// JobDispatcher publishes pipeline jobs to Kafka.
type JobDispatcher struct {
	writer *kafka.Writer
}

// NewJobDispatcher constructs a dispatcher for the given topic.
func NewJobDispatcher(k *Kafka, topic string) *JobDispatcher {
	return &JobDispatcher{
		writer: k.NewWriter(topic),
	}
}

// DispatchJob writes the pipeline job to Kafka.
func (d *JobDispatcher) DispatchJob(ctx context.Context, job PipelineJob) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("job dispatcher: marshal job: %w", err)
	}

	record := kafka.Message{
		Key:   job.CallID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := d.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("job dispatcher: write message: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (d *JobDispatcher) Close() error {
	return d.writer.Close()
}
