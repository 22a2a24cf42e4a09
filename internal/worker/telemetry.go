package worker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// tracer and the job counters are grounded on
// other_examples/.../internal-queue-worker-worker.go.go's package-level
// `var tracer = otel.Tracer(...)` and its observability.JobMetrics
// counters, translated from the Prometheus snapshot type there into
// OTel's own metric API (already pulled in transitively by
// pkg/observability's SDK dependency, so no extra module is needed).
var tracer = otel.Tracer("queuectl-worker")

type jobMetrics struct {
	claimed   metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	dead      metric.Int64Counter
}

func newJobMetrics() jobMetrics {
	meter := otel.Meter("queuectl-worker")
	claimed, _ := meter.Int64Counter("queuectl.jobs.claimed")
	completed, _ := meter.Int64Counter("queuectl.jobs.completed")
	failed, _ := meter.Int64Counter("queuectl.jobs.failed")
	dead, _ := meter.Int64Counter("queuectl.jobs.dead_lettered")
	return jobMetrics{claimed: claimed, completed: completed, failed: failed, dead: dead}
}

func (m jobMetrics) incClaimed(ctx context.Context)   { addOne(ctx, m.claimed) }
func (m jobMetrics) incCompleted(ctx context.Context) { addOne(ctx, m.completed) }
func (m jobMetrics) incFailed(ctx context.Context)    { addOne(ctx, m.failed) }
func (m jobMetrics) incDead(ctx context.Context)      { addOne(ctx, m.dead) }

func addOne(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

// startJobSpan opens the "job.run" span for a claimed job, mirroring the
// attribute set the same example sets (job id/attempts, worker id).
func startJobSpan(ctx context.Context, workerName, jobID, command string, attempts, maxRetries int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "job.run", trace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.String("job.command", command),
		attribute.Int("job.attempts", attempts),
		attribute.Int("job.max_retries", maxRetries),
		attribute.String("worker.name", workerName),
	))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
