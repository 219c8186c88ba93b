package ingest

import (
	"context"
	"log"

	"github.com/jengzang/records-timeline/internal/metrics"
	"github.com/jengzang/records-timeline/internal/models"
)

// Queue is the sample store the ingester appends to
type Queue interface {
	Enqueue(ctx context.Context, userID string, samples []models.RawSample) (added, duplicates int, err error)
}

// Ingester normalizes, validates and enqueues uploaded samples
type Ingester struct {
	queue   Queue
	metrics *metrics.Metrics
}

// NewIngester creates an ingester. m may be nil.
func NewIngester(queue Queue, m *metrics.Metrics) *Ingester {
	return &Ingester{queue: queue, metrics: m}
}

// Ingest enqueues the valid records of a batch. Bad records are counted as
// rejected and never fail the batch; only store errors are returned.
func (i *Ingester) Ingest(ctx context.Context, userID string, records []Record) (*models.IngestReport, error) {
	inputs := make([]Input, 0, len(records))
	unknown := 0
	for _, r := range records {
		in, err := r.Input()
		if err != nil {
			unknown++
			i.reject(r.Source)
			continue
		}
		inputs = append(inputs, in)
	}

	report, err := i.IngestInputs(ctx, userID, inputs)
	if err != nil {
		return nil, err
	}
	report.Received += unknown
	report.Rejected += unknown
	if report.Rejected > 0 {
		log.Printf("[Ingest] user %s: rejected %d of %d samples", userID, report.Rejected, report.Received)
	}
	return report, nil
}

// IngestInputs is Ingest for already-typed inputs
func (i *Ingester) IngestInputs(ctx context.Context, userID string, inputs []Input) (*models.IngestReport, error) {
	report := &models.IngestReport{Received: len(inputs)}

	samples := make([]models.RawSample, 0, len(inputs))
	perSource := make(map[string]int)
	for _, in := range inputs {
		s, err := Normalize(userID, in)
		if err != nil {
			report.Rejected++
			i.reject(in.Source())
			continue
		}
		samples = append(samples, s)
		perSource[s.Source]++
	}

	added, duplicates, err := i.queue.Enqueue(ctx, userID, samples)
	if err != nil {
		return nil, err
	}
	report.Ingested = added
	report.Duplicates = duplicates

	if i.metrics != nil {
		for source, n := range perSource {
			i.metrics.SamplesIngested.WithLabelValues(source).Add(float64(n))
		}
		i.metrics.Duplicates.Add(float64(duplicates))
	}
	return report, nil
}

func (i *Ingester) reject(source string) {
	if i.metrics == nil {
		return
	}
	if !models.IsValidSource(source) {
		source = "unknown"
	}
	i.metrics.SamplesRejected.WithLabelValues(source).Inc()
}
