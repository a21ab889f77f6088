package usecase

import (
	"context"
	"time"

	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/metrics"
	"fareanomaly-service/pkg/ticket"
)

// Processor is the pipeline entry point: decode, enrich, create the history
// entry, run the gates and hand approved entries to the orchestrator.
// Decode and enrichment failures never reach storage; an entry exists only
// after both succeed.
type Processor struct {
	enricher     *Enricher
	pipeline     *RulePipeline
	orchestrator *Orchestrator
	lifecycle    *Lifecycle
	metrics      *metrics.Metrics
	logger       logger.Logger
}

// NewProcessor creates a new ticket processor
func NewProcessor(
	enricher *Enricher,
	pipeline *RulePipeline,
	orchestrator *Orchestrator,
	lifecycle *Lifecycle,
	m *metrics.Metrics,
	logger logger.Logger,
) *Processor {
	return &Processor{
		enricher:     enricher,
		pipeline:     pipeline,
		orchestrator: orchestrator,
		lifecycle:    lifecycle,
		metrics:      m,
		logger:       logger,
	}
}

// Submit processes one raw ticket token end to end. Entries in flight for
// different tokens may overlap; the marker store keeps posting serialized.
func (p *Processor) Submit(ctx context.Context, raw string) error {
	start := time.Now()
	defer func() {
		p.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	}()

	data, err := ticket.Decode(raw)
	if err != nil {
		p.metrics.DecodeFailures.Inc()
		p.logger.Info("Discarding malformed ticket token", "error", err)
		return err
	}

	if err := p.enricher.Enrich(ctx, data); err != nil {
		p.metrics.DecodeFailures.Inc()
		p.logger.Error("Route enrichment failed", "error", err)
		return err
	}

	p.metrics.TicketsDecoded.Inc()

	entry, err := p.lifecycle.CreateEntry(ctx, data)
	if err != nil {
		p.metrics.ErrorsCount.WithLabelValues("create_entry").Inc()
		p.logger.Error("Failed to create history entry", "error", err)
		return err
	}

	log := p.logger.With("id", entry.ID, "origin", entry.Origin, "destination", entry.Destination)
	log.Info("Processing submitted ticket", "price", data.Price, "currency", data.Currency)

	passed, image, err := p.pipeline.Evaluate(ctx, entry.ID, data, time.Now())
	if err != nil {
		return err
	}
	if !passed {
		return nil
	}

	return p.orchestrator.Publish(ctx, entry.ID, data, image)
}
