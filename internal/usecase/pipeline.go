package usecase

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/metrics"
)

// Marker keys shared with the publishing orchestrator.
const (
	cooldownMarkerKey = "posted"
)

func routeMarkerKey(data *entity.TicketData) string {
	return fmt.Sprintf("%s_%s", data.Origin().CityCode, data.Destination().CityCode)
}

// Gate names, used as metric labels and log fields.
const (
	gateCooldown         = "cooldown"
	gateRouteDuplicate   = "route_duplicate"
	gateImages           = "images"
	gateDepartureHorizon = "departure_horizon"
	gatePriceCeiling     = "price_ceiling"
	gateAveragePrice     = "average_price"
)

// GateResult is the outcome of one rule check: either let the entry
// continue, or terminate it with a status and a displayable description.
type GateResult struct {
	Stop        bool
	Status      entity.Status
	Description string
}

// Continue lets the next gate run.
func Continue() GateResult {
	return GateResult{}
}

// Terminate short-circuits the pipeline into a terminal status.
func Terminate(status entity.Status, description string) GateResult {
	return GateResult{
		Stop:        true,
		Status:      status,
		Description: description,
	}
}

// ticketContext carries one entry through the gate sequence.
type ticketContext struct {
	entryID string
	data    *entity.TicketData
	now     time.Time
	image   *entity.ImageRecord
}

type gate struct {
	name  string
	check func(ctx context.Context, tc *ticketContext) (GateResult, error)
}

// RulePipeline evaluates the anomaly business rules over an enriched
// ticket. Gates run strictly in order; the first Terminate wins and later
// gates never run. The pipeline only ever sets declined, failed or interim
// processing transitions; succeeded belongs to the publishing orchestrator.
type RulePipeline struct {
	markers   repository.MarkerStore
	imageRepo repository.ImageRepository
	pricing   repository.PricingRepository
	lifecycle *Lifecycle
	metrics   *metrics.Metrics
	logger    logger.Logger

	maxDepartureDays int
	maxPrice         int
	pickImage        func(n int) int
}

// NewRulePipeline creates a new rule pipeline
func NewRulePipeline(
	markers repository.MarkerStore,
	imageRepo repository.ImageRepository,
	pricing repository.PricingRepository,
	lifecycle *Lifecycle,
	m *metrics.Metrics,
	logger logger.Logger,
	maxDepartureDays int,
	maxPrice int,
) *RulePipeline {
	return &RulePipeline{
		markers:          markers,
		imageRepo:        imageRepo,
		pricing:          pricing,
		lifecycle:        lifecycle,
		metrics:          m,
		logger:           logger,
		maxDepartureDays: maxDepartureDays,
		maxPrice:         maxPrice,
		pickImage:        rand.Intn,
	}
}

// Evaluate folds the gate sequence over the entry. It returns whether the
// entry passed every gate and, if so, the destination image selected for
// publishing. Any error has already been resolved to a terminal status.
func (p *RulePipeline) Evaluate(ctx context.Context, entryID string, data *entity.TicketData, now time.Time) (bool, *entity.ImageRecord, error) {
	tc := &ticketContext{
		entryID: entryID,
		data:    data,
		now:     now,
	}

	gates := []gate{
		{name: gateCooldown, check: p.checkCooldown},
		{name: gateRouteDuplicate, check: p.checkRouteDuplicate},
		{name: gateImages, check: p.checkImages},
		{name: gateDepartureHorizon, check: p.checkDepartureHorizon},
		{name: gatePriceCeiling, check: p.checkPriceCeiling},
		{name: gateAveragePrice, check: p.checkAveragePrice},
	}

	for _, g := range gates {
		result, err := g.check(ctx, tc)
		if err != nil {
			p.metrics.ErrorsCount.WithLabelValues("gate_" + g.name).Inc()
			if serr := p.lifecycle.SetStatus(ctx, entryID, entity.StatusFailed, "Internal error during rule evaluation"); serr != nil {
				p.logger.Error("Failed to record gate failure", "id", entryID, "gate", g.name, "error", serr)
			}
			return false, nil, err
		}

		if result.Stop {
			p.logger.Info("Entry terminated by gate",
				"id", entryID,
				"gate", g.name,
				"status", result.Status,
				"description", result.Description)
			if result.Status == entity.StatusDeclined {
				p.metrics.EntriesDeclined.WithLabelValues(g.name).Inc()
			}
			if err := p.lifecycle.SetStatus(ctx, entryID, result.Status, result.Description); err != nil {
				return false, nil, err
			}
			return false, nil, nil
		}
	}

	return true, tc.image, nil
}

func (p *RulePipeline) checkCooldown(ctx context.Context, tc *ticketContext) (GateResult, error) {
	set, err := p.markers.Exists(ctx, cooldownMarkerKey)
	if err != nil {
		return GateResult{}, fmt.Errorf("failed to check cooldown marker: %w", err)
	}
	if set {
		return Terminate(entity.StatusDeclined, "Too soon for a new post"), nil
	}
	return Continue(), nil
}

func (p *RulePipeline) checkRouteDuplicate(ctx context.Context, tc *ticketContext) (GateResult, error) {
	set, err := p.markers.Exists(ctx, routeMarkerKey(tc.data))
	if err != nil {
		return GateResult{}, fmt.Errorf("failed to check route marker: %w", err)
	}
	if set {
		return Terminate(entity.StatusDeclined, "Route already published recently"), nil
	}
	return Continue(), nil
}

func (p *RulePipeline) checkImages(ctx context.Context, tc *ticketContext) (GateResult, error) {
	images, err := p.imageRepo.GetByDestination(ctx, tc.data.Destination().CityCode)
	if err != nil {
		return GateResult{}, fmt.Errorf("failed to fetch destination images: %w", err)
	}
	if len(images) == 0 {
		return Terminate(entity.StatusDeclined, "Destination has no uploaded images"), nil
	}

	selected := images[0]
	if len(images) > 1 {
		selected = images[p.pickImage(len(images))]
	}
	tc.image = &selected

	return Continue(), nil
}

func (p *RulePipeline) checkDepartureHorizon(_ context.Context, tc *ticketContext) (GateResult, error) {
	departure := tc.data.Segments[0].DepartureTimestamp
	daysFromNow := int(math.Round(float64(departure-tc.now.Unix()) / 86400))

	if daysFromNow > p.maxDepartureDays {
		over := daysFromNow - p.maxDepartureDays
		return Terminate(entity.StatusDeclined, fmt.Sprintf("Departure date is too far away (+%d days)", over)), nil
	}
	return Continue(), nil
}

func (p *RulePipeline) checkPriceCeiling(_ context.Context, tc *ticketContext) (GateResult, error) {
	if tc.data.Price > p.maxPrice {
		over := tc.data.Price - p.maxPrice
		return Terminate(entity.StatusDeclined, fmt.Sprintf("Price exceeds the configured ceiling (+%d)", over)), nil
	}
	return Continue(), nil
}

func (p *RulePipeline) checkAveragePrice(ctx context.Context, tc *ticketContext) (GateResult, error) {
	if err := p.lifecycle.SetStatus(ctx, tc.entryID, entity.StatusProcessing, "Checking price..."); err != nil {
		return GateResult{}, err
	}

	period := time.Unix(tc.data.Segments[0].DepartureTimestamp, 0).UTC()
	average, err := p.pricing.AveragePrice(ctx, tc.data.Origin().CityCode, tc.data.Destination().CityCode, period)
	if err != nil {
		p.logger.Error("Average price fetch failed", "id", tc.entryID, "error", err)
		return Terminate(entity.StatusFailed, "Could not fetch price from API"), nil
	}

	if tc.data.Price > average {
		return Terminate(entity.StatusDeclined, "Discounted price exceeds the period average"), nil
	}
	return Continue(), nil
}
