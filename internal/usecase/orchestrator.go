package usecase

import (
	"context"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/metrics"
	"fareanomaly-service/pkg/ticket"
)

const utmTail = "&utm_campaign=anomaly&utm_source=vkontakte&utm_medium=social"

// Orchestrator drives the publishing steps for an entry that passed every
// gate. Each step is announced with a processing transition; the first
// failure resolves the entry to a terminal status and stops. Once the wall
// post is submitted there are no automatic retries: an ambiguous post
// failure must surface rather than risk a duplicate post.
type Orchestrator struct {
	shortener   repository.LinkShortener
	publisher   repository.Publisher
	markers     repository.MarkerStore
	imageSource repository.ImageSource
	lifecycle   *Lifecycle
	metrics     *metrics.Metrics
	logger      logger.Logger

	cases       ticket.CaseTable
	cooldownTTL time.Duration
	routeTTL    time.Duration
}

// NewOrchestrator creates a new publishing orchestrator
func NewOrchestrator(
	shortener repository.LinkShortener,
	publisher repository.Publisher,
	markers repository.MarkerStore,
	imageSource repository.ImageSource,
	lifecycle *Lifecycle,
	m *metrics.Metrics,
	logger logger.Logger,
	cases ticket.CaseTable,
	cooldownTTL time.Duration,
	routeTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		shortener:   shortener,
		publisher:   publisher,
		markers:     markers,
		imageSource: imageSource,
		lifecycle:   lifecycle,
		metrics:     m,
		logger:      logger,
		cases:       cases,
		cooldownTTL: cooldownTTL,
		routeTTL:    routeTTL,
	}
}

// Publish runs the post flow for one approved entry.
func (o *Orchestrator) Publish(ctx context.Context, entryID string, data *entity.TicketData, image *entity.ImageRecord) error {
	post := ticket.GenText(data, o.cases)

	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Shortening offer link"); err != nil {
		return err
	}
	shortened, err := o.shortener.Shorten(ctx, post.Link+utmTail, data.Segments[0].DepartureTimestamp)
	if err != nil {
		return o.fail(ctx, entryID, "shorten_link", "Could not shorten the offer link", err)
	}

	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Requesting upload target"); err != nil {
		return err
	}
	target, err := o.publisher.RequestUploadTarget(ctx)
	if err != nil {
		return o.fail(ctx, entryID, "upload_target", "Could not obtain an upload target", err)
	}

	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Uploading image"); err != nil {
		return err
	}
	imageBytes, err := o.imageSource.Load(ctx, image.Name)
	if err != nil {
		return o.fail(ctx, entryID, "load_image", "Could not load the destination image", err)
	}
	asset, err := o.publisher.UploadAsset(ctx, target, image.Name, imageBytes)
	if err != nil {
		return o.fail(ctx, entryID, "upload_asset", "Could not upload the image", err)
	}

	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Registering uploaded image"); err != nil {
		return err
	}
	attachment, err := o.publisher.RegisterAsset(ctx, asset)
	if err != nil {
		return o.fail(ctx, entryID, "register_asset", "Could not register the uploaded image", err)
	}

	// Acquire both markers atomically before posting. The rule pipeline's
	// cooldown and route checks happened several suspend points ago;
	// another in-flight entry may have posted since. Losing either
	// acquisition here is the near-miss double-post case and is logged
	// apart from ordinary duplicates.
	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Re-checking publishing windows"); err != nil {
		return err
	}

	acquired, err := o.markers.SetAbsent(ctx, cooldownMarkerKey, o.cooldownTTL)
	if err != nil {
		return o.fail(ctx, entryID, "acquire_cooldown", "Could not verify the posting cooldown", err)
	}
	if !acquired {
		o.logger.Warn("Race detected: cooldown marker appeared mid-publish", "id", entryID)
		return o.lifecycle.SetStatus(ctx, entryID, entity.StatusDeclined, "Too soon for a new post (detected right before posting)")
	}

	acquired, err = o.markers.SetAbsent(ctx, routeMarkerKey(data), o.routeTTL)
	if err != nil {
		return o.fail(ctx, entryID, "acquire_route", "Could not verify the route window", err)
	}
	if !acquired {
		o.logger.Warn("Race detected: route marker appeared mid-publish",
			"id", entryID,
			"route", routeMarkerKey(data))
		return o.lifecycle.SetStatus(ctx, entryID, entity.StatusDeclined, "Route already published recently (detected right before posting)")
	}

	if err := o.lifecycle.SetStatus(ctx, entryID, entity.StatusProcessing, "Submitting wall post"); err != nil {
		return err
	}
	message := post.Text + "\n\nЗабронировать: " + shortened + "\n\n"
	if err := o.publisher.Post(ctx, message, attachment); err != nil {
		return o.fail(ctx, entryID, "wall_post", "Could not submit the wall post", err)
	}

	o.metrics.PostsPublished.Inc()
	o.logger.Info("Posted",
		"id", entryID,
		"route", routeMarkerKey(data),
		"price", data.Price)

	return o.lifecycle.SetStatus(ctx, entryID, entity.StatusSucceeded, "Posted")
}

func (o *Orchestrator) fail(ctx context.Context, entryID, operation, description string, err error) error {
	o.logger.Error("Publishing step failed", "id", entryID, "operation", operation, "error", err)
	o.metrics.ErrorsCount.WithLabelValues(operation).Inc()

	if serr := o.lifecycle.SetStatus(ctx, entryID, entity.StatusFailed, description); serr != nil {
		o.logger.Error("Failed to record publishing failure", "id", entryID, "error", serr)
	}

	return err
}
