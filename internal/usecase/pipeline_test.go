package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/pkg/logger"
)

func newTestPipeline(markers *stubMarkerStore, images *stubImageRepository, pricing *stubPricing, history *stubHistoryRepository) *RulePipeline {
	lc := newTestLifecycle(history, images, &stubBroadcaster{})
	p := NewRulePipeline(markers, images, pricing, lc, testMetrics, logger.NewNop(), 30, 20000)
	p.pickImage = func(int) int { return 0 }
	return p
}

func TestPipelinePassesAllGates(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	markers := &stubMarkerStore{}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_old-town.jpg", Destination: "BTS"}}}
	pricing := &stubPricing{average: 15000}
	history := &stubHistoryRepository{}

	p := newTestPipeline(markers, images, pricing, history)

	passed, image, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passed {
		t.Fatalf("expected entry to pass all gates, last transition: %+v", history.lastUpdate())
	}
	if image == nil || image.Name != "BTS_old-town.jpg" {
		t.Fatalf("expected the destination image to be selected, got %+v", image)
	}

	// The average-price gate announces itself before fetching
	last := history.lastUpdate()
	if last.status != entity.StatusProcessing || last.description != "Checking price..." {
		t.Fatalf("expected interim processing transition, got %+v", last)
	}
}

func TestPipelineCooldownDeclinesBeforeAnythingElse(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	markers := &stubMarkerStore{set: map[string]bool{cooldownMarkerKey: true}}
	images := &stubImageRepository{}
	pricing := &stubPricing{average: 15000}
	history := &stubHistoryRepository{}

	p := newTestPipeline(markers, images, pricing, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the cooldown gate to decline the entry")
	}

	last := history.lastUpdate()
	if last.status != entity.StatusDeclined {
		t.Fatalf("expected declined, got %s", last.status)
	}
	if !strings.Contains(last.description, "Too soon") {
		t.Fatalf("expected a description mentioning the cooldown, got %q", last.description)
	}
	if pricing.calls != 0 {
		t.Fatalf("average-price collaborator must not be called, got %d call(s)", pricing.calls)
	}
	if images.calls != 0 {
		t.Fatalf("image gate must not run after a terminal gate, got %d call(s)", images.calls)
	}
}

func TestPipelineEarlierGateWins(t *testing.T) {
	// Violates both the route-duplicate gate and the departure horizon;
	// the route gate runs first and must own the result.
	now := time.Now()
	data := testTicket(now.Add(90*24*time.Hour), 9435)

	markers := &stubMarkerStore{set: map[string]bool{"MOW_BTS": true}}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_1.jpg"}}}
	pricing := &stubPricing{average: 15000}
	history := &stubHistoryRepository{}

	p := newTestPipeline(markers, images, pricing, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the route gate to decline the entry")
	}

	last := history.lastUpdate()
	if !strings.Contains(last.description, "Route already published") {
		t.Fatalf("expected the route-duplicate reason, got %q", last.description)
	}
}

func TestPipelineDeclinesWithoutImages(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	history := &stubHistoryRepository{}
	p := newTestPipeline(&stubMarkerStore{}, &stubImageRepository{}, &stubPricing{average: 15000}, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the image gate to decline the entry")
	}
	if !strings.Contains(history.lastUpdate().description, "no uploaded images") {
		t.Fatalf("unexpected description %q", history.lastUpdate().description)
	}
}

func TestPipelineDepartureHorizonOverage(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(40*24*time.Hour), 9435)

	history := &stubHistoryRepository{}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_1.jpg"}}}
	p := newTestPipeline(&stubMarkerStore{}, images, &stubPricing{average: 15000}, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the horizon gate to decline the entry")
	}

	last := history.lastUpdate()
	if last.status != entity.StatusDeclined || !strings.Contains(last.description, "+10 days") {
		t.Fatalf("expected a +10 days overage, got %+v", last)
	}
}

func TestPipelinePriceCeilingOverage(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 25000)

	history := &stubHistoryRepository{}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_1.jpg"}}}
	p := newTestPipeline(&stubMarkerStore{}, images, &stubPricing{average: 30000}, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the price gate to decline the entry")
	}
	if !strings.Contains(history.lastUpdate().description, "+5000") {
		t.Fatalf("expected a +5000 overage, got %q", history.lastUpdate().description)
	}
}

func TestPipelinePricingFailureFailsEntry(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	history := &stubHistoryRepository{}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_1.jpg"}}}
	pricing := &stubPricing{err: errors.New("upstream 502")}
	p := newTestPipeline(&stubMarkerStore{}, images, pricing, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the entry to fail")
	}

	last := history.lastUpdate()
	if last.status != entity.StatusFailed {
		t.Fatalf("expected failed, got %s", last.status)
	}
	if !strings.Contains(last.description, "price from API") {
		t.Fatalf("expected the API fetch failure reason, got %q", last.description)
	}
}

func TestPipelineDeclinesAboveAverage(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	history := &stubHistoryRepository{}
	images := &stubImageRepository{images: []entity.ImageRecord{{Name: "BTS_1.jpg"}}}
	p := newTestPipeline(&stubMarkerStore{}, images, &stubPricing{average: 9000}, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Fatal("expected the average-price gate to decline the entry")
	}
	if !strings.Contains(history.lastUpdate().description, "period average") {
		t.Fatalf("unexpected description %q", history.lastUpdate().description)
	}
}

func TestPipelineMarkerStoreErrorResolvesToFailed(t *testing.T) {
	now := time.Now()
	data := testTicket(now.Add(5*24*time.Hour), 9435)

	history := &stubHistoryRepository{}
	markers := &stubMarkerStore{existsErr: errors.New("redis down")}
	p := newTestPipeline(markers, &stubImageRepository{}, &stubPricing{}, history)

	passed, _, err := p.Evaluate(context.Background(), "entry-1", data, now)
	if err == nil {
		t.Fatal("expected the marker store error to propagate")
	}
	if passed {
		t.Fatal("expected the entry not to pass")
	}
	if history.lastUpdate().status != entity.StatusFailed {
		t.Fatalf("entry must not be left in processing, got %+v", history.lastUpdate())
	}
}
