package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/ticket"
)

type processorFixture struct {
	lookup    *stubCityLookup
	markers   *stubMarkerStore
	images    *stubImageRepository
	pricing   *stubPricing
	history   *stubHistoryRepository
	publisher *stubPublisher
	processor *Processor
}

func newProcessorFixture() *processorFixture {
	f := &processorFixture{
		lookup:  lookupWith(map[string]string{"VKO": "RU", "BTS": "SK"}),
		markers: &stubMarkerStore{},
		images: &stubImageRepository{images: []entity.ImageRecord{
			{Name: "BTS_old-town.jpg", Destination: "BTS"},
		}},
		pricing:   &stubPricing{average: 15000},
		history:   &stubHistoryRepository{},
		publisher: &stubPublisher{},
	}

	log := logger.NewNop()
	lc := newTestLifecycle(f.history, f.images, &stubBroadcaster{})
	enricher := NewEnricher(f.lookup, log)

	pipeline := NewRulePipeline(f.markers, f.images, f.pricing, lc, testMetrics, log, 30, 20000)
	pipeline.pickImage = func(int) int { return 0 }

	orch := NewOrchestrator(
		&stubShortener{shortened: "https://flt.page.link/x1"},
		f.publisher,
		f.markers,
		&stubImageSource{data: []byte{1}},
		lc,
		testMetrics,
		log,
		ticket.CaseTable{},
		2*time.Hour,
		24*time.Hour,
	)

	f.processor = NewProcessor(enricher, pipeline, orch, lc, testMetrics, log)
	return f
}

// submitToken builds a round trip departing in five days so the horizon
// gate passes regardless of when the test runs.
func submitToken(t *testing.T) string {
	t.Helper()
	dep := time.Now().Add(5 * 24 * time.Hour).Unix()
	back := time.Now().Add(10 * 24 * time.Hour).Unix()

	var sb strings.Builder
	sb.WriteString("DP")
	writeSegment(&sb, dep, "VKOBTS")
	writeSegment(&sb, back, "BTSVKO")
	sb.WriteString("_1b1590e3d7fdb483711474f1f7fcf611_9435")
	return sb.String()
}

func writeSegment(sb *strings.Builder, dep int64, codes string) {
	arr := dep + 9300
	sb.WriteString(formatTimestamp(dep))
	sb.WriteString(formatTimestamp(arr))
	sb.WriteString("000155")
	sb.WriteString(codes)
}

func formatTimestamp(ts int64) string {
	digits := []byte("0000000000")
	for i := 9; i >= 0 && ts > 0; i-- {
		digits[i] = byte('0' + ts%10)
		ts /= 10
	}
	return string(digits)
}

func TestSubmitEndToEnd(t *testing.T) {
	f := newProcessorFixture()

	if err := f.processor.Submit(context.Background(), submitToken(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.history.inserted) != 1 {
		t.Fatalf("entries created = %d, want 1", len(f.history.inserted))
	}
	if f.publisher.postCalls != 1 {
		t.Fatalf("wall posts = %d, want 1", f.publisher.postCalls)
	}
	if f.history.lastUpdate().status != entity.StatusSucceeded {
		t.Fatalf("final status = %s, want succeeded", f.history.lastUpdate().status)
	}
}

func TestSubmitMalformedTokenCreatesNoEntry(t *testing.T) {
	f := newProcessorFixture()

	err := f.processor.Submit(context.Background(), "DP15583521001558361400000155VKOBTS")
	if !errors.Is(err, ticket.ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}

	if len(f.history.inserted) != 0 {
		t.Fatal("decode failures must never reach storage")
	}
	if len(f.history.updates) != 0 {
		t.Fatal("no status transitions without an entry")
	}
}

func TestSubmitLookupFailureCreatesNoEntry(t *testing.T) {
	f := newProcessorFixture()
	f.lookup.cities = map[string]*repository.CityInfo{} // nothing resolves

	err := f.processor.Submit(context.Background(), submitToken(t))
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("error = %v, want ErrLookupFailed", err)
	}
	if len(f.history.inserted) != 0 {
		t.Fatal("enrichment failures must never reach storage")
	}
}

func TestSubmitDeclinedEntryIsNotPublished(t *testing.T) {
	f := newProcessorFixture()
	f.markers.set = map[string]bool{cooldownMarkerKey: true}

	if err := f.processor.Submit(context.Background(), submitToken(t)); err != nil {
		t.Fatalf("a declined entry is not an error: %v", err)
	}

	if f.publisher.postCalls != 0 {
		t.Fatal("orchestrator must not run for a declined entry")
	}
	if f.history.lastUpdate().status != entity.StatusDeclined {
		t.Fatalf("status = %s, want declined", f.history.lastUpdate().status)
	}
}
