package usecase

import (
	"context"
	"errors"
	"time"

	"fareanomaly-service/internal/domain/entity"
	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/metrics"
)

// Shared prometheus registry for the package's tests; promauto registers
// globally, so the metrics are created once.
var testMetrics = metrics.NewMetrics("fareanomaly_usecase_test")

type statusCall struct {
	id          string
	status      entity.Status
	description string
}

type stubHistoryRepository struct {
	insertID   string
	insertErr  error
	inserted   []*entity.HistoryEntry
	updates    []statusCall
	updateErr  error
	recent     []entity.HistoryEntry
	stuckFixed int64
}

func (s *stubHistoryRepository) Insert(_ context.Context, entry *entity.HistoryEntry) (string, error) {
	if s.insertErr != nil {
		return "", s.insertErr
	}
	s.inserted = append(s.inserted, entry)
	if s.insertID == "" {
		return "entry-1", nil
	}
	return s.insertID, nil
}

func (s *stubHistoryRepository) UpdateStatus(_ context.Context, id string, status entity.Status, description string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, statusCall{id: id, status: status, description: description})
	return nil
}

func (s *stubHistoryRepository) GetRecent(context.Context, int, int) ([]entity.HistoryEntry, error) {
	return s.recent, nil
}

func (s *stubHistoryRepository) FailStuck(context.Context, time.Duration) (int64, error) {
	return s.stuckFixed, nil
}

func (s *stubHistoryRepository) lastUpdate() statusCall {
	if len(s.updates) == 0 {
		return statusCall{}
	}
	return s.updates[len(s.updates)-1]
}

type stubBroadcaster struct {
	statusUpdates []statusCall
	newEntries    []*entity.HistoryEntry
	err           error
}

func (s *stubBroadcaster) PublishStatusUpdate(id string, status entity.Status, description string) error {
	if s.err != nil {
		return s.err
	}
	s.statusUpdates = append(s.statusUpdates, statusCall{id: id, status: status, description: description})
	return nil
}

func (s *stubBroadcaster) PublishNewEntry(entry *entity.HistoryEntry) error {
	if s.err != nil {
		return s.err
	}
	s.newEntries = append(s.newEntries, entry)
	return nil
}

type stubImageRepository struct {
	images []entity.ImageRecord
	err    error
	calls  int
}

func (s *stubImageRepository) GetByDestination(context.Context, string) ([]entity.ImageRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.images, nil
}

func (stubImageRepository) GetAll(context.Context) ([]entity.ImageRecord, error) {
	panic("not implemented")
}

func (stubImageRepository) Save(context.Context, string) (*entity.ImageRecord, error) {
	panic("not implemented")
}

func (stubImageRepository) Delete(context.Context, string) error {
	panic("not implemented")
}

type stubMarkerStore struct {
	set       map[string]bool
	existsErr error
	acquired  []string
	denyKeys  map[string]bool
	absentErr error
}

func (s *stubMarkerStore) Exists(_ context.Context, key string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.set[key], nil
}

func (s *stubMarkerStore) SetAbsent(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.absentErr != nil {
		return false, s.absentErr
	}
	if s.denyKeys[key] {
		return false, nil
	}
	s.acquired = append(s.acquired, key)
	return true, nil
}

type stubPricing struct {
	average int
	err     error
	calls   int
}

func (s *stubPricing) AveragePrice(context.Context, string, string, time.Time) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.average, nil
}

type stubCityLookup struct {
	cities map[string]*repository.CityInfo
	calls  map[string]int
}

func (s *stubCityLookup) Resolve(_ context.Context, code string) (*repository.CityInfo, error) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[code]++
	info, ok := s.cities[code]
	if !ok {
		return nil, errors.New("no match")
	}
	return info, nil
}

type stubShortener struct {
	shortened string
	err       error
	lastURL   string
	lastExp   int64
}

func (s *stubShortener) Shorten(_ context.Context, url string, expiresAt int64) (string, error) {
	s.lastURL = url
	s.lastExp = expiresAt
	if s.err != nil {
		return "", s.err
	}
	return s.shortened, nil
}

type stubPublisher struct {
	target      string
	targetErr   error
	uploadErr   error
	registerErr error
	postErr     error

	uploadedName string
	uploadedData []byte
	attachment   string
	postedText   string
	postedAttach string
	postCalls    int
}

func (s *stubPublisher) RequestUploadTarget(context.Context) (string, error) {
	if s.targetErr != nil {
		return "", s.targetErr
	}
	if s.target == "" {
		return "https://upload.example/1", nil
	}
	return s.target, nil
}

func (s *stubPublisher) UploadAsset(_ context.Context, _, name string, data []byte) (*repository.UploadedAsset, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploadedName = name
	s.uploadedData = data
	return &repository.UploadedAsset{Server: 10, Photo: "[...]", Hash: "h"}, nil
}

func (s *stubPublisher) RegisterAsset(context.Context, *repository.UploadedAsset) (string, error) {
	if s.registerErr != nil {
		return "", s.registerErr
	}
	if s.attachment == "" {
		return "photo-1_2", nil
	}
	return s.attachment, nil
}

func (s *stubPublisher) Post(_ context.Context, text, attachment string) error {
	s.postCalls++
	if s.postErr != nil {
		return s.postErr
	}
	s.postedText = text
	s.postedAttach = attachment
	return nil
}

type stubImageSource struct {
	data []byte
	err  error
}

func (s *stubImageSource) Load(context.Context, string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}

// testTicket builds an enriched round trip VKO->BTS departing at the given
// time, five days long.
func testTicket(departure time.Time, price int) *entity.TicketData {
	back := departure.Add(5 * 24 * time.Hour)

	return &entity.TicketData{
		Segments: []entity.Segment{
			{
				DepartureTimestamp: departure.Unix(),
				ArrivalTimestamp:   departure.Add(155 * time.Minute).Unix(),
				DurationMinutes:    155,
				Origin:             entity.Place{Code: "VKO", Name: "Москва", CityCode: "MOW", CountryCode: "RU"},
				Destination:        entity.Place{Code: "BTS", Name: "Братислава", CityCode: "BTS", CountryCode: "SK"},
				Stops:              []string{},
			},
			{
				DepartureTimestamp: back.Unix(),
				ArrivalTimestamp:   back.Add(150 * time.Minute).Unix(),
				DurationMinutes:    150,
				Origin:             entity.Place{Code: "BTS", Name: "Братислава", CityCode: "BTS", CountryCode: "SK"},
				Destination:        entity.Place{Code: "VKO", Name: "Москва", CityCode: "MOW", CountryCode: "RU"},
				Stops:              []string{},
			},
		},
		Price:    price,
		Airline:  "DP",
		Currency: entity.CurrencyRUB,
		RawToken: "DP15583521001558361400000155VKOBTS_sig_9435",
	}
}

func newTestLifecycle(history *stubHistoryRepository, images *stubImageRepository, bc *stubBroadcaster) *Lifecycle {
	return NewLifecycle(history, images, bc, logger.NewNop())
}
