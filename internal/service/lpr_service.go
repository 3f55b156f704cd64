package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/ocr"
	"servidor_ocr/internal/plate"
	"servidor_ocr/internal/repository"
	"servidor_ocr/internal/storage"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

const MessageNoText = "No text was detected in the image."

var ErrOCRFailed = errors.New("error processing image with the OCR service")
var ErrHistoryDisabled = errors.New("reading history is not enabled")

// Notifier pushes reading events to connected dashboards.
type Notifier interface {
	BroadcastPlateRead(event domain.PlateReadNotification)
}

// Publisher forwards reading events to downstream devices.
type Publisher interface {
	PublishPlateRead(ctx context.Context, event domain.PlateReadNotification) error
}

type LPRService struct {
	detector    ocr.TextDetector
	fileStorage storage.FileStorage
	readingRepo repository.PlateReadingRepository // nil disables history
	cache       repository.OCRTextCache           // nil disables caching
	cacheTTL    time.Duration
	notifier    Notifier
	publisher   Publisher
	extractor   plate.Extractor
	now         func() time.Time
}

func NewLPRService(
	detector ocr.TextDetector,
	fileStorage storage.FileStorage,
	readingRepo repository.PlateReadingRepository,
	cache repository.OCRTextCache,
	cacheTTL time.Duration,
	notifier Notifier,
	publisher Publisher,
) *LPRService {
	return &LPRService{
		detector:    detector,
		fileStorage: fileStorage,
		readingRepo: readingRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		notifier:    notifier,
		publisher:   publisher,
		extractor:   plate.Extractor{Trace: logTrace, Miss: logMiss},
		now:         time.Now,
	}
}

func logTrace(t plate.Trace) {
	switch t.Outcome {
	case plate.DirectMatch:
		log.Printf("LPRService: plate found directly: %s (OCR word: '%s')", t.Candidate, t.Token.Original)
	case plate.CorrectedMatch:
		log.Printf("LPRService: OCR word: '%s', candidate: '%s', corrected attempt: '%s'", t.Token.Original, t.Candidate, t.Corrected)
		log.Printf("LPRService: plate found after correction: %s (OCR word: '%s')", t.Corrected, t.Token.Original)
	default:
		if t.Corrected != t.Candidate {
			log.Printf("LPRService: OCR word: '%s', candidate: '%s', corrected attempt: '%s'", t.Token.Original, t.Candidate, t.Corrected)
		}
	}
}

func logMiss() {
	log.Println("LPRService: no valid Mercosul (LLLNLNN) plate found after correction attempts.")
}

// ReadImage stores an uploaded image, reads its text and extracts the plate.
// An image whose OCR text yields no plate is a successful reading without a
// plate; only storage and OCR failures are returned as errors.
func (s *LPRService) ReadImage(ctx context.Context, in domain.ImageInput) (*domain.PlateReading, error) {
	if len(in.Data) == 0 {
		return nil, storage.ErrEmptyFile
	}

	key, err := s.fileStorage.Upload(ctx, storage.NewKey(in.FileName), in.Data)
	if err != nil {
		return nil, fmt.Errorf("LPRService.ReadImage: %w", err)
	}
	url, err := s.fileStorage.GetURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("LPRService.ReadImage: %w", err)
	}
	log.Printf("LPRService: image received: %s (%d bytes)", key, len(in.Data))

	return s.read(ctx, key, url, in.Data, in.Source)
}

// ReadStoredImage processes an image that is already in storage, such as an
// object announced by an S3 event.
func (s *LPRService) ReadStoredImage(ctx context.Context, key, url string, data []byte, source domain.ReadingSource) (*domain.PlateReading, error) {
	if len(data) == 0 {
		return nil, storage.ErrEmptyFile
	}
	return s.read(ctx, key, url, data, source)
}

func (s *LPRService) read(ctx context.Context, key, url string, data []byte, source domain.ReadingSource) (*domain.PlateReading, error) {
	text, err := s.detectText(ctx, data)
	if err != nil {
		log.Printf("LPRService: OCR error for %s: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrOCRFailed, err)
	}

	reading := &domain.PlateReading{
		ID:        uuid.New(),
		ImageKey:  key,
		ImageURL:  url,
		OCRText:   text,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}

	if strings.TrimSpace(text) == "" {
		log.Printf("LPRService: no text detected in %s", key)
		reading.Message = MessageNoText
	} else {
		log.Printf("LPRService: text detected by OCR:\n%s", text)
		res := s.extractor.Extract(text)
		reading.Message = res.Message
		if res.Found {
			reading.Plate = null.StringFrom(res.Plate)
		}
	}

	s.record(ctx, reading)
	return reading, nil
}

// ExtractText runs only the plate extractor.
func (s *LPRService) ExtractText(text string) plate.Result {
	return s.extractor.Extract(text)
}

func (s *LPRService) detectText(ctx context.Context, data []byte) (string, error) {
	if s.cache == nil {
		return s.detector.DetectText(ctx, data)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	text, err := s.cache.Get(ctx, hash)
	if err == nil {
		log.Printf("LPRService: OCR text cache hit for %s", hash)
		return text, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		log.Printf("LPRService: OCR text cache unavailable: %v", err)
	}

	text, err = s.detector.DetectText(ctx, data)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, hash, text, s.cacheTTL); err != nil {
		log.Printf("LPRService: failed to cache OCR text: %v", err)
	}
	return text, nil
}

// record persists and announces a reading. Failures are logged only.
func (s *LPRService) record(ctx context.Context, reading *domain.PlateReading) {
	if s.readingRepo != nil {
		if err := s.readingRepo.Create(ctx, reading); err != nil {
			log.Printf("LPRService: failed to save reading %s: %v", reading.ID, err)
		}
	}

	event := domain.NewPlateReadNotification(reading)
	if s.notifier != nil {
		s.notifier.BroadcastPlateRead(event)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishPlateRead(ctx, event); err != nil {
			log.Printf("LPRService: failed to publish reading %s: %v", reading.ID, err)
		}
	}
}

func (s *LPRService) ListReadings(ctx context.Context, filter domain.PlateReadingFilterDTO) ([]domain.PlateReading, error) {
	if s.readingRepo == nil {
		return nil, ErrHistoryDisabled
	}
	filter.Plate = strings.ToUpper(strings.TrimSpace(filter.Plate))
	return s.readingRepo.FindRecent(ctx, filter)
}

func (s *LPRService) GetReading(ctx context.Context, id uuid.UUID) (*domain.PlateReading, error) {
	if s.readingRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.readingRepo.FindByID(ctx, id)
}

// LatestReadingFor returns the newest reading of a stored image key.
func (s *LPRService) LatestReadingFor(ctx context.Context, key string) (*domain.PlateReading, error) {
	if s.readingRepo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.readingRepo.FindLatestByImageKey(ctx, key)
}
