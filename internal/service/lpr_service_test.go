package service

import (
	"context"
	"errors"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/plate"
	"servidor_ocr/internal/repository"
	"servidor_ocr/internal/storage"
	"strings"
	"testing"
	"time"
)

func newTestService(det *fakeDetector) (*LPRService, *memStorage, *memReadingRepo, *recordingNotifier, *recordingPublisher) {
	st := newMemStorage()
	repo := &memReadingRepo{}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	svc := NewLPRService(det, st, repo, nil, 0, notifier, publisher)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc, st, repo, notifier, publisher
}

func TestReadImage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPlate string
		wantMsg   string
	}{
		{name: "plate found", text: "BRASIL\nMERCOSUL ABC1D23", wantPlate: "ABC1D23", wantMsg: plate.MessageFound},
		{name: "plate corrected", text: "AB05D21", wantPlate: "ABO5D21", wantMsg: plate.MessageFound},
		{name: "text without plate", text: "12345 !!!! no plate here", wantMsg: plate.MessageNotFound},
		{name: "no text", text: "", wantMsg: MessageNoText},
		{name: "blank text", text: " \n ", wantMsg: MessageNoText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, repo, notifier, publisher := newTestService(&fakeDetector{text: tt.text})

			reading, err := svc.ReadImage(context.Background(), domain.ImageInput{
				FileName: "car.png",
				Data:     []byte("png-bytes"),
				Source:   domain.SourceUpload,
			})
			if err != nil {
				t.Fatalf("ReadImage failed: %v", err)
			}

			if reading.Plate.String != tt.wantPlate || reading.Plate.Valid != (tt.wantPlate != "") {
				t.Errorf("Expected plate %q, got %+v", tt.wantPlate, reading.Plate)
			}
			if reading.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, reading.Message)
			}
			if !strings.HasSuffix(reading.ImageKey, ".png") || reading.ImageURL != "/uploads/"+reading.ImageKey {
				t.Errorf("unexpected image key/url %q %q", reading.ImageKey, reading.ImageURL)
			}
			if _, ok := st.files[reading.ImageKey]; !ok {
				t.Error("Expected the image to be stored")
			}
			if len(repo.readings) != 1 || repo.readings[0].ID != reading.ID {
				t.Errorf("Expected the reading to be saved, got %+v", repo.readings)
			}
			if len(notifier.events) != 1 || notifier.events[0].Found != reading.Plate.Valid {
				t.Errorf("unexpected notifications %+v", notifier.events)
			}
			if len(publisher.events) != 1 || publisher.events[0].ReadingID != reading.ID.String() {
				t.Errorf("unexpected published events %+v", publisher.events)
			}
		})
	}
}

func TestReadImageErrors(t *testing.T) {
	svc, st, repo, _, _ := newTestService(&fakeDetector{err: errors.New("quota exceeded")})

	if _, err := svc.ReadImage(context.Background(), domain.ImageInput{FileName: "a.jpg"}); !errors.Is(err, storage.ErrEmptyFile) {
		t.Errorf("Expected ErrEmptyFile, got %v", err)
	}

	_, err := svc.ReadImage(context.Background(), domain.ImageInput{FileName: "a.jpg", Data: []byte("x")})
	if !errors.Is(err, ErrOCRFailed) {
		t.Fatalf("Expected ErrOCRFailed, got %v", err)
	}
	if len(st.files) != 1 {
		t.Errorf("Expected the image to be stored before OCR, got %d files", len(st.files))
	}
	if len(repo.readings) != 0 {
		t.Errorf("Expected no reading saved on OCR failure")
	}
}

func TestReadImagePublishFailureIsNotFatal(t *testing.T) {
	svc, _, _, _, publisher := newTestService(&fakeDetector{text: "ABC1D23"})
	publisher.err = errors.New("mqtt down")

	reading, err := svc.ReadImage(context.Background(), domain.ImageInput{FileName: "a.jpg", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Expected publish failure to be ignored, got %v", err)
	}
	if reading.Plate.String != "ABC1D23" {
		t.Errorf("unexpected plate %+v", reading.Plate)
	}
}

func TestReadImageUsesCache(t *testing.T) {
	det := &fakeDetector{text: "ABC1D23"}
	cache := newMemCache()
	svc := NewLPRService(det, newMemStorage(), nil, cache, time.Hour, nil, nil)

	for i := 0; i < 3; i++ {
		reading, err := svc.ReadImage(context.Background(), domain.ImageInput{FileName: "a.jpg", Data: []byte("same image")})
		if err != nil {
			t.Fatalf("ReadImage failed: %v", err)
		}
		if reading.Plate.String != "ABC1D23" {
			t.Fatalf("unexpected plate %+v", reading.Plate)
		}
	}
	if det.calls != 1 {
		t.Errorf("Expected a single OCR call, got %d", det.calls)
	}
	if cache.ttl != time.Hour {
		t.Errorf("Expected ttl 1h, got %v", cache.ttl)
	}

	if _, err := svc.ReadImage(context.Background(), domain.ImageInput{FileName: "b.jpg", Data: []byte("other image")}); err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if det.calls != 2 {
		t.Errorf("Expected a second OCR call for a new image, got %d", det.calls)
	}
}

func TestReadStoredImage(t *testing.T) {
	svc, st, repo, _, _ := newTestService(&fakeDetector{text: "XYZ9K88"})

	reading, err := svc.ReadStoredImage(context.Background(), "cam1/a.jpg", "s3://bucket/cam1/a.jpg", []byte("x"), domain.SourceQueue)
	if err != nil {
		t.Fatalf("ReadStoredImage failed: %v", err)
	}
	if reading.Plate.String != "XYZ9K88" || reading.Source != domain.SourceQueue || reading.ImageKey != "cam1/a.jpg" {
		t.Errorf("unexpected reading %+v", reading)
	}
	if len(st.files) != 0 {
		t.Error("Expected stored images not to be uploaded again")
	}
	if len(repo.readings) != 1 {
		t.Errorf("Expected one saved reading, got %d", len(repo.readings))
	}

	latest, err := svc.LatestReadingFor(context.Background(), "cam1/a.jpg")
	if err != nil || latest.ID != reading.ID {
		t.Errorf("LatestReadingFor = %+v, %v", latest, err)
	}
	if _, err := svc.LatestReadingFor(context.Background(), "cam1/other.jpg"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unread key, got %v", err)
	}
	if _, err := svc.ReadStoredImage(context.Background(), "cams/", "s3://bucket/cams/", nil, domain.SourceQueue); !errors.Is(err, storage.ErrEmptyFile) {
		t.Errorf("Expected ErrEmptyFile for empty object, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	svc, _, _, _, _ := newTestService(&fakeDetector{})
	res := svc.ExtractText("ZZZ NOPE ABC1D23 DEF4G56")
	if !res.Found || res.Plate != "ABC1D23" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestReadingHistory(t *testing.T) {
	svc, _, repo, _, _ := newTestService(&fakeDetector{text: "ABC1D23"})
	ctx := context.Background()

	reading, err := svc.ReadImage(ctx, domain.ImageInput{FileName: "a.jpg", Data: []byte("x")})
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}

	got, err := svc.GetReading(ctx, reading.ID)
	if err != nil || got.ID != reading.ID {
		t.Errorf("GetReading = %+v, %v", got, err)
	}

	list, err := svc.ListReadings(ctx, domain.PlateReadingFilterDTO{Plate: " abc1d23 "})
	if err != nil || len(list) != 1 {
		t.Errorf("ListReadings = %+v, %v", list, err)
	}
	if repo.lastFilter.Plate != "ABC1D23" {
		t.Errorf("Expected normalised plate filter, got %q", repo.lastFilter.Plate)
	}

	noHistory := NewLPRService(&fakeDetector{}, newMemStorage(), nil, nil, 0, nil, nil)
	if _, err := noHistory.ListReadings(ctx, domain.PlateReadingFilterDTO{}); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
	if _, err := noHistory.GetReading(ctx, reading.ID); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("Expected ErrHistoryDisabled, got %v", err)
	}
}
