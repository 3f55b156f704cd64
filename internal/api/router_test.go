package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/plate"
	"servidor_ocr/internal/repository"
	"servidor_ocr/internal/service"
	"servidor_ocr/internal/storage"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDetector struct {
	text string
	err  error
}

func (s stubDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	return s.text, s.err
}

type stubOperatorRepo struct {
	ops map[string]*domain.Operator
}

func (r *stubOperatorRepo) Create(ctx context.Context, op *domain.Operator, firstRole string) error {
	if len(r.ops) == 0 {
		op.Role = firstRole
	}
	op.ID = len(r.ops) + 1
	c := *op
	r.ops[op.Username] = &c
	return nil
}

func (r *stubOperatorRepo) FindByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	if op, ok := r.ops[username]; ok {
		c := *op
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubOperatorRepo) TouchLastLogin(ctx context.Context, id int, at time.Time) error {
	return nil
}

type uploadResponse struct {
	Plate     *string `json:"plate"`
	Message   string  `json:"message"`
	ImageURL  string  `json:"image_url"`
	ReadingID string  `json:"reading_id"`
	Error     string  `json:"error"`
}

func newTestRouter(t *testing.T, det stubDetector, withAuth bool) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	svc := service.NewLPRService(det, storage.NewFileSystemStorage(dir), nil, nil, 0, nil, nil)
	deps := RouterDeps{LPRService: svc, UploadDir: dir}
	if withAuth {
		deps.AuthService = service.NewAuthService(&stubOperatorRepo{ops: map[string]*domain.Operator{}}, "secret", time.Hour)
	}
	return SetupRouter(deps), dir
}

func multipartUpload(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) uploadResponse {
	t.Helper()
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name      string
		det       stubDetector
		wantCode  int
		wantPlate string
		wantMsg   string
	}{
		{name: "plate identified", det: stubDetector{text: "MERCOSUL ABC1D23 BRASIL"}, wantCode: http.StatusOK, wantPlate: "ABC1D23", wantMsg: plate.MessageFound},
		{name: "no plate", det: stubDetector{text: "12345 !!!! no plate here"}, wantCode: http.StatusOK, wantMsg: plate.MessageNotFound},
		{name: "no text", det: stubDetector{}, wantCode: http.StatusOK, wantMsg: service.MessageNoText},
		{name: "ocr failure", det: stubDetector{err: errors.New("boom")}, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.det, false)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, multipartUpload(t, "image", "car.jpg", []byte("jpeg-bytes")))

			if rec.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			resp := decode(t, rec)
			if tt.wantCode != http.StatusOK {
				if resp.Error != "Error processing image with the OCR service" {
					t.Errorf("unexpected error body %q", resp.Error)
				}
				return
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, resp.Message)
			}
			if tt.wantPlate == "" && resp.Plate != nil {
				t.Errorf("Expected null plate, got %q", *resp.Plate)
			}
			if tt.wantPlate != "" && (resp.Plate == nil || *resp.Plate != tt.wantPlate) {
				t.Errorf("Expected plate %q, got %v", tt.wantPlate, resp.Plate)
			}
			if !strings.HasPrefix(resp.ImageURL, "/uploads/") || resp.ReadingID == "" {
				t.Errorf("unexpected image url / reading id: %+v", resp)
			}
		})
	}
}

func TestUploadNullPlateIsSerialized(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{text: "nothing"}, false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "image", "car.jpg", []byte("x")))
	if !strings.Contains(rec.Body.String(), `"plate":null`) {
		t.Errorf("Expected an explicit null plate, got %s", rec.Body.String())
	}
}

func TestUploadWithoutFile(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{text: "ABC1D23"}, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "photo", "car.jpg", []byte("x")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp.Error != "No file uploaded" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestUploadedImageIsServed(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{text: "ABC1D23"}, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "image", "car.png", []byte("png-bytes")))
	resp := decode(t, rec)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, resp.ImageURL, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Errorf("Expected stored image, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestProcessImageBase64(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{text: "AB05D21"}, false)
	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	for _, payload := range []string{encoded, "data:image/png;base64," + encoded} {
		body, _ := json.Marshal(domain.LPRRequestDTO{ImageBase64: payload})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/lpr/process-image", bytes.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decode(t, rec)
		if resp.Plate == nil || *resp.Plate != "ABO5D21" {
			t.Errorf("unexpected plate %v", resp.Plate)
		}
	}

	body, _ := json.Marshal(domain.LPRRequestDTO{ImageBase64: "%%%not-base64"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/lpr/process-image", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid base64, got %d", rec.Code)
	}
}

func TestExtractEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{}, false)

	body, _ := json.Marshal(domain.ExtractTextDTO{Text: "ZZZ NOPE ABC1D23 DEF4G56"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/lpr/extract", bytes.NewReader(body)))
	resp := decode(t, rec)
	if resp.Plate == nil || *resp.Plate != "ABC1D23" || resp.Message != plate.MessageFound {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestReadingsWithoutHistory(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{}, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/readings", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("Expected 501, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/readings/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := newTestRouter(t, stubDetector{}, true)
	extract, _ := json.Marshal(domain.ExtractTextDTO{Text: "ABC1D23"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/lpr/extract", bytes.NewReader(extract)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", rec.Code)
	}

	creds, _ := json.Marshal(map[string]string{"username": "operador", "password": "s3cret!"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(creds)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 on register, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(creds)))
	var session domain.SessionDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil || session.AccessToken == "" {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lpr/extract", bytes.NewReader(extract))
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"admin"`) {
		t.Errorf("Expected first operator profile, got %d: %s", rec.Code, rec.Body.String())
	}

	// The public upload route stays open.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, multipartUpload(t, "image", "car.jpg", []byte("x")))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected public upload to work, got %d", rec.Code)
	}
}
