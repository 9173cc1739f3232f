package records

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecords struct {
	added   *Record
	records map[string][]Record
}

func (f *fakeRecords) Add(ctx context.Context, rec *Record) error {
	rec.RecordType = strings.ToUpper(rec.RecordType)
	f.added = rec
	return nil
}

func (f *fakeRecords) ListForPatient(ctx context.Context, patientID string) ([]Record, error) {
	return f.records[patientID], nil
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	if params.ContentType != nil {
		f.types[*params.Key] = *params.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, ErrAttachmentNotFound
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}
	if ct, ok := f.types[*params.Key]; ok {
		out.ContentType = aws.String(ct)
	}
	return out, nil
}

func recordClaims(sub string, groups ...string) *middleware.CognitoClaims {
	return &middleware.CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		CognitoGroups:    groups,
	}
}

func withClaims(req *http.Request, claims *middleware.CognitoClaims) *http.Request {
	return req.WithContext(middleware.ContextWithClaims(req.Context(), claims))
}

func TestAddValidatesBody(t *testing.T) {
	h := &Handler{repo: &fakeRecords{}, logger: logging.Default()}

	body := bytes.NewBufferString(`{"patientId":"p1"}`)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/health-records", body), recordClaims("pr1", middleware.GroupProviders))
	rr := httptest.NewRecorder()

	h.Add(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddStampsAuthorAndNormalizesType(t *testing.T) {
	repo := &fakeRecords{}
	h := &Handler{repo: repo, logger: logging.Default()}

	body := bytes.NewBufferString(`{"patientId":"p1","recordType":"allergy","details":{"substance":"penicillin"}}`)
	req := withClaims(httptest.NewRequest(http.MethodPost, "/health-records", body), recordClaims("pr1", middleware.GroupProviders))
	rr := httptest.NewRecorder()

	h.Add(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, repo.added)
	assert.Equal(t, "pr1", repo.added.ProviderID)
	assert.Equal(t, "ALLERGY", repo.added.RecordType)
	assert.NotEmpty(t, repo.added.RecordID)

	var resp Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "penicillin", resp.Details["substance"])
}

func TestListMineSelfReadEnabled(t *testing.T) {
	repo := &fakeRecords{records: map[string][]Record{
		"p1": {{RecordID: "r1", PatientID: "p1", RecordType: "ALLERGY"}},
	}}
	h := &Handler{repo: repo, patientSelfRead: true, logger: logging.Default()}

	req := withClaims(httptest.NewRequest(http.MethodGet, "/health-records/my-records", nil), recordClaims("p1", middleware.GroupPatients))
	rr := httptest.NewRecorder()

	h.ListMine(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recordId":"r1"`)
}

func TestListMineSelfReadDisabled(t *testing.T) {
	h := &Handler{repo: &fakeRecords{}, patientSelfRead: false, logger: logging.Default()}

	req := withClaims(httptest.NewRequest(http.MethodGet, "/health-records/my-records", nil), recordClaims("p1", middleware.GroupPatients))
	rr := httptest.NewRecorder()

	h.ListMine(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestListMineIsolatedPerPatient(t *testing.T) {
	repo := &fakeRecords{records: map[string][]Record{
		"p1": {{RecordID: "r1", PatientID: "p1"}},
	}}
	h := &Handler{repo: repo, patientSelfRead: true, logger: logging.Default()}

	req := withClaims(httptest.NewRequest(http.MethodGet, "/health-records/my-records", nil), recordClaims("p2", middleware.GroupPatients))
	rr := httptest.NewRecorder()

	h.ListMine(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestListForPatient(t *testing.T) {
	repo := &fakeRecords{records: map[string][]Record{
		"p1": {{RecordID: "r1", PatientID: "p1"}},
	}}
	h := &Handler{repo: repo, logger: logging.Default()}

	r := chi.NewRouter()
	r.Get("/health-records/patient/{patientID}", h.ListForPatient)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/health-records/patient/p1", nil), recordClaims("pr1", middleware.GroupProviders))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recordId":"r1"`)
}

func attachmentRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/health-records/{patientID}/{recordID}/attachments/{filename}", h.UploadAttachment)
	r.Get("/health-records/{patientID}/{recordID}/attachments/{filename}", h.DownloadAttachment)
	return r
}

func TestAttachmentRoundTrip(t *testing.T) {
	s3fake := &fakeS3{}
	h := &Handler{
		attachments: NewAttachmentStore(s3fake, "pbhms-attachments", logging.Default()),
		logger:      logging.Default(),
	}
	r := attachmentRouter(h)

	upload := httptest.NewRequest(http.MethodPost, "/health-records/p1/r1/attachments/lab.pdf", bytes.NewBufferString("pdf-bytes"))
	upload.Header.Set("Content-Type", "application/pdf")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, withClaims(upload, recordClaims("pr1", middleware.GroupProviders)))
	require.Equal(t, http.StatusCreated, rr.Code)

	if _, ok := s3fake.objects["records/p1/r1/lab.pdf"]; !ok {
		t.Fatalf("object keys = %v", s3fake.objects)
	}

	download := httptest.NewRequest(http.MethodGet, "/health-records/p1/r1/attachments/lab.pdf", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, withClaims(download, recordClaims("p1", middleware.GroupPatients)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pdf-bytes", rr.Body.String())
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
}

func TestDownloadAttachmentForbiddenForOtherPatient(t *testing.T) {
	s3fake := &fakeS3{objects: map[string][]byte{"records/p1/r1/lab.pdf": []byte("x")}}
	h := &Handler{
		attachments: NewAttachmentStore(s3fake, "pbhms-attachments", logging.Default()),
		logger:      logging.Default(),
	}
	r := attachmentRouter(h)

	download := httptest.NewRequest(http.MethodGet, "/health-records/p1/r1/attachments/lab.pdf", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, withClaims(download, recordClaims("p2", middleware.GroupPatients)))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUploadAttachmentNotConfigured(t *testing.T) {
	h := &Handler{
		attachments: NewAttachmentStore(nil, "", logging.Default()),
		logger:      logging.Default(),
	}
	r := attachmentRouter(h)

	upload := httptest.NewRequest(http.MethodPost, "/health-records/p1/r1/attachments/lab.pdf", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, withClaims(upload, recordClaims("pr1", middleware.GroupProviders)))

	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
