package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfiles struct {
	created *Profile
	exists  bool
	err     error
}

func (f *fakeProfiles) CreateIfAbsent(ctx context.Context, p *Profile) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.exists {
		return false, nil
	}
	f.created = p
	return true, nil
}

type fakeRegistry struct {
	registered  *Patient
	registerErr error
	patient     *Patient
	getErr      error
}

func (f *fakeRegistry) Register(ctx context.Context, p *Patient) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = p
	return nil
}

func (f *fakeRegistry) GetByID(ctx context.Context, patientID string) (*Patient, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.patient, nil
}

func patientClaims(sub string) *middleware.CognitoClaims {
	return &middleware.CognitoClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		GivenName:        "Ada",
		FamilyName:       "Lovelace",
		Email:            "ada@example.com",
		CognitoGroups:    []string{middleware.GroupPatients},
	}
}

func TestCreateOwnProfileCreated(t *testing.T) {
	profiles := &fakeProfiles{}
	h := &Handler{profiles: profiles, logger: logging.Default()}

	req := httptest.NewRequest(http.MethodPost, "/users/profile", nil)
	req = req.WithContext(middleware.ContextWithClaims(req.Context(), patientClaims("p1")))
	rr := httptest.NewRecorder()

	h.CreateOwnProfile(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, profiles.created)
	assert.Equal(t, "p1", profiles.created.PatientID)
	assert.Equal(t, "ada@example.com", profiles.created.Email)

	var body Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Ada", body.GivenName)
}

func TestCreateOwnProfileAlreadyExists(t *testing.T) {
	h := &Handler{profiles: &fakeProfiles{exists: true}, logger: logging.Default()}

	req := httptest.NewRequest(http.MethodPost, "/users/profile", nil)
	req = req.WithContext(middleware.ContextWithClaims(req.Context(), patientClaims("p1")))
	rr := httptest.NewRecorder()

	h.CreateOwnProfile(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "already exists")
}

func TestCreateOwnProfileNoIdentity(t *testing.T) {
	h := &Handler{profiles: &fakeProfiles{}, logger: logging.Default()}

	rr := httptest.NewRecorder()
	h.CreateOwnProfile(rr, httptest.NewRequest(http.MethodPost, "/users/profile", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegisterPatientValidatesBody(t *testing.T) {
	h := &Handler{registry: &fakeRegistry{}, logger: logging.Default()}

	body := bytes.NewBufferString(`{"given_name":"Ada"}`)
	rr := httptest.NewRecorder()
	h.RegisterPatient(rr, httptest.NewRequest(http.MethodPost, "/patients", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterPatientConflict(t *testing.T) {
	h := &Handler{registry: &fakeRegistry{registerErr: ErrEmailExists}, logger: logging.Default()}

	body := bytes.NewBufferString(`{"given_name":"Ada","family_name":"Lovelace","email":"ada@example.com"}`)
	rr := httptest.NewRecorder()
	h.RegisterPatient(rr, httptest.NewRequest(http.MethodPost, "/patients", body))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "already registered")
}

func TestRegisterPatientGeneratesID(t *testing.T) {
	reg := &fakeRegistry{}
	h := &Handler{registry: reg, logger: logging.Default()}

	body := bytes.NewBufferString(`{"given_name":"Ada","family_name":"Lovelace","email":"ada@example.com"}`)
	rr := httptest.NewRecorder()
	h.RegisterPatient(rr, httptest.NewRequest(http.MethodPost, "/patients", body))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, reg.registered)
	assert.NotEmpty(t, reg.registered.PatientID)
}

func TestGetPatientByID(t *testing.T) {
	reg := &fakeRegistry{patient: &Patient{PatientID: "p1", GivenName: "Ada"}}
	h := &Handler{registry: reg, logger: logging.Default()}

	r := chi.NewRouter()
	r.Get("/patients/{patientID}", h.GetPatientByID)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patients/p1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"patientId":"p1"`)
}

func TestGetPatientByIDNotFound(t *testing.T) {
	reg := &fakeRegistry{getErr: ErrPatientNotFound}
	h := &Handler{registry: reg, logger: logging.Default()}

	r := chi.NewRouter()
	r.Get("/patients/{patientID}", h.GetPatientByID)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/patients/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
