package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pbhms/pbhms/internal/appointments"
	httpmiddleware "github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/internal/observability/metrics"
	"github.com/pbhms/pbhms/internal/patients"
	"github.com/pbhms/pbhms/internal/providers"
	"github.com/pbhms/pbhms/internal/records"
	"github.com/pbhms/pbhms/internal/users"
	"github.com/pbhms/pbhms/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Verifier     *httpmiddleware.CognitoVerifier
	Patients     *patients.Handler
	Providers    *providers.Handler
	Appointments *appointments.Handler
	Records      *records.Handler
	Users        *users.Handler

	MetricsHandler     http.Handler
	APIMetrics         *metrics.APIMetrics
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.APIMetrics != nil {
		r.Use(httpmiddleware.Metrics(cfg.APIMetrics))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Providers != nil {
			public.Get("/providers", cfg.Providers.ListProviders)
		}
		if cfg.Users != nil {
			public.Post("/users/assign-patient-group", cfg.Users.AssignPatientGroup)
		}
		// Legacy registry endpoints predate the token flow and stay public.
		if cfg.Patients != nil {
			public.Post("/patients", cfg.Patients.RegisterPatient)
			public.Get("/patients/{patientID}", cfg.Patients.GetPatientByID)
		}
	})

	// Authenticated endpoints
	r.Group(func(authed chi.Router) {
		authed.Use(cfg.Verifier.Middleware())

		patientsOnly := httpmiddleware.RequireAnyGroup(httpmiddleware.GroupPatients)
		providersOnly := httpmiddleware.RequireAnyGroup(httpmiddleware.GroupProviders)

		if cfg.Patients != nil {
			authed.With(patientsOnly).Post("/users/profile", cfg.Patients.CreateOwnProfile)
		}

		if cfg.Providers != nil {
			authed.Route("/providers", func(pr chi.Router) {
				pr.With(providersOnly).Post("/profile", cfg.Providers.UpsertOwnProfile)
				pr.With(providersOnly).Get("/my-patients", cfg.Providers.ListMyPatients)
				pr.With(providersOnly).Get("/patient/{patientID}", cfg.Providers.GetPatientSummary)
			})
		}

		if cfg.Appointments != nil {
			authed.Route("/appointments", func(ap chi.Router) {
				ap.With(patientsOnly).Post("/", cfg.Appointments.Book)
				ap.With(patientsOnly).Get("/my-appointments", cfg.Appointments.ListMine)
				ap.With(providersOnly).Get("/provider/me", cfg.Appointments.ListForProvider)
				// Any authenticated participant may cancel; the handler
				// checks the caller against the appointment itself.
				ap.Put("/{appointmentID}/cancel", cfg.Appointments.Cancel)
			})
		}

		if cfg.Records != nil {
			authed.Route("/health-records", func(hr chi.Router) {
				hr.With(providersOnly).Post("/", cfg.Records.Add)
				hr.With(patientsOnly).Get("/my-records", cfg.Records.ListMine)
				hr.With(providersOnly).Get("/patient/{patientID}", cfg.Records.ListForPatient)
				hr.With(providersOnly).Post("/{patientID}/{recordID}/attachments/{filename}", cfg.Records.UploadAttachment)
				hr.Get("/{patientID}/{recordID}/attachments/{filename}", cfg.Records.DownloadAttachment)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
