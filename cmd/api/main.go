package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/pbhms/pbhms/cmd/mainconfig"
	"github.com/pbhms/pbhms/internal/api/router"
	"github.com/pbhms/pbhms/internal/appointments"
	appconfig "github.com/pbhms/pbhms/internal/config"
	"github.com/pbhms/pbhms/internal/events"
	httpmiddleware "github.com/pbhms/pbhms/internal/http/middleware"
	"github.com/pbhms/pbhms/internal/notify"
	"github.com/pbhms/pbhms/internal/observability/metrics"
	"github.com/pbhms/pbhms/internal/patients"
	"github.com/pbhms/pbhms/internal/providers"
	"github.com/pbhms/pbhms/internal/records"
	"github.com/pbhms/pbhms/internal/store"
	"github.com/pbhms/pbhms/internal/users"
	"github.com/pbhms/pbhms/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pbhms API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	apiMetrics := metrics.NewAPIMetrics(prometheus.DefaultRegisterer)
	storeMetrics := metrics.NewStoreMetrics(prometheus.DefaultRegisterer)

	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	table := store.NewTable(dynamoClient, cfg.TableName, logger).WithMetrics(storeMetrics)

	// Repositories
	profileRepo := patients.NewProfileRepository(table, logger)
	registry := patients.NewRegistry(dynamoClient, cfg.PatientsTableName, logger)
	providerRepo := providers.NewRepository(table, logger)
	apptRepo := appointments.NewRepository(table, logger)
	recordRepo := records.NewRepository(table, logger)

	// Provider directory, optionally cached in Redis.
	var directory providers.Directory = providers.NewScanDirectory(table)
	if redisClient := buildRedisClient(cfg, logger); redisClient != nil {
		directory = providers.NewCachedDirectory(directory, redisClient, cfg.ProviderCacheTTL, logger)
		logger.Info("provider directory cache enabled", "ttl", cfg.ProviderCacheTTL)
	}

	// Appointment lifecycle events are optional.
	var publisher *events.Publisher
	if cfg.AppointmentEventsQueueURL != "" {
		queue := events.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.AppointmentEventsQueueURL)
		publisher = events.NewPublisher(queue, logger)
		logger.Info("appointment events enabled", "queue_url", cfg.AppointmentEventsQueueURL)
	}

	emailSender := buildEmailSender(awsCfg, cfg, logger)

	attachments := records.NewAttachmentStore(s3.NewFromConfig(awsCfg), cfg.RecordAttachmentsBucket, logger)
	if attachments.Enabled() {
		logger.Info("record attachments enabled", "bucket", cfg.RecordAttachmentsBucket)
	}

	var cognitoClient users.CognitoAPI
	if cfg.CognitoUserPoolID != "" {
		cognitoClient = cognitoidentityprovider.NewFromConfig(awsCfg)
	}

	verifier := httpmiddleware.NewCognitoVerifier(httpmiddleware.CognitoConfig{
		Region:     cfg.CognitoRegion,
		UserPoolID: cfg.CognitoUserPoolID,
		ClientID:   cfg.CognitoClientID,
		CacheTTL:   cfg.JWKSCacheTTL,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Verifier:           verifier,
		Patients:           patients.NewHandler(profileRepo, registry, logger),
		Providers:          providers.NewHandler(providerRepo, directory, profileRepo, logger),
		Appointments:       appointments.NewHandler(apptRepo, publisher, emailSender, cfg.RejectOverlappingBookings, logger),
		Records:            records.NewHandler(recordRepo, attachments, cfg.RecordsPatientSelfRead, logger),
		Users:              users.NewHandler(cognitoClient, cfg.CognitoUserPoolID, logger),
		MetricsHandler:     promhttp.Handler(),
		APIMetrics:         apiMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      http.TimeoutHandler(r, cfg.RequestTimeout, `{"error":"request timed out"}`),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildRedisClient(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	options := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(options)
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis not available, provider directory cache disabled", "error", err)
		return nil
	}
	return client
}

func buildEmailSender(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			logger.Info("confirmation email enabled", "provider", "ses")
			return sender
		}
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("confirmation email enabled", "provider", "sendgrid")
			return sender
		}
	}
	return nil
}
