package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"servidor_ocr/internal/api"
	"servidor_ocr/internal/api/handler"
	"servidor_ocr/internal/config"
	"servidor_ocr/internal/iot"
	"servidor_ocr/internal/ocr"
	"servidor_ocr/internal/repository"
	"servidor_ocr/internal/repository/postgresql"
	redisrepo "servidor_ocr/internal/repository/redis"
	"servidor_ocr/internal/service"
	"servidor_ocr/internal/storage"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. AWS SDK config, shared by Rekognition, S3, SQS and IoT
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(ctx, awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Could not load AWS SDK config: %v", err)
	}
	s3Client := s3.NewFromConfig(awsSDKCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	// 3. Storage
	var fileStorage storage.FileStorage
	uploadDir := ""
	switch cfg.StorageDriver {
	case "s3":
		if cfg.S3BucketName == "" {
			log.Fatal("S3_BUCKET_NAME is required when STORAGE_DRIVER=s3")
		}
		log.Printf("Using S3 storage (bucket: %s)", cfg.S3BucketName)
		fileStorage = storage.NewS3Storage(s3Client, cfg.S3BucketName)
	default:
		log.Printf("Using filesystem storage (%s/)", cfg.UploadDir)
		fileStorage = storage.NewFileSystemStorage(cfg.UploadDir)
		uploadDir = cfg.UploadDir
	}

	// 4. OCR provider
	detector, err := ocr.New(ctx, ocr.Options{
		Provider:              cfg.OCRProvider,
		GoogleCredentialsFile: cfg.GoogleCredentialsFile,
		Rekognition:           rekognition.NewFromConfig(awsSDKCfg),
	})
	if err != nil {
		log.Fatalf("Could not initialise OCR provider %q: %v", cfg.OCRProvider, err)
	}
	if closer, ok := detector.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	log.Printf("OCR provider: %s", cfg.OCRProvider)

	// 5. Optional history and cache
	var db *sql.DB
	var readingRepo repository.PlateReadingRepository
	var authService *service.AuthService
	if cfg.HistoryEnabled() {
		db, err = postgresql.NewDB(cfg)
		if err != nil {
			log.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()
		readingRepo = postgresql.NewPgPlateReadingRepository(db)
		authService = service.NewAuthService(postgresql.NewPgOperatorRepository(db), cfg.JWTSecret, cfg.JWTExpirationHours)
		log.Println("Database connected; reading history and operator auth enabled.")
	} else {
		log.Println("WARNING: DB_HOST not set. Reading history and /api/v1 auth are disabled.")
	}

	var cache repository.OCRTextCache
	if cfg.CacheEnabled() {
		redisCache := redisrepo.NewOCRTextCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisCache.Close()
		cache = redisCache
		log.Printf("OCR text cache enabled (%s, ttl %v)", cfg.RedisAddr, cfg.OCRCacheTTL)
	}

	// 6. Notifications
	plateFeed := handler.NewPlateFeed()
	go plateFeed.Run(ctx)

	var publisher service.Publisher
	if cfg.IoTMQTTEndpoint != "" {
		endpoint := cfg.IoTMQTTEndpoint
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		publisher = service.NewIoTPlatePublisher(iotDataPlaneClient, cfg.IoTPlateTopic)
		log.Printf("Publishing plate reads to IoT topic %s", cfg.IoTPlateTopic)
	}

	// 7. Services
	lprService := service.NewLPRService(detector, fileStorage, readingRepo, cache, cfg.OCRCacheTTL, plateFeed, publisher)

	// 8. S3 upload queue consumer
	var wg sync.WaitGroup
	if cfg.SQSUploadQueueURL == "" {
		log.Println("SQS_UPLOAD_QUEUE_URL not set. Upload queue consumer will not run.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsSDKCfg), cfg.SQSUploadQueueURL,
			storage.NewS3Storage(s3Client, cfg.S3BucketName), lprService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(ctx)
			log.Println("SQS Consumer stopped.")
		}()
	}

	// 9. HTTP
	router := api.SetupRouter(api.RouterDeps{
		LPRService:  lprService,
		AuthService: authService,
		PlateFeed:   plateFeed,
		UploadDir:   uploadDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Backend server running on http://localhost:%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shut down: %v", err)
	}

	if cfg.SQSUploadQueueURL != "" {
		log.Println("Waiting for SQS consumer to stop (up to 5 seconds)...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer stopped.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer did not stop in time.")
		}
	}

	log.Println("Server stopped.")
}
