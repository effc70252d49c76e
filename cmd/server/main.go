package main

import (
	"context"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"

	"github.com/palengkehub/vendorpermits/internal/evidence"
	"github.com/palengkehub/vendorpermits/internal/gcp"
	"github.com/palengkehub/vendorpermits/internal/notify"
	"github.com/palengkehub/vendorpermits/internal/server"
	"github.com/palengkehub/vendorpermits/internal/services"
	"github.com/palengkehub/vendorpermits/internal/store"
	"github.com/palengkehub/vendorpermits/internal/verifier"
)

func main() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()

	ctx := context.Background()

	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		slog.Error("PROJECT_ID environment variable must be set")
		os.Exit(1)
	}
	bucket := gcp.GetEnv("SUBMISSIONS_BUCKET", "")
	if bucket == "" {
		slog.Error("SUBMISSIONS_BUCKET environment variable must be set")
		os.Exit(1)
	}
	jwtSecret := gcp.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET environment variable must be set")
		os.Exit(1)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		slog.Error("Failed to create Firestore client", "error", err)
		os.Exit(1)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Failed to create storage client", "error", err)
		os.Exit(1)
	}
	defer storageClient.Close()

	uploader, err := gcp.NewUploader(storageClient, bucket)
	if err != nil {
		slog.Error("Failed to create uploader", "error", err)
		os.Exit(1)
	}

	vertexClient, err := gcp.NewVertexClient(ctx, projectID,
		gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		gcp.GetEnv("VERIFIER_MODEL", "gemini-2.5-pro"))
	if err != nil {
		slog.Error("Failed to create Vertex client", "error", err)
		os.Exit(1)
	}
	defer vertexClient.Close()

	visionClient, err := gcp.NewVisionClient(ctx)
	if err != nil {
		slog.Error("Failed to create Vision client", "error", err)
		os.Exit(1)
	}

	var bus *notify.Bus
	if natsURL := gcp.GetEnv("NATS_URL", ""); natsURL != "" {
		bus, err = notify.NewBus(natsURL)
		if err != nil {
			slog.Error("Failed to connect to NATS; review notifications disabled", "error", err)
		} else {
			defer bus.Close()
		}
	} else {
		slog.Warn("NATS_URL not set; review notifications disabled.")
	}

	users := store.NewFirestoreUsers(firestoreClient)
	baseDocs := store.NewFirestoreBaseDocuments(firestoreClient)
	submissions := store.NewFirestoreSubmissions(firestoreClient)

	scorer := verifier.NewScorer(vertexClient.VerifierModel, 0)
	extractor := evidence.NewExtractor(visionClient, uploader, 0)

	submissionService := services.NewSubmissionService(
		users, baseDocs, submissions, uploader, scorer, extractor,
		services.SubmissionConfig{},
	)

	reviewService := services.NewReviewService(users, submissions, reviewPublisher(bus))

	srv := server.NewServer(submissionService, reviewService, submissions, baseDocs, jwtSecret)

	port := gcp.GetEnv("PORT", "8080")
	slog.Info("Server starting.", "port", port, "projectId", projectID)
	if err := srv.Router().Run(":" + port); err != nil {
		slog.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

// reviewPublisher keeps the nil-bus case a true nil interface so the review
// service can skip publishing cleanly.
func reviewPublisher(bus *notify.Bus) services.ReviewPublisher {
	if bus == nil {
		return nil
	}
	return bus
}
