package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/palengkehub/vendorpermits/internal/gcp"
	"github.com/palengkehub/vendorpermits/internal/notify"
	"github.com/palengkehub/vendorpermits/internal/store"
)

func main() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	ctx := context.Background()

	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		slog.Error("PROJECT_ID environment variable must be set")
		os.Exit(1)
	}
	natsURL := gcp.GetEnv("NATS_URL", "")
	if natsURL == "" {
		slog.Error("NATS_URL environment variable must be set")
		os.Exit(1)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		slog.Error("Failed to create Firestore client", "error", err)
		os.Exit(1)
	}
	defer firestoreClient.Close()

	sender, err := notify.NewFCMSender(ctx)
	if err != nil {
		slog.Error("Failed to create FCM sender", "error", err)
		os.Exit(1)
	}

	bus, err := notify.NewBus(natsURL)
	if err != nil {
		slog.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	worker := notify.NewWorker(store.NewFirestoreDeviceTokens(firestoreClient), sender)

	sub, err := bus.SubscribeReviewed(ctx, worker.HandleReviewed)
	if err != nil {
		slog.Error("Failed to subscribe to review events", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sub.Unsubscribe() }()

	slog.Info("Notifier worker running.", "subject", notify.SubjectReviewed)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("Notifier worker shutting down.")
}
