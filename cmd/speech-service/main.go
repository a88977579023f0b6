// main package for the speech-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
	"github.com/book-expert/speech-service/internal/config"
	"github.com/book-expert/speech-service/internal/download"
	"github.com/book-expert/speech-service/internal/objectstore"
	"github.com/book-expert/speech-service/internal/provision"
	"github.com/book-expert/speech-service/internal/stt"
	"github.com/book-expert/speech-service/internal/tts"
	"github.com/book-expert/speech-service/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "speech-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runService(ctx, cfg, finalLog)
}

// runService provisions all assets, wires the engines to NATS, and blocks
// until shutdown.
func runService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// 4. Provision every asset the engines need. Any fatal stage aborts
	// startup; the service never serves half-provisioned.
	orchestrator := provision.NewOrchestrator(
		download.New(), command.NewRunner(log), &cfg.Speech, log,
	)

	provisioned, provisionErr := orchestrator.Provision(ctx)
	if provisionErr != nil {
		log.Error("Provisioning failed: %v", provisionErr)

		return fmt.Errorf("failed to provision speech assets: %w", provisionErr)
	}

	// 5. Build the two engines over the provisioned assets.
	recognizer := stt.New(provisioned.RecognitionModelDir, cfg.Speech.SampleRate, log)
	synthesizer := tts.NewSynthesizer(
		provisioned.VoiceConfigs,
		command.NewRunner(log),
		cfg.Speech.UploadsDir(),
		log,
	)

	// 6. Connect to NATS and bind the audio bucket.
	natsConnection, connectErr := nats.Connect(cfg.NATS.URL)
	if connectErr != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, connectErr)
	}

	defer natsConnection.Close()

	jetstreamContext, jetstreamErr := natsConnection.JetStream()
	if jetstreamErr != nil {
		return fmt.Errorf("failed to get JetStream context: %w", jetstreamErr)
	}

	store, storeErr := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if storeErr != nil {
		return fmt.Errorf("failed to initialize audio store: %w", storeErr)
	}

	// 7. Serve.
	speechWorker := worker.NewSpeechWorker(
		natsConnection,
		cfg.NATS.TranscribeSubject,
		cfg.NATS.SynthesizeSubject,
		store,
		recognizer,
		synthesizer,
		cfg.Speech.UploadsDir(),
		time.Duration(cfg.Speech.TimeoutSeconds)*time.Second,
		log,
	)

	log.System(
		"Speech-Service successfully initialized. Listening on subjects %s and %s",
		cfg.NATS.TranscribeSubject, cfg.NATS.SynthesizeSubject,
	)

	runErr := speechWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
