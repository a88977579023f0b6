package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/archive"
	"github.com/book-expert/speech-service/internal/download"
)

// Fixed recognition model artifact.
const (
	recognitionModelName = "vosk-model-small-en-us-0.15"
	recognitionModelURL  = "https://alphacephei.com/vosk/models/" + recognitionModelName + ".zip"
)

// RecognitionManager ensures the recognition model archive is downloaded and
// extracted into its fixed directory.
type RecognitionManager struct {
	client    *download.Client
	baseDir   string
	modelName string
	modelURL  string
	log       *logger.Logger
}

// NewRecognitionManager creates a manager for the default recognition model,
// extracting under baseDir.
func NewRecognitionManager(
	client *download.Client,
	baseDir string,
	log *logger.Logger,
) *RecognitionManager {
	return NewRecognitionManagerWithSource(client, baseDir, recognitionModelName, recognitionModelURL, log)
}

// NewRecognitionManagerWithSource creates a manager for an explicit model
// name and archive URL. This constructor is primarily for testing.
func NewRecognitionManagerWithSource(
	client *download.Client,
	baseDir, modelName, modelURL string,
	log *logger.Logger,
) *RecognitionManager {
	return &RecognitionManager{
		client:    client,
		baseDir:   baseDir,
		modelName: modelName,
		modelURL:  modelURL,
		log:       log,
	}
}

// ModelDir returns the fixed extraction directory whose presence is the
// idempotency marker for the whole stage.
func (m *RecognitionManager) ModelDir() string {
	return filepath.Join(m.baseDir, m.modelName)
}

// EnsureModel downloads and extracts the recognition model unless its
// directory already exists, then deletes the archive. Download and extraction
// failures are fatal to startup: there is no recognition without this model.
func (m *RecognitionManager) EnsureModel(ctx context.Context) (string, error) {
	modelDir := m.ModelDir()
	if dirExists(modelDir) {
		m.log.Info("Recognition model already present at %s", modelDir)

		return modelDir, nil
	}

	archivePath := filepath.Join(m.baseDir, m.modelName+".zip")

	m.log.Info("Downloading recognition model from %s", m.modelURL)

	fetchErr := m.client.Fetch(ctx, m.modelURL, archivePath, logProgress(m.log, m.modelName+".zip"))
	if fetchErr != nil {
		return "", fmt.Errorf("failed to download recognition model: %w", fetchErr)
	}

	extractErr := archive.ExtractZip(archivePath, m.baseDir)
	if extractErr != nil {
		return "", fmt.Errorf("failed to extract recognition model: %w", extractErr)
	}

	removeErr := os.Remove(archivePath)
	if removeErr != nil {
		return "", fmt.Errorf("failed to remove recognition model archive: %w", removeErr)
	}

	m.log.Info("Recognition model extracted to %s", modelDir)

	return modelDir, nil
}
