package provision_test

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/book-expert/speech-service/internal/download"
	"github.com/book-expert/speech-service/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModelName = "vosk-model-small-test"

func buildModelArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	writer := zip.NewWriter(&buf)

	entries := map[string]string{
		testModelName + "/am/final.mdl":    "acoustic model",
		testModelName + "/conf/mfcc.conf":  "--sample-frequency=16000",
		testModelName + "/graph/HCLG.fst":  "decoding graph",
		testModelName + "/graph/words.txt": "the quick brown fox",
	}

	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)

		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buf.Bytes()
}

func TestEnsureModel_DownloadsExtractsAndRemovesArchive(t *testing.T) {
	t.Parallel()

	archiveData := buildModelArchive(t)

	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)

		_, _ = w.Write(archiveData)
	}))
	t.Cleanup(server.Close)

	baseDir := t.TempDir()

	manager := provision.NewRecognitionManagerWithSource(
		download.New(), baseDir, testModelName, server.URL, newTestLogger(t),
	)

	modelDir, err := manager.EnsureModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, testModelName), modelDir)

	content, readErr := os.ReadFile(filepath.Join(modelDir, "am", "final.mdl"))
	require.NoError(t, readErr)
	assert.Equal(t, "acoustic model", string(content))

	// The archive is deleted after extraction.
	assert.NoFileExists(t, filepath.Join(baseDir, testModelName+".zip"))
	assert.Equal(t, int64(1), requests.Load())
}

func TestEnsureModel_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	archiveData := buildModelArchive(t)

	var requests atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)

		_, _ = w.Write(archiveData)
	}))
	t.Cleanup(server.Close)

	baseDir := t.TempDir()

	manager := provision.NewRecognitionManagerWithSource(
		download.New(), baseDir, testModelName, server.URL, newTestLogger(t),
	)

	firstDir, err := manager.EnsureModel(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), requests.Load())

	secondDir, err := manager.EnsureModel(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstDir, secondDir)
	assert.Equal(t, int64(1), requests.Load(), "second call must not transfer anything")
}

func TestEnsureModel_ExistingDirectorySkipsNetwork(t *testing.T) {
	t.Parallel()

	baseDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, testModelName), 0o750))

	// The URL is unreachable on purpose: presence of the directory must
	// short-circuit before any network call.
	manager := provision.NewRecognitionManagerWithSource(
		download.New(), baseDir, testModelName, "http://127.0.0.1:1/model.zip", newTestLogger(t),
	)

	modelDir, err := manager.EnsureModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, testModelName), modelDir)
}
