// Package provision_test tests the asset provisioning pipeline.
package provision_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/core"
	"github.com/book-expert/speech-service/internal/download"
	"github.com/book-expert/speech-service/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "provision-test.log")
	require.NoError(t, err)

	return testLogger
}

// newVoiceServer serves fake voice assets and returns 404 for any path
// containing a name in missing. It counts every request it receives.
func newVoiceServer(t *testing.T, requests *atomic.Int64, missing ...string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		for _, name := range missing {
			if strings.Contains(r.URL.Path, name) {
				http.NotFound(w, r)

				return
			}
		}

		_, _ = w.Write([]byte("asset:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)

	return server
}

func testCatalog(baseURL string, names ...string) []core.VoiceModel {
	catalog := make([]core.VoiceModel, 0, len(names))

	for _, name := range names {
		catalog = append(catalog, core.VoiceModel{
			Name:    name,
			OnnxURL: baseURL + "/" + name + ".onnx",
			JSONURL: baseURL + "/" + name + ".onnx.json",
		})
	}

	return catalog
}

func newVoiceManager(t *testing.T) (*provision.VoiceManager, string, string) {
	t.Helper()

	baseDir := t.TempDir()
	modelsDir := filepath.Join(baseDir, "piper", "models")
	configsDir := filepath.Join(baseDir, "tts_configs")

	require.NoError(t, os.MkdirAll(modelsDir, 0o750))
	require.NoError(t, os.MkdirAll(configsDir, 0o750))

	manager := provision.NewVoiceManager(download.New(), modelsDir, configsDir, newTestLogger(t))

	return manager, modelsDir, configsDir
}

func TestEnsureVoices_ProvisionsCatalogInOrder(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newVoiceServer(t, &requests)
	manager, modelsDir, configsDir := newVoiceManager(t)

	catalog := testCatalog(server.URL, "en_US-lessac-medium", "de_DE-thorsten-medium")

	configs, results := manager.EnsureVoices(context.Background(), catalog, "/opt/runtime/bin/python3")
	require.Len(t, configs, 2)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.NoError(t, result.Err)
	}

	lessac := configs["en_US-lessac-medium"]
	assert.Equal(t, "en_us", lessac.Provider)
	assert.Equal(t, "English", lessac.Language)
	assert.Equal(t, "/opt/runtime/bin/python3", lessac.RuntimePath)
	assert.Equal(t, filepath.Join(modelsDir, "en_US-lessac-medium.onnx"), lessac.ModelPath)
	assert.Equal(t, filepath.Join(modelsDir, "en_US-lessac-medium.onnx.json"), lessac.ConfigPath)

	assert.FileExists(t, filepath.Join(configsDir, "en_US-lessac-medium.json"))
	assert.FileExists(t, filepath.Join(configsDir, "de_DE-thorsten-medium.json"))

	// One model binary and one sidecar per voice.
	assert.Equal(t, int64(4), requests.Load())
}

func TestEnsureVoices_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newVoiceServer(t, &requests, "en_GB-alan-medium")
	manager, _, configsDir := newVoiceManager(t)

	catalog := testCatalog(server.URL,
		"en_US-lessac-medium",
		"en_GB-alan-medium",
		"fr_FR-siwis-medium",
	)

	configs, results := manager.EnsureVoices(context.Background(), catalog, "/opt/runtime/bin/python3")

	require.Len(t, configs, 2)
	assert.Contains(t, configs, "en_US-lessac-medium")
	assert.Contains(t, configs, "fr_FR-siwis-medium")
	assert.NotContains(t, configs, "en_GB-alan-medium")

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, download.ErrNotFound)
	assert.NoError(t, results[2].Err)

	// The failed voice must not leave a config record behind.
	assert.NoFileExists(t, filepath.Join(configsDir, "en_GB-alan-medium.json"))
}

func TestEnsureVoices_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newVoiceServer(t, &requests)
	manager, _, configsDir := newVoiceManager(t)

	catalog := testCatalog(server.URL, "en_US-amy-medium")

	_, results := manager.EnsureVoices(context.Background(), catalog, "/opt/runtime/bin/python3")
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	firstRun := requests.Load()
	require.Equal(t, int64(2), firstRun)

	configPath := filepath.Join(configsDir, "en_US-amy-medium.json")

	firstConfig, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr)

	_, results = manager.EnsureVoices(context.Background(), catalog, "/opt/runtime/bin/python3")
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	// No additional transfers, byte-identical config record.
	assert.Equal(t, firstRun, requests.Load())

	secondConfig, readErr := os.ReadFile(configPath)
	require.NoError(t, readErr)
	assert.Equal(t, firstConfig, secondConfig)
}

func TestVoiceProvider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "en_us", provision.VoiceProvider("en_US-lessac-medium"))
	assert.Equal(t, "de_de", provision.VoiceProvider("de_DE-thorsten-medium"))
	assert.Equal(t, "it_it", provision.VoiceProvider("it_IT-riccardo-x_low"))
}

func TestVoiceLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "English", provision.VoiceLanguage("en_US-lessac-medium"))
	assert.Equal(t, "German", provision.VoiceLanguage("de_DE-thorsten-medium"))
	assert.Equal(t, "Unknown Language", provision.VoiceLanguage("xx_XX-mystery-low"))
}
