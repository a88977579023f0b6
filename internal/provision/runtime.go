package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
	"github.com/book-expert/speech-service/internal/download"
)

// RuntimeInstaller ensures a self-contained language-runtime installation
// exists at its fixed directory, installing it when absent.
type RuntimeInstaller struct {
	client     *download.Client
	runner     *command.Runner
	runtimeDir string
	log        *logger.Logger
}

// NewRuntimeInstaller creates a runtime installer rooted at runtimeDir.
func NewRuntimeInstaller(
	client *download.Client,
	runner *command.Runner,
	runtimeDir string,
	log *logger.Logger,
) *RuntimeInstaller {
	return &RuntimeInstaller{
		client:     client,
		runner:     runner,
		runtimeDir: runtimeDir,
		log:        log,
	}
}

// EnsureRuntime returns the path of the runtime interpreter, installing the
// runtime first if the interpreter is not already present. Any failure in
// download, install invocation, or installer cleanup is fatal: a partial
// runtime is not considered usable.
func (i *RuntimeInstaller) EnsureRuntime(ctx context.Context) (string, error) {
	platform, platformErr := DetectPlatform()
	if platformErr != nil {
		return "", platformErr
	}

	runtimePath := platform.RuntimeExecutable(i.runtimeDir)
	if fileExists(runtimePath) {
		i.log.Info("Runtime already installed at %s", runtimePath)

		return runtimePath, nil
	}

	installErr := i.install(ctx, platform)
	if installErr != nil {
		return "", installErr
	}

	if !fileExists(runtimePath) {
		return "", fmt.Errorf(
			"runtime installer finished but %s does not exist", runtimePath,
		)
	}

	i.log.Info("Runtime installed at %s", runtimePath)

	return runtimePath, nil
}

func (i *RuntimeInstaller) install(ctx context.Context, platform Platform) error {
	installerURL := platform.InstallerURL()
	installerPath := filepath.Join(filepath.Dir(i.runtimeDir), platform.InstallerFileName())

	i.log.Info("Downloading runtime installer for %s from %s", platform, installerURL)

	fetchErr := i.client.Fetch(ctx, installerURL, installerPath, logProgress(i.log, platform.InstallerFileName()))
	if fetchErr != nil {
		return fmt.Errorf("failed to download runtime installer: %w", fetchErr)
	}

	name, args := platform.InstallCommand(installerPath, i.runtimeDir)

	_, runErr := i.runner.Run(ctx, name, args...)
	if runErr != nil {
		return fmt.Errorf("runtime installation failed: %w", runErr)
	}

	removeErr := os.Remove(installerPath)
	if removeErr != nil {
		return fmt.Errorf("failed to remove runtime installer: %w", removeErr)
	}

	return nil
}
