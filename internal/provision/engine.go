package provision

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
)

// enginePackage is the synthesis engine package installed into the runtime.
const enginePackage = "piper-tts"

// EngineInstaller ensures the synthesis engine package is installed inside
// the language runtime.
type EngineInstaller struct {
	runner *command.Runner
	log    *logger.Logger
}

// NewEngineInstaller creates an engine installer.
func NewEngineInstaller(runner *command.Runner, log *logger.Logger) *EngineInstaller {
	return &EngineInstaller{
		runner: runner,
		log:    log,
	}
}

// EnsureEngine checks for the engine package through the runtime's package
// manager and installs it when absent. There is no fallback installation
// method: an install failure is fatal.
func (e *EngineInstaller) EnsureEngine(ctx context.Context, runtimePath string) error {
	_, checkErr := e.runner.Run(ctx, runtimePath, "-m", "pip", "show", enginePackage)
	if checkErr == nil {
		e.log.Info("Synthesis engine %s already installed", enginePackage)

		return nil
	}

	e.log.Info("Installing synthesis engine %s", enginePackage)

	_, upgradeErr := e.runner.Run(ctx, runtimePath, "-m", "pip", "install", "--upgrade", "pip")
	if upgradeErr != nil {
		return fmt.Errorf("failed to upgrade the runtime package manager: %w", upgradeErr)
	}

	_, installErr := e.runner.Run(ctx, runtimePath, "-m", "pip", "install", enginePackage)
	if installErr != nil {
		return fmt.Errorf("failed to install %s: %w", enginePackage, installErr)
	}

	return nil
}
