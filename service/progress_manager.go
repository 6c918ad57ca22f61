package service

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/ludo-technologies/pyrefminer/domain"
)

// ProgressManagerImpl implements the ProgressManager interface with a
// terminal progress bar. Off a terminal it does nothing.
type ProgressManagerImpl struct {
	mu          sync.Mutex
	writer      io.Writer
	progressBar *progressbar.ProgressBar
	interactive bool
	description string
	maxValue    int
	processed   int
}

// NewProgressManager creates a progress manager writing to stderr
func NewProgressManager(description string) *ProgressManagerImpl {
	return &ProgressManagerImpl{
		writer:      os.Stderr,
		interactive: IsInteractiveEnvironment(),
		description: description,
	}
}

// NewNoopProgressManager creates a manager that never renders
func NewNoopProgressManager() *ProgressManagerImpl {
	return &ProgressManagerImpl{writer: io.Discard}
}

// Initialize sets up progress tracking with the maximum value
func (pm *ProgressManagerImpl) Initialize(maxValue int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.maxValue = maxValue
	pm.processed = 0
}

// Start starts the progress bar
func (pm *ProgressManagerImpl) Start() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.interactive && pm.progressBar == nil {
		pm.progressBar = pm.createProgressBar(pm.description, pm.maxValue)
	}
}

// Complete marks the progress as completed
func (pm *ProgressManagerImpl) Complete(success bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.progressBar == nil {
		return
	}
	if success {
		_ = pm.progressBar.Finish()
	} else {
		_ = pm.progressBar.Exit()
	}
	pm.progressBar = nil
}

// Update sets the processed count
func (pm *ProgressManagerImpl) Update(processed, total int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.processed = processed
	if pm.progressBar == nil && pm.interactive {
		pm.maxValue = total
		pm.progressBar = pm.createProgressBar(pm.description, total)
	}
	if pm.progressBar != nil {
		_ = pm.progressBar.Set(processed)
	}
}

// Increment advances the progress by one. It is safe to call from workers.
func (pm *ProgressManagerImpl) Increment() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.processed++
	if pm.progressBar != nil {
		_ = pm.progressBar.Add(1)
	}
}

// Processed returns the number of completed steps
func (pm *ProgressManagerImpl) Processed() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.processed
}

// SetDescription changes the label shown for the next phase
func (pm *ProgressManagerImpl) SetDescription(description string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.description = description
	if pm.progressBar != nil {
		pm.progressBar.Describe(description)
	}
}

// SetWriter sets the output writer for progress bars
func (pm *ProgressManagerImpl) SetWriter(writer io.Writer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.writer = writer
	if file, ok := writer.(*os.File); ok {
		pm.interactive = term.IsTerminal(int(file.Fd()))
	} else {
		pm.interactive = false
	}
}

// IsInteractive returns true if progress bars should be shown
func (pm *ProgressManagerImpl) IsInteractive() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	return pm.interactive
}

// Close cleans up any resources
func (pm *ProgressManagerImpl) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.progressBar != nil {
		_ = pm.progressBar.Finish()
		pm.progressBar = nil
	}
}

func (pm *ProgressManagerImpl) createProgressBar(description string, max int) *progressbar.ProgressBar {
	writer := pm.writer
	if writer == nil {
		writer = io.Discard
	}

	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(writer, "\r")
		}),
	)
}

// IsInteractiveEnvironment reports whether stderr is a terminal and CI is unset
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" || os.Getenv("PYREFMINER_NO_PROGRESS") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

var _ domain.ProgressManager = (*ProgressManagerImpl)(nil)
