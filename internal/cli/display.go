package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/julianstephens/tminus/internal/models"
)

// LineDisplay prints one line per display update. watch uses it.
type LineDisplay struct {
	mu    sync.Mutex
	w     io.Writer
	state models.SessionState
}

func NewLineDisplay(w io.Writer) *LineDisplay {
	return &LineDisplay{w: w}
}

func (d *LineDisplay) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "[%s] %s\n", d.state, text)
}

func (d *LineDisplay) SetState(state models.SessionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

func (d *LineDisplay) ShowError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "error: %s\n", msg)
}

func (d *LineDisplay) ShowStatus(msg string) {
	if msg == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "status: %s\n", msg)
}

// CaptureDisplay keeps the latest display values for one-shot commands.
type CaptureDisplay struct {
	mu     sync.Mutex
	text   string
	state  models.SessionState
	errMsg string
}

func (d *CaptureDisplay) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
}

func (d *CaptureDisplay) SetState(state models.SessionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

func (d *CaptureDisplay) ShowError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errMsg = msg
}

func (d *CaptureDisplay) ShowStatus(string) {}

// Text returns the last text shown.
func (d *CaptureDisplay) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// State returns the last state shown.
func (d *CaptureDisplay) State() models.SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Err returns the last error shown.
func (d *CaptureDisplay) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errMsg
}
