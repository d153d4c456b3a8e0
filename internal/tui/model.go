// Package tui is the full-screen countdown view. A session feeds it through
// a Bridge; user actions go back to the session as commands so the event
// loop never blocks on the store.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/models"
)

// Controller is the session surface the view drives.
type Controller interface {
	Submit(ctx context.Context, target models.TargetTime) error
	Clear(ctx context.Context) error
}

type writeResultMsg struct {
	err error
}

type Model struct {
	ctrl       Controller
	loc        *time.Location
	now        func() time.Time
	keys       KeyMap
	help       help.Model
	form       *huh.Form
	targetForm *TargetFormModel
	editing    bool
	text       string
	state      models.SessionState
	status     string
	errText    string
	storeName  string
	quitting   bool
	width      int
	height     int
}

func NewModel(ctrl Controller, loc *time.Location, storeName string) Model {
	if loc == nil {
		loc = time.Local
	}
	return Model{
		ctrl:      ctrl,
		loc:       loc,
		now:       time.Now,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		text:      constants.TextConnecting,
		state:     models.StateIdle,
		storeName: storeName,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.SetWindowTitle(constants.AppName)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case textMsg:
		m.text = string(msg)
		return m, nil
	case stateMsg:
		m.state = models.SessionState(msg)
		return m, nil
	case errorMsg:
		m.errText = string(msg)
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case writeResultMsg:
		if msg.err == nil {
			m.errText = ""
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}

	if m.editing {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Set):
			m.targetForm = newTargetFormModel(m.now().In(m.loc))
			m.form = NewTargetForm(m.targetForm)
			m.editing = true
			m.errText = ""
			return m, m.form.Init()
		case key.Matches(msg, m.keys.Clear):
			return m, m.clearCmd()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.editing = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		next, submit := m.completeForm()
		return next, tea.Batch(cmd, submit)
	case huh.StateAborted:
		m.editing = false
	}
	return m, cmd
}

// completeForm turns the filled form into a submit command. A target that
// does not parse keeps the form open.
func (m Model) completeForm() (Model, tea.Cmd) {
	target, err := models.CombineDateAndTime(m.targetForm.Date, m.targetForm.Time, m.loc)
	if err != nil {
		m.errText = constants.TextInvalidDate
		m.form.State = huh.StateNormal
		return m, nil
	}
	m.editing = false
	return m, m.submitCmd(target)
}

func (m Model) submitCmd(target models.TargetTime) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
		defer cancel()
		return writeResultMsg{err: ctrl.Submit(ctx, target)}
	}
}

func (m Model) clearCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
		defer cancel()
		return writeResultMsg{err: ctrl.Clear(ctx)}
	}
}
