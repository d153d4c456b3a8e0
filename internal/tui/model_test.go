package tui

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/models"
)

type fakeController struct {
	mu        sync.Mutex
	submitted []models.TargetTime
	cleared   int
	err       error
}

func (f *fakeController) Submit(_ context.Context, target models.TargetTime) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, target)
	return f.err
}

func (f *fakeController) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return f.err
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestDisplayMessagesUpdateModel(t *testing.T) {
	m := NewModel(&fakeController{}, time.UTC, "memory")
	assert.Equal(t, constants.TextConnecting, m.text)

	m, _ = update(t, m, stateMsg(models.StateRunning))
	m, _ = update(t, m, textMsg("0d 0h 0m 10s"))
	m, _ = update(t, m, statusMsg(constants.TextLiveUpdatesLost))
	m, _ = update(t, m, errorMsg(constants.TextSaveFailed))

	assert.Equal(t, models.StateRunning, m.state)
	view := m.View()
	assert.Contains(t, view, "0d 0h 0m 10s")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, constants.TextLiveUpdatesLost)
	assert.Contains(t, view, constants.TextSaveFailed)

	m, _ = update(t, m, statusMsg(""))
	assert.NotContains(t, m.View(), constants.TextLiveUpdatesLost)
}

func TestSuccessfulWriteClearsError(t *testing.T) {
	m := NewModel(&fakeController{}, time.UTC, "")
	m, _ = update(t, m, errorMsg(constants.TextSaveFailed))
	m, _ = update(t, m, writeResultMsg{})
	assert.Empty(t, m.errText)

	m, _ = update(t, m, errorMsg(constants.TextSaveFailed))
	m, _ = update(t, m, writeResultMsg{err: stderrors.New("boom")})
	assert.Equal(t, constants.TextSaveFailed, m.errText)
}

func TestQuitKey(t *testing.T) {
	m := NewModel(&fakeController{}, time.UTC, "")
	m, cmd := update(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestClearKeyRunsClear(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(ctrl, time.UTC, "")

	_, cmd := update(t, m, keyPress("c"))
	require.NotNil(t, cmd)
	msg := cmd()

	assert.Equal(t, writeResultMsg{}, msg)
	assert.Equal(t, 1, ctrl.cleared)
}

func TestSetKeyOpensForm(t *testing.T) {
	m := NewModel(&fakeController{}, time.UTC, "")
	m.now = func() time.Time { return time.Date(2030, 5, 1, 12, 34, 56, 0, time.UTC) }

	m, _ = update(t, m, keyPress("s"))

	require.True(t, m.editing)
	require.NotNil(t, m.form)
	assert.Equal(t, "2030-05-01", m.targetForm.Date)
	assert.Equal(t, "13:34", m.targetForm.Time)
	assert.True(t, strings.Contains(m.View(), "Set countdown target"))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.editing)
}

func TestCompleteFormSubmitsTarget(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(ctrl, time.UTC, "")
	m, _ = update(t, m, keyPress("s"))
	m.targetForm.Date = "2999-01-01"
	m.targetForm.Time = "00:00"

	m, cmd := m.completeForm()
	require.NotNil(t, cmd)
	assert.False(t, m.editing)

	assert.Equal(t, writeResultMsg{}, cmd())
	require.Len(t, ctrl.submitted, 1)
	assert.Equal(t, "2999-01-01 00:00", ctrl.submitted[0].String())
}

func TestCompleteFormRejectsBadTarget(t *testing.T) {
	ctrl := &fakeController{}
	m := NewModel(ctrl, time.UTC, "")
	m, _ = update(t, m, keyPress("s"))
	m.targetForm.Time = "25:00"

	m, cmd := m.completeForm()
	assert.Nil(t, cmd)
	assert.True(t, m.editing)
	assert.Equal(t, constants.TextInvalidDate, m.errText)
	assert.Empty(t, ctrl.submitted)
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestBridgeForwardsInOrder(t *testing.T) {
	b := NewBridge(0)
	b.SetState(models.StateRunning)
	b.SetText("0d 0h 0m 1s")

	sender := &recordingSender{}
	b.Attach(sender)
	b.ShowStatus("")
	b.ShowError(constants.TextSaveFailed)
	b.Close()
	b.Close()

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not drain")
	}

	assert.Equal(t, []tea.Msg{
		stateMsg(models.StateRunning),
		textMsg("0d 0h 0m 1s"),
		statusMsg(""),
		errorMsg(constants.TextSaveFailed),
	}, sender.msgs)
}
