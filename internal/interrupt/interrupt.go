// Package interrupt watches global hotkeys so a scan can be started and
// cancelled while the game window keeps focus.
package interrupt

import (
	"log/slog"
	"sync/atomic"

	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
)

// Manager monitors hotkeys: Shift+Enter starts a scan, Q cancels the one
// currently running. The running flag is written by the scan loop and
// read by the hook goroutine, hence atomic.
type Manager struct {
	startChan  chan struct{}
	cancelChan chan struct{}
	running    atomic.Bool
	logger     *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		startChan:  make(chan struct{}, 1),
		cancelChan: make(chan struct{}, 1),
		logger:     logger,
	}
}

// StartMonitoring installs the keyboard hook in a background goroutine.
func (m *Manager) StartMonitoring() {
	go m.monitor()
}

// StartChan fires once per Shift+Enter press while no scan is running.
func (m *Manager) StartChan() <-chan struct{} { return m.startChan }

// CancelChan fires once per Q press while a scan is running.
func (m *Manager) CancelChan() <-chan struct{} { return m.cancelChan }

// SetRunning flips which hotkey is live.
func (m *Manager) SetRunning(running bool) { m.running.Store(running) }

func (m *Manager) monitor() {
	eventChan := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, eventChan); err != nil {
		m.logger.Error("keyboard hook install failed", "err", err)
		return
	}
	defer keyboard.Uninstall()

	shiftPressed := false
	for event := range eventChan {
		switch event.Message {
		case types.WM_KEYDOWN:
			switch {
			case event.VKCode == types.VK_LSHIFT || event.VKCode == types.VK_RSHIFT:
				shiftPressed = true
			case event.VKCode == types.VK_RETURN && shiftPressed && !m.running.Load():
				select {
				case m.startChan <- struct{}{}:
				default:
				}
			case event.VKCode == types.VK_Q && m.running.Load():
				select {
				case m.cancelChan <- struct{}{}:
				default:
				}
			}
		case types.WM_KEYUP:
			if event.VKCode == types.VK_LSHIFT || event.VKCode == types.VK_RSHIFT {
				shiftPressed = false
			}
		}
	}
}
