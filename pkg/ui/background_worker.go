package ui

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	tvdebug "github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
	"github.com/vanderheijden86/treeview/pkg/watcher"
)

// WorkerState represents the current state of the reload worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reading the items file.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string // "load" or "validate"
	Cause   error
	Time    time.Time
	Retries int
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// ReloadMsg carries freshly loaded items to the UI.
type ReloadMsg struct {
	Items []model.Item
	Hash  string
	Took  time.Duration
}

// ReloadErrorMsg is sent when a reload fails. The current tree is kept.
type ReloadErrorMsg struct {
	Err *WorkerError
}

// ReloadWorker re-reads the items file whenever it changes, off the UI
// thread, and hands the result to the program through Wait.
type ReloadWorker struct {
	path string
	key  tree.ItemKey

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool
	started    bool
	lastHash   string
	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher
	msgs    chan tea.Msg

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the ReloadWorker.
type WorkerConfig struct {
	Path          string
	ItemKey       tree.ItemKey
	DebounceDelay time.Duration
	ForcePoll     bool
	PollInterval  time.Duration
}

// NewReloadWorker creates a worker for cfg.Path. An empty path yields a
// worker that never reports anything.
func NewReloadWorker(cfg WorkerConfig) (*ReloadWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &ReloadWorker{
		path:   cfg.Path,
		key:    cfg.ItemKey,
		msgs:   make(chan tea.Msg, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if cfg.Path != "" {
		if cfg.PollInterval <= 0 {
			cfg.PollInterval = watcher.DefaultPollInterval
		}
		fw, err := watcher.New(cfg.Path,
			watcher.WithPollInterval(cfg.PollInterval),
			watcher.WithDebounce(cfg.DebounceDelay),
			watcher.WithForcePoll(cfg.ForcePoll),
			watcher.WithOnError(func(err error) {
				tvdebug.Warn("reload worker: %v", err)
			}),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}
	return w, nil
}

// Start begins watching. It is idempotent.
func (w *ReloadWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}
	if err := w.watcher.Start(); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop halts the worker. It is idempotent.
func (w *ReloadWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// State returns the current worker state.
func (w *ReloadWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error, nil after a success.
func (w *ReloadWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last delivered load.
func (w *ReloadWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// Wait returns a command that blocks until the worker has something for
// the UI. Re-issue it after each message.
func (w *ReloadWorker) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.msgs:
			return msg
		case <-w.ctx.Done():
			return nil
		}
	}
}

// TriggerRefresh reloads now. A reload already running is repeated once.
func (w *ReloadWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	go w.process()
}

func (w *ReloadWorker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

func (w *ReloadWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	msg := w.build()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	again := w.dirty
	w.state = WorkerIdle
	w.mu.Unlock()

	if msg != nil {
		w.send(msg)
	}
	if again {
		go w.process()
	}
}

func (w *ReloadWorker) send(msg tea.Msg) {
	select {
	case w.msgs <- msg:
	case <-w.ctx.Done():
	}
}

// build reads, parses and validates the file. It returns nil when the
// content is unchanged.
func (w *ReloadWorker) build() tea.Msg {
	if w.path == "" {
		return nil
	}
	start := time.Now()

	var (
		items []model.Item
		hash  string
	)
	if werr := w.safeCompute("load", func() error {
		data, err := os.ReadFile(w.path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		hash = hex.EncodeToString(sum[:])
		format, err := loader.DetectFormat(w.path)
		if err != nil {
			return err
		}
		items, err = loader.Parse(bytes.NewReader(data), format)
		return err
	}); werr != nil {
		w.recordError(werr)
		return ReloadErrorMsg{Err: werr}
	}

	if hash == w.LastHash() {
		w.recordError(nil)
		tvdebug.Log("reload worker: %s unchanged", w.path)
		return nil
	}

	if werr := w.safeCompute("validate", func() error {
		return loader.CheckCycles(items, w.key)
	}); werr != nil {
		w.recordError(werr)
		return ReloadErrorMsg{Err: werr}
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	took := time.Since(start)
	tvdebug.Log("reload worker: %d items from %s in %v", len(items), w.path, took)
	return ReloadMsg{Items: items, Hash: hash, Took: took}
}

// safeCompute runs fn, turning an error or panic into a WorkerError.
func (w *ReloadWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *ReloadWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
}
