// Package run orchestrates calculation runs: channel allocation, table
// generation and memoization against the run archive, with progress
// reporting for connected clients.
package run

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pointtable/backend/internal/alloc"
	"github.com/pointtable/backend/internal/catalog"
	"github.com/pointtable/backend/internal/models"
	"github.com/pointtable/backend/internal/runstore"
	"github.com/pointtable/backend/internal/table"
)

// MaxRuns limits concurrently retained runs to bound memory.
const MaxRuns = 20

// RunKeepAliveWindow is how long an actively queried run is protected from
// cleanup.
const RunKeepAliveWindow = 5 * time.Minute

// Request describes one calculation run.
type Request struct {
	Project   models.ProjectInfo
	Items     []models.EquipmentItem
	Kinds     []models.TableKind
	Templates map[models.TableKind]string // optional per-kind template names
}

// ProgressEvent is a point-in-time snapshot broadcast to subscribers while a
// run executes.
type ProgressEvent struct {
	RunID    string           `json:"runId"`
	Status   models.RunStatus `json:"status"`
	Stage    string           `json:"stage"`
	Progress float64          `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// RunState holds a run's metadata and its in-memory results.
type RunState struct {
	Run          *models.GenerationRun
	Assignments  []models.ChannelAssignment
	Tables       map[models.TableKind]*models.GeneratedTable
	LastAccessed time.Time
}

// Manager owns active runs. Calculation and generation happen on a
// background goroutine per run.
type Manager struct {
	mu      sync.RWMutex
	runs    map[string]*RunState
	catalog *catalog.Catalog
	tpls    *table.Registry
	archive *runstore.Store // nil disables memoization

	subMu   sync.Mutex
	subs    map[int]chan ProgressEvent
	nextSub int
}

// NewManager creates a run manager. archive may be nil, in which case every
// run recalculates from scratch.
func NewManager(cat *catalog.Catalog, tpls *table.Registry, archive *runstore.Store) *Manager {
	return &Manager{
		runs:    make(map[string]*RunState),
		catalog: cat,
		tpls:    tpls,
		archive: archive,
		subs:    make(map[int]chan ProgressEvent),
	}
}

// StartRun validates the request, registers a pending run and kicks off the
// calculation goroutine. Template resolution failures are reported
// synchronously so callers get an immediate error instead of a failed run.
func (m *Manager) StartRun(req Request) (*models.GenerationRun, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no equipment items in request")
	}
	if len(req.Kinds) == 0 {
		return nil, fmt.Errorf("no table kinds requested")
	}
	seen := make(map[models.TableKind]bool, len(req.Kinds))
	for _, kind := range req.Kinds {
		if !models.ValidTableKind(kind) {
			return nil, fmt.Errorf("unknown table kind: %s", kind)
		}
		if seen[kind] {
			return nil, fmt.Errorf("duplicate table kind: %s", kind)
		}
		seen[kind] = true
		if _, err := m.tpls.Resolve(kind, req.Templates[kind]); err != nil {
			return nil, err
		}
	}

	m.cleanupIfAtCapacity()

	runID := uuid.New().String()
	run := models.NewGenerationRun(runID, req.Project, req.Kinds)
	run.ItemCount = len(req.Items)
	run.StartTime = time.Now().UnixMilli()

	state := &RunState{
		Run:          run,
		Tables:       make(map[models.TableKind]*models.GeneratedTable),
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.runs[runID] = state
	m.mu.Unlock()

	go m.execute(runID, req)

	snapshot := *run
	return &snapshot, nil
}

func (m *Manager) execute(runID string, req Request) {
	defer func() {
		if r := recover(); r != nil {
			m.failRun(runID, fmt.Sprintf("run panicked: %v", r))
		}
	}()

	hash, err := runstore.InputHash(req.Items)
	if err != nil {
		m.failRun(runID, err.Error())
		return
	}
	catVersion := m.catalog.Version()

	m.updateRun(runID, func(run *models.GenerationRun) {
		run.Status = models.RunStatusCalculating
		run.Progress = 5
		run.InputHash = hash
		run.CatalogVersion = catVersion
	})
	m.broadcast(runID, "calculating")

	assignments, memoized, err := m.resolveAssignments(req.Items, hash, catVersion)
	if err != nil {
		m.failRun(runID, err.Error())
		return
	}

	if !memoized && m.archive != nil {
		rec := runstore.RunRecord{
			ID:             runID,
			InputHash:      hash,
			CatalogVersion: catVersion,
			ItemCount:      len(req.Items),
			CreatedAt:      time.Now(),
		}
		if err := m.archive.InsertRun(rec, assignments); err != nil {
			// Archive failures degrade memoization only, the run proceeds.
			fmt.Printf("[Run %s] archive insert failed: %v\n", runID[:8], err)
		}
	}

	m.mu.Lock()
	if state, ok := m.runs[runID]; ok {
		state.Assignments = assignments
		state.Run.Status = models.RunStatusGenerating
		state.Run.Progress = 10
		state.Run.AssignmentCount = len(assignments)
		state.Run.Memoized = memoized
	}
	m.mu.Unlock()
	m.broadcast(runID, "generating")

	perKind := 90.0 / float64(len(req.Kinds))
	for i, kind := range req.Kinds {
		tpl, err := m.tpls.Resolve(kind, req.Templates[kind])
		if err != nil {
			m.failRun(runID, err.Error())
			return
		}

		base := 10 + float64(i)*perKind
		progress := func(completed, total int) {
			if total == 0 {
				return
			}
			p := base + perKind*float64(completed)/float64(total)
			m.updateRun(runID, func(run *models.GenerationRun) { run.Progress = p })
		}

		tbl, err := table.Generate(assignments, tpl, progress)
		if err != nil {
			m.failRun(runID, err.Error())
			return
		}

		m.mu.Lock()
		if state, ok := m.runs[runID]; ok {
			state.Tables[kind] = tbl
		}
		m.mu.Unlock()
		m.broadcast(runID, string(kind))
	}

	m.updateRun(runID, func(run *models.GenerationRun) {
		run.Status = models.RunStatusComplete
		run.Progress = 100
		run.EndTime = time.Now().UnixMilli()
	})
	m.broadcast(runID, "complete")
}

// resolveAssignments returns the memoized assignment sequence when the
// archive holds a run for the same input and catalog, and calculates fresh
// otherwise.
func (m *Manager) resolveAssignments(items []models.EquipmentItem, hash, catVersion string) ([]models.ChannelAssignment, bool, error) {
	if m.archive != nil {
		prior, err := m.archive.FindRun(hash, catVersion)
		if err == nil && prior != nil {
			assignments, err := m.archive.Assignments(prior.ID)
			if err == nil && len(assignments) == prior.AssignmentCount {
				return assignments, true, nil
			}
		}
	}
	assignments, err := alloc.Calculate(items, m.catalog)
	if err != nil {
		return nil, false, err
	}
	return assignments, false, nil
}

func (m *Manager) failRun(runID, reason string) {
	m.updateRun(runID, func(run *models.GenerationRun) {
		run.Status = models.RunStatusError
		run.Error = reason
		run.EndTime = time.Now().UnixMilli()
	})
	m.broadcast(runID, "error")
}

func (m *Manager) updateRun(runID string, fn func(*models.GenerationRun)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.runs[runID]; ok {
		fn(state.Run)
	}
}

// GetRun returns a snapshot of a run's metadata.
func (m *Manager) GetRun(id string) (*models.GenerationRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	snapshot := *state.Run
	snapshot.Kinds = append([]models.TableKind(nil), state.Run.Kinds...)
	return &snapshot, true
}

// Assignments returns the allocation sequence of a completed run.
func (m *Manager) Assignments(id string) ([]models.ChannelAssignment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.runs[id]
	if !ok || state.Assignments == nil {
		return nil, false
	}
	state.LastAccessed = time.Now()
	return state.Assignments, true
}

// Table returns one generated table of a run.
func (m *Manager) Table(id string, kind models.TableKind) (*models.GeneratedTable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = time.Now()
	tbl, ok := state.Tables[kind]
	return tbl, ok
}

// TouchRun refreshes a run's keep-alive window.
func (m *Manager) TouchRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.runs[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// DeleteRun drops a run's in-memory results. The archived assignments, if
// any, stay available for memoization.
func (m *Manager) DeleteRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[id]; !ok {
		return false
	}
	delete(m.runs, id)
	return true
}

// CleanupOldRuns removes finished runs older than maxAge, sparing runs
// accessed within the keep-alive window.
func (m *Manager) CleanupOldRuns(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAlive := time.Now().Add(-RunKeepAliveWindow)

	for id, state := range m.runs {
		if state.Run.Status != models.RunStatusComplete && state.Run.Status != models.RunStatusError {
			continue
		}
		if state.LastAccessed.After(keepAlive) || state.LastAccessed.After(cutoff) {
			continue
		}
		delete(m.runs, id)
	}
}

func (m *Manager) cleanupIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.runs) < MaxRuns {
		return
	}

	toFree := len(m.runs) - MaxRuns + 1
	for id, state := range m.runs {
		if toFree == 0 {
			break
		}
		if state.Run.Status == models.RunStatusComplete || state.Run.Status == models.RunStatusError {
			delete(m.runs, id)
			toFree--
		}
	}
}

// Subscribe registers a progress listener. The returned cancel function must
// be called to release the channel. Events are dropped, not queued, when a
// subscriber falls behind.
func (m *Manager) Subscribe() (<-chan ProgressEvent, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan ProgressEvent, 16)
	m.subs[id] = ch

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (m *Manager) broadcast(runID, stage string) {
	run, ok := m.GetRun(runID)
	if !ok {
		return
	}
	event := ProgressEvent{
		RunID:    runID,
		Status:   run.Status,
		Stage:    stage,
		Progress: run.Progress,
		Error:    run.Error,
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
