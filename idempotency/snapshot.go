package idempotency

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LLprod39/agent-ssh-dev-sub001/core"
)

// SnapshotManager owns the in-memory mutation log for in-flight tasks.
// Snapshots are held by task id so concurrent Orchestrator instances each
// keep their own (§5: "Orchestrator holds no package-level mutable state").
type SnapshotManager struct {
	mu        sync.Mutex
	snapshots map[string]*core.StateSnapshot
	maxKept   int
	preserve  bool
}

// NewSnapshotManager constructs a SnapshotManager. maxKept is stored but
// not applied: when preserve is true, Discard keeps every snapshot and no
// cap limits how many are retained.
func NewSnapshotManager(maxKept int, preserve bool) *SnapshotManager {
	return &SnapshotManager{
		snapshots: make(map[string]*core.StateSnapshot),
		maxKept:   maxKept,
		preserve:  preserve,
	}
}

// CreateStateSnapshot records a baseline and starts an empty mutation log
// for taskID.
func (m *SnapshotManager) CreateStateSnapshot(taskID string, baseline core.ServerFacts) *core.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &core.StateSnapshot{
		SnapshotID:    uuid.NewString(),
		TaskID:        taskID,
		Timestamp:     time.Now(),
		BaselineFacts: baseline,
	}
	m.snapshots[taskID] = snap
	return snap
}

// Get returns the current snapshot for taskID, if any.
func (m *SnapshotManager) Get(taskID string) (*core.StateSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[taskID]
	return snap, ok
}

// RecordPackageInstalled appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordPackageInstalled(taskID, pkg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.PackagesInstalled = append(s.Mutations.PackagesInstalled, pkg)
	}
}

// RecordServiceStarted appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordServiceStarted(taskID, service string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.ServicesStarted = append(s.Mutations.ServicesStarted, service)
	}
}

// RecordServiceEnabled appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordServiceEnabled(taskID, service string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.ServicesEnabled = append(s.Mutations.ServicesEnabled, service)
	}
}

// RecordFileCreated appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordFileCreated(taskID, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.FilesCreated = append(s.Mutations.FilesCreated, path)
	}
}

// RecordFileModified appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordFileModified(taskID, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.FilesModified = append(s.Mutations.FilesModified, path)
	}
}

// RecordUserCreated appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordUserCreated(taskID, user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.UsersCreated = append(s.Mutations.UsersCreated, user)
	}
}

// RecordGroupCreated appends to the current snapshot's mutation log.
func (m *SnapshotManager) RecordGroupCreated(taskID, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.snapshots[taskID]; ok {
		s.Mutations.GroupsCreated = append(s.Mutations.GroupsCreated, group)
	}
}

// Discard drops the snapshot for taskID unless preserve is set.
func (m *SnapshotManager) Discard(taskID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.preserve {
		delete(m.snapshots, taskID)
	}
}

// RollbackPlanner synthesizes the inverse command sequence for a
// StateSnapshot, in reverse mutation order (§4.4).
type RollbackPlanner struct{}

// NewRollbackPlanner constructs a RollbackPlanner.
func NewRollbackPlanner() *RollbackPlanner {
	return &RollbackPlanner{}
}

// CreateRollbackCommands returns the best-effort inverse sequence: stop/
// disable services, remove packages, delete created files, rmdir empty
// parent directories, delete created users and groups — in that order,
// each section itself reversed to undo the most recent mutation first.
func (p *RollbackPlanner) CreateRollbackCommands(snap *core.StateSnapshot) []string {
	var cmds []string

	for i := len(snap.Mutations.ServicesStarted) - 1; i >= 0; i-- {
		svc := snap.Mutations.ServicesStarted[i]
		cmds = append(cmds, fmt.Sprintf("systemctl stop %s", svc))
	}
	for i := len(snap.Mutations.ServicesEnabled) - 1; i >= 0; i-- {
		svc := snap.Mutations.ServicesEnabled[i]
		cmds = append(cmds, fmt.Sprintf("systemctl disable %s", svc))
	}
	for i := len(snap.Mutations.PackagesInstalled) - 1; i >= 0; i-- {
		pkg := snap.Mutations.PackagesInstalled[i]
		cmds = append(cmds, fmt.Sprintf("apt-get remove -y %s", pkg))
	}
	for i := len(snap.Mutations.FilesCreated) - 1; i >= 0; i-- {
		file := snap.Mutations.FilesCreated[i]
		cmds = append(cmds, fmt.Sprintf("rm -f %s", file))
		cmds = append(cmds, fmt.Sprintf("rmdir --ignore-fail-on-non-empty %s", parentDir(file)))
	}
	for i := len(snap.Mutations.UsersCreated) - 1; i >= 0; i-- {
		user := snap.Mutations.UsersCreated[i]
		cmds = append(cmds, fmt.Sprintf("userdel %s", user))
	}
	for i := len(snap.Mutations.GroupsCreated) - 1; i >= 0; i-- {
		group := snap.Mutations.GroupsCreated[i]
		cmds = append(cmds, fmt.Sprintf("groupdel %s", group))
	}

	return cmds
}

func parentDir(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			if i == 0 {
				return "/"
			}
			return p[:i]
		}
	}
	return "."
}
