package settings

import (
	"strings"
	"sync"

	"github.com/hoshifuri/topic-assign-api/internal/config"
)

// Settings is the process-wide assignment engine configuration. The allow-list
// is stored in its serialized pipe-delimited form (the format the host platform
// persists); all parsing and rewriting of that format lives here.
type Settings struct {
	mu sync.RWMutex

	assignEnabled          bool
	assignsPublic          bool
	assignAllowedOnGroups  string
	unassignOnClose        bool
	unassignOnGroupArchive bool
}

// Load initializes settings from the startup configuration.
func Load(cfg *config.Config) *Settings {
	return &Settings{
		assignEnabled:          cfg.AssignEnabled,
		assignsPublic:          cfg.AssignsPublic,
		assignAllowedOnGroups:  cfg.AssignAllowedOnGroups,
		unassignOnClose:        cfg.UnassignOnClose,
		unassignOnGroupArchive: cfg.UnassignOnGroupArchive,
	}
}

// AssignEnabled reports whether the assignment engine is active at all.
func (s *Settings) AssignEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignEnabled
}

// SetAssignEnabled toggles the engine.
func (s *Settings) SetAssignEnabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignEnabled = v
}

// AssignsPublic reports whether assignment data is visible to everyone.
func (s *Settings) AssignsPublic() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignsPublic
}

// SetAssignsPublic toggles public visibility of assignments.
func (s *Settings) SetAssignsPublic(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignsPublic = v
}

// UnassignOnClose reports whether closing a topic drops its assignment.
func (s *Settings) UnassignOnClose() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unassignOnClose
}

// SetUnassignOnClose toggles unassignment on topic close.
func (s *Settings) SetUnassignOnClose(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unassignOnClose = v
}

// UnassignOnGroupArchive reports whether archiving a group message snapshots
// and drops its assignment.
func (s *Settings) UnassignOnGroupArchive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unassignOnGroupArchive
}

// SetUnassignOnGroupArchive toggles the archive behavior.
func (s *Settings) SetUnassignOnGroupArchive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unassignOnGroupArchive = v
}

// AllowedGroups returns the ordered allow-list of assignable group names.
func (s *Settings) AllowedGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return splitList(s.assignAllowedOnGroups)
}

// GroupAllowed reports whether the named group is on the allow-list.
func (s *Settings) GroupAllowed(name string) bool {
	for _, g := range s.AllowedGroups() {
		if g == name {
			return true
		}
	}
	return false
}

// SetAllowedGroups replaces the allow-list wholesale.
func (s *Settings) SetAllowedGroups(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignAllowedOnGroups = joinList(names)
}

// RawAllowedGroups returns the serialized pipe-delimited allow-list.
func (s *Settings) RawAllowedGroups() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignAllowedOnGroups
}

// OnGroupRenamed rewrites a renamed group's entry in place, keeping the
// list order stable.
func (s *Settings) OnGroupRenamed(oldName, newName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := splitList(s.assignAllowedOnGroups)
	for i, g := range names {
		if g == oldName {
			names[i] = newName
		}
	}
	s.assignAllowedOnGroups = joinList(names)
}

// OnGroupDeleted removes a deleted group from the allow-list without leaving
// dangling separators behind.
func (s *Settings) OnGroupDeleted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := splitList(s.assignAllowedOnGroups)
	kept := names[:0]
	for _, g := range names {
		if g != name {
			kept = append(kept, g)
		}
	}
	s.assignAllowedOnGroups = joinList(kept)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

func joinList(names []string) string {
	return strings.Join(names, "|")
}
