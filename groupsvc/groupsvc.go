// Package groupsvc implements the GroupResolver collaborator: given a
// group id, returns the group's current ordered member list and
// metadata. The core treats groups as read-only — creation and
// membership changes are a collaborator concern exercised here only
// for the in-memory reference implementation's own bookkeeping.
package groupsvc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownGroup is returned when a group id has no record.
var ErrUnknownGroup = errors.New("unknown group")

// ErrGroupExists is returned by CreateGroup when the id is already in use.
var ErrGroupExists = errors.New("group already exists")

// Info is a group's metadata, independent of its current membership.
type Info struct {
	GroupID string
}

// GroupResolver answers membership queries for a group id. Must give a
// read-consistent snapshot for the duration of one Protect or Share
// call — callers never observe a half-updated group.
type GroupResolver interface {
	Snapshot(groupID string) (members []string, err error)
	Info(groupID string) (Info, error)
}

// memoryResolver is an in-memory reference GroupResolver. Order of
// insertion is preserved per member — Snapshot returns it directly,
// unsorted, so the order two callers observe before and after an add
// is the same for the members present at both times.
type memoryResolver struct {
	mu     sync.RWMutex
	groups map[string][]string
}

// NewMemory creates an empty in-memory GroupResolver.
func NewMemory() *memoryResolver {
	return &memoryResolver{groups: make(map[string][]string)}
}

// CreateGroup registers group id with an initial member list.
func (r *memoryResolver) CreateGroup(groupID string, members []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[groupID]; ok {
		return fmt.Errorf("groupsvc: %s: %w", groupID, ErrGroupExists)
	}

	r.groups[groupID] = append([]string(nil), members...)
	return nil
}

// AddMember appends name to group id's membership if not already present.
func (r *memoryResolver) AddMember(groupID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[groupID]
	if !ok {
		return fmt.Errorf("groupsvc: %s: %w", groupID, ErrUnknownGroup)
	}
	for _, m := range members {
		if m == name {
			return nil
		}
	}
	r.groups[groupID] = append(members, name)
	return nil
}

// RemoveMember removes name from group id's membership, if present.
// Removal never retroactively affects a snapshot already taken by a
// prior Protect or Share call — those snapshots are values the caller
// already holds, not references into this resolver's state.
func (r *memoryResolver) RemoveMember(groupID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[groupID]
	if !ok {
		return fmt.Errorf("groupsvc: %s: %w", groupID, ErrUnknownGroup)
	}

	filtered := members[:0:0]
	for _, m := range members {
		if m != name {
			filtered = append(filtered, m)
		}
	}
	r.groups[groupID] = filtered
	return nil
}

// Snapshot returns group id's current ordered member list. The caller
// owns the returned slice; later membership changes do not mutate it.
func (r *memoryResolver) Snapshot(groupID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("groupsvc: %s: %w", groupID, ErrUnknownGroup)
	}
	return append([]string(nil), members...), nil
}

// Info returns group id's metadata.
func (r *memoryResolver) Info(groupID string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.groups[groupID]; !ok {
		return Info{}, fmt.Errorf("groupsvc: %s: %w", groupID, ErrUnknownGroup)
	}
	return Info{GroupID: groupID}, nil
}

// ListGroups returns all known group ids, sorted.
func (r *memoryResolver) ListGroups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.groups))
	for id := range r.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
