// Package roles resolves role assignments for token claims. Both bundled
// store backends satisfy Directory; StaticDirectory covers integrators
// who keep role assignment outside this library.
package roles

import (
	"context"
	"sort"
	"sync"

	"github.com/authcore-io/authcore/store"
)

// Directory is the read surface the engine consults when minting claims
// and assigning the default role at registration.
type Directory interface {
	// RolesOf returns the user's role names sorted ascending.
	RolesOf(ctx context.Context, userID string) ([]string, error)
	// DefaultRoleID resolves the role assigned to new registrations.
	DefaultRoleID(ctx context.Context) (string, error)
}

// StaticDirectory keeps assignments in memory. Every user implicitly has
// the default role; explicit grants add to it.
type StaticDirectory struct {
	mu          sync.RWMutex
	defaultName string
	grants      map[string][]string
}

// NewStaticDirectory returns a directory whose default role is
// defaultName; empty means "user".
func NewStaticDirectory(defaultName string) *StaticDirectory {
	if defaultName == "" {
		defaultName = "user"
	}
	return &StaticDirectory{
		defaultName: defaultName,
		grants:      make(map[string][]string),
	}
}

// Grant adds a role name to the user. Duplicate grants are collapsed.
func (d *StaticDirectory) Grant(userID, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.grants[userID] {
		if existing == role {
			return
		}
	}
	d.grants[userID] = append(d.grants[userID], role)
}

func (d *StaticDirectory) RolesOf(_ context.Context, userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := []string{d.defaultName}
	for _, role := range d.grants[userID] {
		if role != d.defaultName {
			names = append(names, role)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DefaultRoleID returns the default role's name; without a role table the
// name doubles as the id.
func (d *StaticDirectory) DefaultRoleID(context.Context) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.defaultName, nil
}

var _ Directory = (store.RoleStore)(nil)
