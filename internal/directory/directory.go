// Package directory resolves the users and worlds referenced by simulations.
// Entries come from a YAML file; the guest user and demo world are always
// present so the default simulation can be seeded.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"lifesim/pkg/domain"
)

// DefaultUser is the built-in guest user.
var DefaultUser = domain.User{ID: domain.DefaultUserID, DisplayName: "Invitado"}

// DefaultWorld is the built-in demo world.
var DefaultWorld = domain.World{Name: domain.DefaultWorldName, Size: 20}

// File is the on-disk YAML layout.
type File struct {
	Users  []domain.User  `yaml:"users"`
	Worlds []domain.World `yaml:"worlds"`
}

// Directory is an in-memory lookup of users by id and worlds by name.
type Directory struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	worlds map[string]domain.World
}

// New returns a directory holding the built-in entries.
func New() *Directory {
	d := &Directory{
		users:  make(map[string]domain.User),
		worlds: make(map[string]domain.World),
	}
	d.users[DefaultUser.ID] = DefaultUser
	d.worlds[DefaultWorld.Name] = DefaultWorld
	return d
}

// Load reads path and merges its entries over the built-ins. An empty path
// yields the built-ins only.
func Load(path string) (*Directory, error) {
	d := New()
	if strings.TrimSpace(path) == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}
	if err := d.Merge(raw); err != nil {
		return nil, fmt.Errorf("directory %s: %w", path, err)
	}
	return d, nil
}

// Merge decodes YAML and adds its entries, replacing existing ones by key.
func (d *Directory) Merge(raw []byte) error {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	for i, u := range file.Users {
		if strings.TrimSpace(u.ID) == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
	}
	for i, w := range file.Worlds {
		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("worlds[%d]: name is required", i)
		}
		if w.Size < 0 {
			return fmt.Errorf("worlds[%d]: negative size %d", i, w.Size)
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range file.Users {
		d.users[u.ID] = u
	}
	for _, w := range file.Worlds {
		d.worlds[w.Name] = w
	}
	return nil
}

// AddUser registers or replaces a user.
func (d *Directory) AddUser(u domain.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id is required")
	}
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
	return nil
}

// AddWorld registers or replaces a world.
func (d *Directory) AddWorld(w domain.World) error {
	if strings.TrimSpace(w.Name) == "" {
		return errors.New("world name is required")
	}
	d.mu.Lock()
	d.worlds[w.Name] = w
	d.mu.Unlock()
	return nil
}

// User looks up a user by id.
func (d *Directory) User(_ context.Context, id string) (domain.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// World looks up a world by name.
func (d *Directory) World(_ context.Context, name string) (domain.World, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	w, ok := d.worlds[name]
	return w, ok
}

// Snapshot returns the directory contents sorted by key, in File layout.
func (d *Directory) Snapshot() File {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := File{
		Users:  make([]domain.User, 0, len(d.users)),
		Worlds: make([]domain.World, 0, len(d.worlds)),
	}
	for _, u := range d.users {
		out.Users = append(out.Users, u)
	}
	for _, w := range d.worlds {
		out.Worlds = append(out.Worlds, w)
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].ID < out.Users[j].ID })
	sort.Slice(out.Worlds, func(i, j int) bool { return out.Worlds[i].Name < out.Worlds[j].Name })
	return out
}
