package compare

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrToolkitNotFound is returned when a requested toolkit cannot be found.
var ErrToolkitNotFound = errors.New("comparator toolkit not found")

// ManifestName is the file describing a toolkit inside its directory.
const ManifestName = "toolkit.json"

// Manifest describes a comparator toolkit installed on disk.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	// Skeleton extracts a skeleton file from a silhouette bitmap.
	Skeleton string `json:"skeleton"`
	// Comparator matches two skeleton files and writes the result file.
	Comparator string `json:"comparator"`
	// Result is the file name the comparator writes its score to.
	Result string `json:"result,omitempty"`
}

// Toolkit is a discovered toolkit with resolved executable paths.
type Toolkit struct {
	Manifest   Manifest
	Path       string
	Skeleton   string
	Comparator string
}

// Registry discovers comparator toolkits under a directory.
type Registry struct {
	dir      string
	toolkits map[string]*Toolkit
	mu       sync.RWMutex
}

// NewRegistry creates a Registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:      dir,
		toolkits: make(map[string]*Toolkit),
	}
}

// Discover scans each subdirectory of the root for a toolkit.json manifest.
// A missing root is not an error.
func (r *Registry) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.toolkits = make(map[string]*Toolkit)

	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(path, ManifestName))
		if err != nil {
			continue
		}

		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue // skip broken manifests
		}
		if m.Name == "" || m.Skeleton == "" || m.Comparator == "" {
			continue
		}
		if m.Result == "" {
			m.Result = DefaultResultFile
		}

		r.toolkits[m.Name] = &Toolkit{
			Manifest:   m,
			Path:       path,
			Skeleton:   filepath.Join(path, m.Skeleton),
			Comparator: filepath.Join(path, m.Comparator),
		}
	}

	return nil
}

// Get returns a toolkit by name.
func (r *Registry) Get(name string) (*Toolkit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tk, ok := r.toolkits[name]
	if !ok {
		return nil, ErrToolkitNotFound
	}
	return tk, nil
}

// List returns all discovered toolkits sorted by name.
func (r *Registry) List() []*Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Toolkit, 0, len(r.toolkits))
	for _, tk := range r.toolkits {
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// Dir returns the registry root.
func (r *Registry) Dir() string {
	return r.dir
}
