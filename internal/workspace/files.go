// Package workspace manages per-month workspaces: their folders on disk and
// the guided progress through upload, review and calculation.
package workspace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Zone is a subfolder of a workspace directory.
type Zone string

// Workspace zones.
const (
	ZoneRaw       Zone = "raw"
	ZoneCSV       Zone = "csv"
	ZoneJSON      Zone = "json"
	ZoneFact      Zone = "fact"
	ZonePolicy    Zone = "policy"
	ZoneResults   Zone = "results"
	ZoneReports   Zone = "reports"
	ZoneDocuments Zone = "documents"
	ZoneOCR       Zone = "ocr"
	ZoneInbox     Zone = "inbox"
)

// Zones lists every zone created for a workspace.
var Zones = []Zone{
	ZoneRaw, ZoneCSV, ZoneJSON, ZoneFact, ZonePolicy,
	ZoneResults, ZoneReports, ZoneDocuments, ZoneOCR, ZoneInbox,
}

// Files lays workspaces out under a root directory, one directory per
// workspace id.
type Files struct {
	root string
}

// NewFiles returns a Files rooted at root.
func NewFiles(root string) *Files {
	return &Files{root: root}
}

// Root returns the directory holding all workspaces.
func (f *Files) Root() string {
	return f.root
}

// Path returns the directory of a zone without creating it.
func (f *Files) Path(workspaceID string, zone Zone) string {
	return filepath.Join(f.root, workspaceID, string(zone))
}

// EnsureWorkspace creates every zone of the workspace and returns its root.
func (f *Files) EnsureWorkspace(workspaceID string) (string, error) {
	if workspaceID == "" || workspaceID != filepath.Base(workspaceID) {
		return "", fmt.Errorf("invalid workspace id %q", workspaceID)
	}
	for _, zone := range Zones {
		if err := os.MkdirAll(f.Path(workspaceID, zone), 0750); err != nil {
			return "", fmt.Errorf("failed to create %s zone: %w", zone, err)
		}
	}
	return filepath.Join(f.root, workspaceID), nil
}

// SaveRaw writes an upload into the raw zone. Only the base name of filename
// is kept.
func (f *Files) SaveRaw(workspaceID, filename string, r io.Reader) (string, error) {
	if _, err := f.EnsureWorkspace(workspaceID); err != nil {
		return "", err
	}
	target := filepath.Join(f.Path(workspaceID, ZoneRaw), filepath.Base(filename))

	out, err := os.Create(target) // #nosec G304 -- target is confined to the raw zone
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return target, nil
}

// CopyInto copies path into a zone under its base name. A file already in
// place is left alone.
func (f *Files) CopyInto(workspaceID, path string, zone Zone) (string, error) {
	if _, err := f.EnsureWorkspace(workspaceID); err != nil {
		return "", err
	}
	target := filepath.Join(f.Path(workspaceID, zone), filepath.Base(path))

	src, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dst, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if src == dst {
		return target, nil
	}

	in, err := os.Open(path) // #nosec G304 -- caller-provided upload
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(target) // #nosec G304 -- target is confined to the zone
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return target, nil
}

// WriteJSON writes v as indented JSON into a zone.
func (f *Files) WriteJSON(workspaceID string, zone Zone, name string, v any) (string, error) {
	if _, err := f.EnsureWorkspace(workspaceID); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	target := filepath.Join(f.Path(workspaceID, zone), filepath.Base(name))
	if err := os.WriteFile(target, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}
