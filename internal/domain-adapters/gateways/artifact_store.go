package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

const metadataFile = "metadata.json"

// ArtifactStore persists named artifacts per run on the local filesystem.
//
// Layout: <root>/<runID>/<name>/{metadata.json, files...}. Directories are
// archived as tar.gz on upload; consumers extract them with their own
// scripts, matching how the external orchestrator hands artifacts around.
type ArtifactStore struct {
	root string
}

// artifactMetadata is the on-disk metadata.json structure
type artifactMetadata struct {
	Name          string            `json:"name"`
	RunID         string            `json:"run_id"`
	Files         []string          `json:"files"`
	Checksums     map[string]string `json:"checksums"`
	CreatedAt     time.Time         `json:"created_at"`
	RetentionDays int               `json:"retention_days"`
}

// NewArtifactStore creates a store rooted at root. An empty root defaults to
// the user's XDG data directory.
func NewArtifactStore(root string) *ArtifactStore {
	if root == "" {
		root = filepath.Join(xdg.DataHome, "cascade", "artifacts")
	}
	return &ArtifactStore{root: root}
}

// Root returns the store's root directory
func (s *ArtifactStore) Root() string {
	return s.root
}

// Upload stores the given files and directories under the artifact name.
//
// Artifact names must be unique within a run; a second upload with the same
// name is a collision and fails rather than overwriting.
func (s *ArtifactStore) Upload(
	_ context.Context,
	runID, name string,
	paths []string,
	retentionDays int,
) (*entities.Artifact, error) {
	if name == "" {
		return nil, fmt.Errorf("artifact name is required")
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("artifact %q has no files to upload", name)
	}
	if retentionDays < 1 {
		retentionDays = 1
	}

	dir := filepath.Join(s.root, runID, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("artifact %q already exists for run %s", name, runID)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	artifact := &entities.Artifact{
		Name:          name,
		RunID:         runID,
		Checksums:     make(map[string]string),
		CreatedAt:     time.Now().UTC(),
		RetentionDays: retentionDays,
	}

	for _, src := range paths {
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: missing source %s: %w", name, src, err)
		}

		var stored string
		if info.IsDir() {
			stored = filepath.Base(src) + ".tar.gz"
			if err := archiveDir(src, filepath.Join(dir, stored)); err != nil {
				return nil, fmt.Errorf("artifact %q: archiving %s: %w", name, src, err)
			}
		} else {
			stored = filepath.Base(src)
			if err := copyFile(src, filepath.Join(dir, stored)); err != nil {
				return nil, fmt.Errorf("artifact %q: copying %s: %w", name, src, err)
			}
		}

		sum, err := fileChecksum(filepath.Join(dir, stored))
		if err != nil {
			return nil, fmt.Errorf("artifact %q: checksumming %s: %w", name, stored, err)
		}
		artifact.Files = append(artifact.Files, stored)
		artifact.Checksums[stored] = sum
	}
	sort.Strings(artifact.Files)

	if err := s.writeMetadata(dir, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Download copies a stored artifact's files into destDir, verifying each
// file's checksum against the recorded manifest first.
func (s *ArtifactStore) Download(
	_ context.Context,
	runID, name, destDir string,
) (*entities.Artifact, error) {
	dir := filepath.Join(s.root, runID, name)
	artifact, err := s.readMetadata(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact %q not found for run %s: %w", name, runID, err)
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return nil, fmt.Errorf("creating destination: %w", err)
	}

	for _, f := range artifact.Files {
		src := filepath.Join(dir, f)
		sum, err := fileChecksum(src)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: checksumming %s: %w", name, f, err)
		}
		if want := artifact.Checksums[f]; sum != want {
			return nil, fmt.Errorf("artifact %q: checksum mismatch for %s: got %s, want %s", name, f, sum, want)
		}
		if err := copyFile(src, filepath.Join(destDir, f)); err != nil {
			return nil, fmt.Errorf("artifact %q: copying %s: %w", name, f, err)
		}
	}
	return artifact, nil
}

// List returns every stored artifact, sorted by run then name
func (s *ArtifactStore) List(_ context.Context) ([]*entities.Artifact, error) {
	runs, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []*entities.Artifact
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		names, err := os.ReadDir(filepath.Join(s.root, run.Name()))
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !n.IsDir() {
				continue
			}
			artifact, err := s.readMetadata(filepath.Join(s.root, run.Name(), n.Name()))
			if err != nil {
				continue // unreadable entry, skip rather than fail the listing
			}
			out = append(out, artifact)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RunID != out[j].RunID {
			return out[i].RunID < out[j].RunID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Prune deletes artifacts past their retention window, returning the names
// of the removed artifacts.
func (s *ArtifactStore) Prune(ctx context.Context, now time.Time) ([]string, error) {
	artifacts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, a := range artifacts {
		if !a.Expired(now) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, a.RunID, a.Name)); err != nil {
			return removed, fmt.Errorf("pruning %s/%s: %w", a.RunID, a.Name, err)
		}
		removed = append(removed, a.Name)
	}
	return removed, nil
}

func (s *ArtifactStore) writeMetadata(dir string, a *entities.Artifact) error {
	meta := artifactMetadata{
		Name:          a.Name,
		RunID:         a.RunID,
		Files:         a.Files,
		Checksums:     a.Checksums,
		CreatedAt:     a.CreatedAt,
		RetentionDays: a.RetentionDays,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0600); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

func (s *ArtifactStore) readMetadata(dir string) (*entities.Artifact, error) {
	data, err := os.ReadFile(filepath.Join(dir, metadataFile)) //nolint:gosec // G304: store-internal path
	if err != nil {
		return nil, err
	}
	var meta artifactMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return &entities.Artifact{
		Name:          meta.Name,
		RunID:         meta.RunID,
		Files:         meta.Files,
		Checksums:     meta.Checksums,
		CreatedAt:     meta.CreatedAt,
		RetentionDays: meta.RetentionDays,
	}, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: store-internal path
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: paths come from the pipeline definition
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// archiveDir writes a gzipped tarball of dir, with paths relative to dir
func archiveDir(dir, dst string) error {
	out, err := os.Create(dst) //nolint:gosec // G304: store-internal path
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = strings.ReplaceAll(rel, string(os.PathSeparator), "/")
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path) //nolint:gosec // G304: walking a pipeline-declared directory
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
