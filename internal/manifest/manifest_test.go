package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/R-Vicente/signal-and-noise/internal/manifest"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
	"github.com/R-Vicente/signal-and-noise/internal/project"
)

func TestNew(t *testing.T) {
	m := manifest.New("Projects")

	if m.Version != manifest.CurrentVersion {
		t.Errorf("Version = %q, want %q", m.Version, manifest.CurrentVersion)
	}

	if m.Projects == nil {
		t.Error("Projects should be initialized")
	}

	if m.Generated.IsZero() {
		t.Error("Generated time should be set")
	}
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	projects := []*project.Project{
		{
			Slug:       "dish",
			Title:      "Backyard Dish",
			Date:       "2024-05-01",
			Tags:       []string{"go", "sdr"},
			Categories: []string{"hardware"},
			Summary:    "Detect the hydrogen line.",
			Path:       filepath.Join(root, "radio", "dish.md"),
			Outline:    []parser.Heading{{Level: 2, Text: "Project Goals", Line: 5}},
		},
		{
			Slug:          "gate",
			Title:         "Noise Gate",
			FeaturedImage: "/img/gate.png",
			Path:          filepath.Join(root, "gate.md"),
			Source:        "gate-repo",
		},
	}

	m := manifest.Build(projects, manifest.Options{
		Site:        "Signal and Noise",
		Placeholder: "placeholder.png",
		Link:        func(p string) string { return "/portfolio" + p },
		Root:        root,
	})

	if m.Site != "Signal and Noise" {
		t.Errorf("Site = %q", m.Site)
	}
	if len(m.Projects) != 2 || m.Projects[0].Slug != "dish" || m.Projects[1].Slug != "gate" {
		t.Fatalf("Projects = %+v, want dish then gate", m.Projects)
	}

	dish, ok := m.Find("dish")
	if !ok {
		t.Fatal("Find(dish) not found")
	}
	if dish.URL != "/portfolio/projects/dish/" {
		t.Errorf("URL = %q", dish.URL)
	}
	if dish.Path != "radio/dish.md" {
		t.Errorf("Path = %q, want radio/dish.md", dish.Path)
	}
	if dish.Image != "placeholder.png" {
		t.Errorf("Image = %q, want placeholder", dish.Image)
	}
	if len(dish.Outline) != 1 {
		t.Errorf("Outline = %+v", dish.Outline)
	}

	gate, _ := m.Find("gate")
	if gate.Image != "/img/gate.png" || gate.Source != "gate-repo" {
		t.Errorf("gate entry = %+v", gate)
	}
	if gate.Tags == nil || gate.Categories == nil {
		t.Errorf("empty lists should encode as [] not null")
	}

	if _, ok := m.Find("missing"); ok {
		t.Error("Find(missing) should not be found")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	original := manifest.New("Projects")
	original.Projects = append(original.Projects, manifest.Entry{
		Slug:     "dish",
		Title:    "Backyard Dish",
		Tags:     []string{"go"},
		URL:      "/projects/dish/",
		Path:     "dish.md",
		Modified: time.Now().Truncate(time.Second),
	})

	if err := original.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Version != original.Version {
		t.Errorf("Version = %q, want %q", loaded.Version, original.Version)
	}

	if len(loaded.Projects) != 1 {
		t.Fatalf("Projects count = %d, want 1", len(loaded.Projects))
	}

	if got := loaded.Projects[0]; got.Slug != "dish" || !got.Modified.Equal(original.Projects[0].Modified) {
		t.Errorf("entry = %+v", got)
	}

	info, err := os.Stat(manifest.Path(dir))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("mode = %v, want 0644", perm)
	}
}

func TestLoadNonExistent(t *testing.T) {
	dir := t.TempDir()

	_, err := manifest.Load(dir)
	if err == nil {
		t.Fatal("Load() should return error for non-existent manifest")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "manifest not found") {
		t.Errorf("Error should mention manifest not found, got: %v", err)
	}
}

func TestLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	manifestPath := manifest.Path(dir)

	if err := os.WriteFile(manifestPath, []byte("invalid json{"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := manifest.Load(dir)
	if err == nil {
		t.Fatal("Load() should return error for corrupted manifest")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "parsing manifest") {
		t.Errorf("Error should mention parsing manifest, got: %v", err)
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	subdir := filepath.Join(dir, "nested", "path")

	m := manifest.New("Projects")
	if err := m.Save(subdir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	manifestPath := manifest.Path(subdir)
	if _, err := os.Stat(manifestPath); err != nil {
		t.Errorf("Manifest file should exist at %q", manifestPath)
	}
}

func TestSaveNilManifest(t *testing.T) {
	dir := t.TempDir()

	var m *manifest.Manifest
	err := m.Save(dir)
	if err == nil {
		t.Fatal("Save() should return error for nil manifest")
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "cannot save nil manifest") {
		t.Errorf("Error should mention nil manifest, got: %v", err)
	}
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()

	m := manifest.New("Projects")
	if err := m.Save(dir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Check no temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp") {
			t.Errorf("Temp file should be cleaned up: %s", entry.Name())
		}
	}

	// Verify projects.json exists
	manifestPath := manifest.Path(dir)
	if _, statErr := os.Stat(manifestPath); statErr != nil {
		t.Errorf("Manifest file should exist at %q", manifestPath)
	}
}
