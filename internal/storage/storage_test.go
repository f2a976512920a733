package storage

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/hailam/nnstream/internal/weights"
)

func testParams(nIn, nOut int, seed float32) *weights.Params {
	p := weights.NewParams(nIn, nOut)
	for i := range p.Weights {
		p.Weights[i] = seed + float32(i)
	}
	for i := range p.Biases {
		p.Biases[i] = -seed * float32(i)
	}
	return p
}

func TestStorage(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory failed: %v", err)
	}
	defer s.Close()

	t.Run("SaveLoad", func(t *testing.T) {
		p := testParams(4, 2, 0.5)
		if err := s.SaveLayer("fc1", p); err != nil {
			t.Fatalf("SaveLayer failed: %v", err)
		}
		got, err := s.LoadLayer("fc1")
		if err != nil {
			t.Fatalf("LoadLayer failed: %v", err)
		}
		if got.NIn != 4 || got.NOut != 2 {
			t.Errorf("got %dx%d, expected 4x2", got.NIn, got.NOut)
		}
		if !slices.Equal(got.Weights, p.Weights) || !slices.Equal(got.Biases, p.Biases) {
			t.Errorf("got %+v, expected %+v", got, p)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.SaveLayer("fc1", testParams(2, 2, 3)); err != nil {
			t.Fatalf("SaveLayer failed: %v", err)
		}
		got, err := s.LoadLayer("fc1")
		if err != nil {
			t.Fatalf("LoadLayer failed: %v", err)
		}
		if got.NIn != 2 || got.Weights[0] != 3 {
			t.Errorf("overwrite not visible: %+v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := s.LoadLayer("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, expected ErrNotFound", err)
		}
		if err := s.DeleteLayer("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, expected ErrNotFound", err)
		}
	})

	t.Run("ListDelete", func(t *testing.T) {
		for _, name := range []string{"out", "conv/fc", "a"} {
			if err := s.SaveLayer(name, testParams(1, 1, 1)); err != nil {
				t.Fatalf("SaveLayer(%q) failed: %v", name, err)
			}
		}
		names, err := s.ListLayers()
		if err != nil {
			t.Fatalf("ListLayers failed: %v", err)
		}
		if expected := []string{"a", "conv/fc", "fc1", "out"}; !slices.Equal(names, expected) {
			t.Errorf("got %v, expected %v", names, expected)
		}

		if err := s.DeleteLayer("a"); err != nil {
			t.Fatalf("DeleteLayer failed: %v", err)
		}
		if _, err := s.LoadLayer("a"); !errors.Is(err, ErrNotFound) {
			t.Errorf("deleted layer still loads: %v", err)
		}
	})

	t.Run("RejectsInvalid", func(t *testing.T) {
		bad := testParams(2, 2, 1)
		bad.Biases = bad.Biases[:1]
		if err := s.SaveLayer("bad", bad); !errors.Is(err, weights.ErrFormat) {
			t.Errorf("got %v, expected ErrFormat", err)
		}
		if err := s.SaveLayer("", testParams(1, 1, 1)); err == nil {
			t.Error("empty name accepted")
		}
	})
}

func TestStoragePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	p := testParams(3, 3, 2)
	if err := s.SaveLayer("fc2", p); err != nil {
		t.Fatalf("SaveLayer failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	got, err := s.LoadLayer("fc2")
	if err != nil {
		t.Fatalf("LoadLayer failed: %v", err)
	}
	if got.Checksum() != p.Checksum() {
		t.Error("parameters changed across reopen")
	}
}

func TestDataPaths(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	t.Setenv(EnvDataDir, dir)

	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir != dir {
		t.Errorf("got %s, expected %s", dataDir, dir)
	}

	dbDir, err := GetDatabaseDir()
	if err != nil {
		t.Fatalf("GetDatabaseDir failed: %v", err)
	}
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		t.Errorf("Database directory was not created: %s", dbDir)
	}
}

func TestDataDirFromXDG(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("XDG_DATA_HOME applies to Unix-like systems only")
	}
	base := t.TempDir()
	t.Setenv(EnvDataDir, "")
	t.Setenv("XDG_DATA_HOME", base)

	dir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if expected := filepath.Join(base, appName); dir != expected {
		t.Errorf("got %s, expected %s", dir, expected)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("data directory was not created: %v", err)
	}
}
