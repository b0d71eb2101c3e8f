package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

var (
	rootOnce sync.Once
	rootDir  string
)

// BotFixture is a private copy of a fixture bot under a temporary bots root.
type BotFixture struct {
	Root string // bots root, holds one directory per bot
	Bot  string
	t    *testing.T
}

// NewBotFixture copies the named fixture bots from testdata/bots into a
// fresh bots root. The first name is the active bot.
func NewBotFixture(t *testing.T, bots ...string) *BotFixture {
	t.Helper()
	if len(bots) == 0 {
		bots = []string{"story_bot"}
	}

	f := &BotFixture{
		Root: filepath.Join(t.TempDir(), "bots"),
		Bot:  bots[0],
		t:    t,
	}
	for _, name := range bots {
		f.copyBot(name)
	}
	return f
}

// Dir returns the active bot's directory.
func (f *BotFixture) Dir() string {
	return filepath.Join(f.Root, f.Bot)
}

// Path returns a path inside the active bot's directory.
func (f *BotFixture) Path(rel string) string {
	return filepath.Join(f.Dir(), rel)
}

// WriteFile writes a file inside the active bot's directory.
func (f *BotFixture) WriteFile(rel, content string) {
	f.t.Helper()
	p := f.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		f.t.Fatalf("creating %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		f.t.Fatalf("writing %s: %v", p, err)
	}
}

func (f *BotFixture) copyBot(name string) {
	f.t.Helper()

	src := filepath.Join(TestdataDir(f.t), "bots", name)
	dst := filepath.Join(f.Root, name)
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		f.t.Fatalf("copying fixture bot %s: %v", name, err)
	}
}

// TestdataDir returns the absolute path of internal/testutil/testdata.
func TestdataDir(t *testing.T) string {
	t.Helper()
	root := FindProjectRoot()
	if root == "" {
		t.Fatalf("project root not found from working directory")
	}
	return filepath.Join(root, "internal", "testutil", "testdata")
}

// FindProjectRoot walks up from the working directory to the module root.
func FindProjectRoot() string {
	rootOnce.Do(func() {
		cwd, _ := os.Getwd()
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				if _, err := os.Stat(filepath.Join(dir, "cmd", "botpanel")); err == nil {
					rootDir = dir
					return
				}
			}
		}
	})
	return rootDir
}
