package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"siteinsight/internal/reconcile"
)

// FileSource reads the event list from a local JSON file. It is the last
// link of the chain and the write-through target for remote fetches.
type FileSource struct {
	Path string
}

func (f *FileSource) Name() string { return "cache_file" }

func (f *FileSource) Fetch(ctx context.Context) ([]reconcile.RawEvent, error) {
	body, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return Decode(body)
}

// Save replaces the file with events. The write goes through a temporary
// file in the same directory so readers never see a partial list.
func (f *FileSource) Save(events []reconcile.RawEvent) error {
	body, err := Encode(events)
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".events-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("replace %s: %w", f.Path, err)
	}
	return nil
}
