// Copyright © 2019 One Concern

// Package localfs provides a local file system backed implementation of the
// storage.Store interface.
//
// All writes are atomic: content is first staged in a dedicated area inside
// the same file system, then renamed into place. On file systems with an
// atomic Rename this guarantees readers never observe a partially written
// entry.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oneconcern/braid/pkg/storage"
	"github.com/oneconcern/braid/pkg/storage/status"
	"github.com/spf13/afero"
)

// stageName is the staging area key prefix, excluded from key listings
const stageName = ".stage"

// New creates a local file system backed storage model rooted at the given
// afero file system. When fs is nil, a default rooted at .braid/ in the
// current directory is used.
func New(fs afero.Fs) (storage.Store, error) {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), ".braid")
	}
	if err := fs.MkdirAll(stageName, 0700); err != nil {
		return nil, status.ErrStorageAPI.WrapMessage("ensuring staging directory: %v", err)
	}
	return &localFS{fs: fs}, nil
}

type localFS struct {
	fs afero.Fs
}

func invalidKey(key string) error {
	components := strings.Split(strings.TrimLeft(key, "/"), "/")
	if len(components) > 0 && components[0] == stageName {
		return status.ErrInvalidResource.WrapMessage("key %q conflicts with staging area %q", key, stageName)
	}
	return nil
}

func (l *localFS) Has(ctx context.Context, key string) (bool, error) {
	if err := invalidKey(key); err != nil {
		return false, err
	}
	fi, err := l.fs.Stat(key)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, status.ErrStorageAPI.Wrap(err)
	}
	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotExists.WrapMessage("key %q", key)
	}
	f, err := l.fs.Open(key)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return f, nil
}

// Put stages the content then renames it into place, so concurrent readers
// see either the previous content or the new one, never a mix.
func (l *localFS) Put(ctx context.Context, key string, source io.Reader, mode storage.WriteMode) error {
	if err := invalidKey(key); err != nil {
		return err
	}
	if mode == storage.NoOverWrite {
		has, err := l.Has(ctx, key)
		if err != nil {
			return err
		}
		if has {
			return status.ErrExists.WrapMessage("key %q", key)
		}
	}
	stageKey := filepath.Join(stageName, strings.ReplaceAll(key, "/", "_"))
	if err := l.writeStaged(stageKey, source); err != nil {
		return err
	}
	// Rename() doesn't create directories automatically
	if dir := filepath.Dir(key); dir != "" {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return status.ErrStorageAPI.WrapMessage("ensuring directories for %q: %v", key, err)
		}
	}
	if err := l.fs.Rename(stageKey, key); err != nil {
		return status.ErrStorageAPI.WrapMessage("renaming staged %q into place: %v", key, err)
	}
	return nil
}

func (l *localFS) writeStaged(stageKey string, source io.Reader) error {
	target, err := l.fs.OpenFile(stageKey, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_SYNC, 0600)
	if err != nil {
		return status.ErrStorageAPI.WrapMessage("creating staged entry %q: %v", stageKey, err)
	}
	if _, err = storage.PipeIO(target, source); err != nil {
		_ = target.Close()
		return status.ErrStorageAPI.WrapMessage("writing staged entry %q: %v", stageKey, err)
	}
	if err = target.Close(); err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return nil
}

func (l *localFS) Delete(ctx context.Context, key string) error {
	if err := invalidKey(key); err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil {
		if os.IsNotExist(err) {
			return status.ErrNotExists.WrapMessage("key %q", key)
		}
		return status.ErrStorageAPI.WrapMessage("removing %q: %v", key, err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]string, error) {
	return l.KeysPrefix(ctx, "")
}

func (l *localFS) KeysPrefix(ctx context.Context, prefix string) ([]string, error) {
	const root = "."
	var res []string
	err := afero.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if info.IsDir() {
			if path == stageName {
				return filepath.SkipDir
			}
			return nil
		}
		if prefix == "" || strings.HasPrefix(path, prefix) {
			res = append(res, path)
		}
		return nil
	})
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return res, nil
}

func (l *localFS) String() string {
	const localfs = "localfs"
	switch fs := l.fs.(type) {
	case *afero.BasePathFs:
		pp, err := fs.RealPath("")
		if err != nil {
			return localfs
		}
		return fmt.Sprint(localfs, "@", pp)
	default:
		return localfs
	}
}
