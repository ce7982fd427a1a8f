package shard

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"os"
	"path/filepath"
	"sat/atlas"
	"sort"
	"strings"
)

// ShardFileExtension is the extension packed shard files are discovered by.
const ShardFileExtension = ".atlas"

// Handle is one shard of the source: a stable name and the path of its packed
// file. The dataset view behind it is loaded lazily and not cached, a handle
// can be loaded again after the scan when the consolidator re-reads it.
type Handle struct {
	Name string
	Path string
}

// Load opens the packed file behind this handle and returns its dataset view.
func (h Handle) Load() (*atlas.Atlas, error) {
	sigolo.Debugf("Load shard %s from %s", h.Name, h.Path)
	return atlas.Load(h.Path)
}

// Resolve expands the given file and directory arguments into an ordered list
// of shard handles. Directories are listed non-recursively and only files with
// the shard extension are taken; directory entries are sorted so that the
// resulting order is deterministic. Each shard name may appear at most once.
func Resolve(args []string) ([]Handle, error) {
	if len(args) == 0 {
		return nil, errors.New("At least one shard file or directory is required")
	}

	var handles []Handle
	seenNames := map[string]string{}

	appendHandle := func(path string) error {
		name := shardName(path)
		if existingPath, ok := seenNames[name]; ok {
			return errors.Errorf("Duplicate shard name %s: %s and %s", name, existingPath, path)
		}
		seenNames[name] = path
		handles = append(handles, Handle{Name: name, Path: path})
		return nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to access shard input %s", arg)
		}

		if !info.IsDir() {
			err = appendHandle(arg)
			if err != nil {
				return nil, err
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to list shard folder %s", arg)
		}

		var paths []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ShardFileExtension) {
				continue
			}
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
		sort.Strings(paths)

		for _, path := range paths {
			err = appendHandle(path)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(handles) == 0 {
		return nil, errors.Errorf("No %s files found in the given inputs", ShardFileExtension)
	}

	sigolo.Debugf("Resolved %d shard handles", len(handles))
	return handles, nil
}

func shardName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
