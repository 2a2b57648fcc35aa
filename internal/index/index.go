// Copyright 2025 Roman Atachiants
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package index implements the in-memory ordered key index that accelerates
// listing and metadata lookups over the bucket's key space.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
)

// Kind distinguishes a file entry from a directory entry in the index.
type Kind uint8

const (
	// KindFile marks a regular file entry.
	KindFile Kind = iota
	// KindDir marks a directory entry. Directory entries carry size 0 and
	// their presence does not imply they have children.
	KindDir
)

// Object is the metadata recorded for a single indexed key.
type Object struct {
	Size    int64
	ModTime time.Time
	Kind    Kind
}

type entry struct {
	Key string
	Object
}

func less(a, b entry) bool { return a.Key < b.Key }

// Index is the ordered key -> Object map described in spec §4.1. It is
// shared across all reactor goroutines, so every access is guarded by a
// single RWMutex: reads (Lookup, Ascend) take the read side, writes
// (AddEntry, Remove) take the write side. This is the "coarse lock around
// the map" discipline the original C++ source lacked and spec §5 requires.
type Index struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// New returns an empty Index.
func New() *Index {
	return &Index{tree: btree.NewG(32, less)}
}

// BuildFromFS recursively walks root and populates a fresh Index from its
// contents, mirroring IndexStore::build_index_from_fs in the original
// source: every directory and regular file becomes an entry; symlinks,
// sockets, and other special files are skipped silently. Keys are paths
// relative to root with no leading separator. Any filesystem error during
// the walk is fatal, per spec §4.1 ("filesystem I/O errors during initial
// build fail the process").
func BuildFromFS(root string) (*Index, error) {
	idx := New()
	root = strings.TrimSuffix(root, "/")

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		mode := info.Mode()
		var kind Kind
		switch {
		case mode.IsDir():
			kind = KindDir
		case mode.IsRegular():
			kind = KindFile
		default:
			// symlinks, sockets, devices, etc. are skipped silently
			return nil
		}

		size := info.Size()
		if kind == KindDir {
			size = 0
		}
		idx.tree.ReplaceOrInsert(entry{Key: rel, Object: Object{
			Size:    size,
			ModTime: info.ModTime(),
			Kind:    kind,
		}})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index: building from %s: %w", root, err)
	}
	return idx, nil
}

// AddEntry inserts or overwrites the entry at key.
func (idx *Index) AddEntry(key string, obj Object) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.ReplaceOrInsert(entry{Key: key, Object: obj})
}

// Remove deletes the entry at key. A missing key is a no-op.
func (idx *Index) Remove(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Delete(entry{Key: key})
}

// Lookup returns the entry at key, if present.
func (idx *Index) Lookup(key string) (Object, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tree.Get(entry{Key: key})
	return e.Object, ok
}

// Len reports the number of entries currently in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Len()
}

// Replace atomically swaps this index's contents for other's, used by the
// periodic index refresh (spec §9 supplements the original's unimplemented
// --lobos-index-refresh-sec). other must not be used by any other goroutine
// after this call.
func (idx *Index) Replace(other *Index) {
	other.mu.Lock()
	tree := other.tree
	other.mu.Unlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree = tree
}

// Ascend calls fn for every entry whose key is >= prefix, in ascending key
// order, stopping as soon as fn returns false. This is the sole listing
// primitive (spec §4.1's lower_bound + forward iteration); the read lock is
// held for the full duration of the iteration, per spec §5.
func (idx *Index) Ascend(prefix string, fn func(key string, obj Object) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	idx.tree.AscendGreaterOrEqual(entry{Key: prefix}, func(e entry) bool {
		return fn(e.Key, e.Object)
	})
}
