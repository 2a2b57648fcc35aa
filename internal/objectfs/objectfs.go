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

// Package objectfs is the filesystem-facing half of the gateway: it
// translates object keys into operations against the bucket root directory,
// consulting the optional in-memory index when one is available. It is the
// uniform backend consumed by internal/gateway's dispatcher, replacing the
// teacher's fs.FS-over-HTTP client (Bucket/Prefix/File in kelindar-s3) with
// the equivalent shapes backed by the local filesystem.
package objectfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelindar/lobos/internal/index"
)

// Entry is the filesystem-facing view of a single key: an object or a
// directory. It is the common currency between Store and the gateway,
// replacing ad hoc (size, mtime) tuples.
type Entry struct {
	Key     string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Store binds a bucket root directory to an optional Index. A nil Index
// means every operation falls back to direct filesystem calls, exactly as
// spec §4.1/§4.4 describe for "index disabled".
type Store struct {
	Root  string
	Index *index.Index
}

// New returns a Store rooted at root, optionally backed by idx.
func New(root string, idx *index.Index) *Store {
	return &Store{Root: root, Index: idx}
}

func (s *Store) abs(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

// Stat looks up metadata for key, consulting the index when enabled and
// falling back to os.Stat otherwise. It never returns an error: a lookup
// miss or stat failure simply yields (Entry{}, false), matching spec
// §4.2/§4.6 ("runtime lookups cannot fail").
func (s *Store) Stat(key string) (Entry, bool) {
	if s.Index != nil {
		obj, ok := s.Index.Lookup(key)
		if !ok {
			return Entry{}, false
		}
		return Entry{Key: key, Size: obj.Size, ModTime: obj.ModTime, IsDir: obj.Kind == index.KindDir}, true
	}

	info, err := os.Stat(s.abs(key))
	if err != nil {
		return Entry{}, false
	}
	return Entry{Key: key, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, true
}

// Open opens key for sequential reading, returning the metadata alongside
// the handle. The caller owns the returned file and must Close it.
func (s *Store) Open(key string) (*os.File, Entry, error) {
	f, err := os.Open(s.abs(key))
	if err != nil {
		return nil, Entry{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Entry{}, err
	}
	return f, Entry{Key: key, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

// EnsureParentDirs creates every missing ancestor directory of key, as
// PutObject's first phase (spec §4.8). Per the documented index-drift
// limitation, the created directories are not added to the index, here
// or anywhere else in the PUT path.
func (s *Store) EnsureParentDirs(key string) error {
	dir := filepath.Dir(s.abs(key))
	return os.MkdirAll(dir, 0o755)
}

// Create opens key for writing, truncating any previous content. The
// parent directories must already exist (see EnsureParentDirs).
func (s *Store) Create(key string) (*os.File, error) {
	return os.OpenFile(s.abs(key), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

// Commit finalizes a PutObject: it stats the just-written file (spec §9,
// "the source computes size by stat-ing the just-written file after the
// body is streamed"), and, if the index is enabled, inserts or overwrites
// the corresponding entry with the current time as ModTime.
func (s *Store) Commit(key string, f *os.File) (Entry, error) {
	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Key: key, Size: info.Size(), ModTime: time.Now(), IsDir: false}
	if s.Index != nil {
		s.Index.AddEntry(key, index.Object{Size: e.Size, ModTime: e.ModTime, Kind: index.KindFile})
	}
	return e, nil
}

// ErrNotFound is returned by Remove when key does not exist.
var ErrNotFound = fmt.Errorf("objectfs: key not found")

// Remove deletes the object at key. If the index is enabled, the entry is
// erased only after the filesystem delete succeeded; on any delete error
// the index is left unchanged.
func (s *Store) Remove(key string) error {
	err := os.Remove(s.abs(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if s.Index != nil {
		s.Index.Remove(key)
	}
	return nil
}

// ListResult is the output of List: object Contents and "subdirectory"
// CommonPrefixes, already in the shape the XML response builders expect.
type ListResult struct {
	Contents       []Entry
	CommonPrefixes []string
}

// List implements the Listing Engine (spec §4.4): prefix + "/"-delimiter
// semantics, producing Contents and CommonPrefixes in lexicographic order.
// When the Store has an Index, List walks the ordered key space; otherwise
// it falls back to directory reads rooted at the bucket root, per the
// dual-algorithm requirement in spec §4.4 and the Index/FS parity property
// in spec §8.
func (s *Store) List(prefix string) ListResult {
	if s.Index != nil {
		return s.listIndexed(prefix)
	}
	return s.listFromFS(prefix)
}

func (s *Store) listIndexed(prefix string) ListResult {
	var result ListResult
	seen := make(map[string]bool)
	lastCommon := ""
	haveLast := false

	s.Index.Ascend(prefix, func(key string, obj index.Object) bool {
		if !strings.HasPrefix(key, prefix) {
			return false
		}

		if slash := strings.IndexByte(key[len(prefix):], '/'); slash >= 0 {
			candidate := key[:len(prefix)+slash]
			if !haveLast || candidate != lastCommon {
				result.CommonPrefixes = append(result.CommonPrefixes, candidate+"/")
				lastCommon = candidate
				haveLast = true
			}
			return true
		}

		if obj.Kind == index.KindDir {
			if !haveLast || key != lastCommon {
				result.CommonPrefixes = append(result.CommonPrefixes, key+"/")
				lastCommon = key
				haveLast = true
			}
			return true
		}

		if !seen[key] {
			seen[key] = true
			result.Contents = append(result.Contents, Entry{
				Key:     key,
				Size:    obj.Size,
				ModTime: obj.ModTime,
			})
		}
		return true
	})
	return result
}

func (s *Store) listFromFS(prefix string) ListResult {
	dir := s.Root
	filter := ""

	candidate := filepath.Join(s.Root, filepath.FromSlash(prefix))
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		dir = candidate
	} else if slash := strings.IndexByte(prefix, '/'); slash >= 0 {
		dir = filepath.Join(s.Root, filepath.FromSlash(prefix[:slash]))
		filter = prefix[slash+1:]
	} else {
		filter = prefix
	}

	var result ListResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		return result
	}
	for _, de := range entries {
		name := de.Name()
		if filter != "" && !strings.HasPrefix(name, filter) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if de.IsDir() {
			result.CommonPrefixes = append(result.CommonPrefixes, name+"/")
			continue
		}
		result.Contents = append(result.Contents, Entry{
			Key:     name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return result
}
