// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reindex reconciles a tag index against the current contents of
// the source directory at startup, preserving tag associations for files
// that remain and forgetting files that vanished.
package reindex

import (
	"fmt"
	"os"
	"sort"

	"github.com/tagfs/tagfs/backing"
	"github.com/tagfs/tagfs/persist"
	"github.com/tagfs/tagfs/tagindex"
)

// ListSourceFiles lists the regular-file names directly inside store's
// source directory, excluding the reserved savefile. Subdirectories,
// symlinks and other non-regular entries are not part of this system's
// source model and are skipped.
func ListSourceFiles(store *backing.DirStore) ([]string, error) {
	entries, err := os.ReadDir(store.SourcePath())
	if err != nil {
		return nil, fmt.Errorf("reindex: list source directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if e.Name() == persist.SaveName {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Repopulate reconciles idx against names, the current set of filenames
// in the source directory. Files already tracked that are still present
// are retained unchanged, together with every tag association they carry.
// Files tracked but no longer present are purged from the name binding
// and from every tag's file-set. Names not yet tracked are added as new,
// untagged files.
//
// New files are added in sorted order: nothing requires a particular
// order for brand new file numbers, and a deterministic order keeps
// repeated reconciliation runs reproducible for identical directory
// contents.
func Repopulate(idx *tagindex.Index, names []string) {
	remaining := make(map[string]bool, len(names))
	for _, n := range names {
		remaining[n] = true
	}

	for _, fnb := range idx.FileUniverse() {
		name, ok := idx.FileNameByNumber(fnb)
		if !ok {
			continue
		}
		if remaining[name] {
			delete(remaining, name)
			continue
		}
		idx.OmitFile(fnb)
	}

	fresh := make([]string, 0, len(remaining))
	for name := range remaining {
		fresh = append(fresh, name)
	}
	sort.Strings(fresh)
	for _, name := range fresh {
		idx.AddFile(name)
	}
}
