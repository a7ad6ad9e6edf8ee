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

// Package persist implements deterministic binary encode/decode of the tag
// index, stored as the reserved ".tagfs" file inside the source directory.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tagfs/tagfs/backing"
	"github.com/tagfs/tagfs/tagindex"
)

// SaveName is the reserved filename the savefile lives under. It is
// excluded from every visible directory listing.
const SaveName = ".tagfs"

const formatVersion uint32 = 1

// Encode serializes s into a deterministic byte sequence: a version tag
// followed by fixed-width integers and length-prefixed sequences, each
// walked in the snapshot's own recorded order rather than Go's randomized
// map iteration order, so the same state always produces the same bytes.
func Encode(s tagindex.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := &writer{w: &buf}

	w.uint32(formatVersion)
	w.uint32(s.FileTally)

	w.uint32(uint32(len(s.TagOrder)))
	for _, tag := range s.TagOrder {
		w.uint32(tag)
		w.string(s.TagNames[tag])
		files := s.TagContent[tag]
		w.uint32(uint32(len(files)))
		for _, f := range files {
			w.uint32(f)
		}
	}

	w.uint32(uint32(len(s.FileOrder)))
	for _, file := range s.FileOrder {
		w.uint32(file)
		w.string(s.FileNames[file])
	}

	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

// Decode is Encode's inverse.
func Decode(data []byte) (tagindex.Snapshot, error) {
	r := &reader{r: bytes.NewReader(data)}

	version := r.uint32()
	if r.err == nil && version != formatVersion {
		r.err = fmt.Errorf("persist: unsupported savefile version %d", version)
	}

	s := tagindex.Snapshot{
		TagContent: make(map[tagindex.TagNumber][]tagindex.FileNumber),
		TagNames:   make(map[tagindex.TagNumber]string),
		FileNames:  make(map[tagindex.FileNumber]string),
	}
	s.FileTally = r.uint32()

	tagCount := r.uint32()
	s.TagOrder = make([]tagindex.TagNumber, 0, tagCount)
	for i := uint32(0); i < tagCount && r.err == nil; i++ {
		tag := r.uint32()
		name := r.string()
		fileCount := r.uint32()
		files := make([]tagindex.FileNumber, 0, fileCount)
		for j := uint32(0); j < fileCount && r.err == nil; j++ {
			files = append(files, r.uint32())
		}
		s.TagOrder = append(s.TagOrder, tag)
		s.TagNames[tag] = name
		s.TagContent[tag] = files
	}

	fileCount := r.uint32()
	s.FileOrder = make([]tagindex.FileNumber, 0, fileCount)
	for i := uint32(0); i < fileCount && r.err == nil; i++ {
		file := r.uint32()
		name := r.string()
		s.FileOrder = append(s.FileOrder, file)
		s.FileNames[file] = name
	}

	if r.err != nil {
		return tagindex.Snapshot{}, r.err
	}
	return s, nil
}

// Load reads and decodes the savefile from store. A missing or corrupt
// savefile is reported as an error like any other; per §4.5 the caller
// falls back to an empty index and logs the cause, rather than treating
// this as fatal.
func Load(store backing.Store) (tagindex.Snapshot, error) {
	attrs, err := store.Metadata(SaveName)
	if err != nil {
		return tagindex.Snapshot{}, fmt.Errorf("persist: stat savefile: %w", err)
	}
	h, err := store.Open(SaveName)
	if err != nil {
		return tagindex.Snapshot{}, fmt.Errorf("persist: open savefile: %w", err)
	}
	defer store.Release(h)

	data, err := store.Read(h, 0, attrs.Size)
	if err != nil {
		return tagindex.Snapshot{}, fmt.Errorf("persist: read savefile: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		return tagindex.Snapshot{}, fmt.Errorf("persist: decode savefile: %w", err)
	}
	return s, nil
}

// Save encodes s and writes it to store as the savefile, overwriting any
// prior contents.
func Save(store backing.Store, s tagindex.Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}
	h, err := store.Create(SaveName)
	if err != nil {
		return fmt.Errorf("persist: create savefile: %w", err)
	}
	defer store.Release(h)
	if err := store.Write(h, data); err != nil {
		return fmt.Errorf("persist: write savefile: %w", err)
	}
	return nil
}

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) uint32(v uint32) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.BigEndian, v)
}

func (w *writer) string(s string) {
	w.uint32(uint32(len(s)))
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	r.err = binary.Read(r.r, binary.BigEndian, &v)
	return v
}

func (r *reader) string() string {
	n := r.uint32()
	if r.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		r.err = err
		return ""
	}
	return string(buf)
}
