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

// Package backing implements the read-only-plus-savefile facade over the
// source directory: metadata lookup and open/create/read/write/release by
// opaque file handle. It is the only component that opens, reads or writes
// files in the source directory; listing the directory is done by reindex.
package backing

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// Handle is an opaque token returned by Open/Create, valid until the
// matching Release.
type Handle uint64

// Attributes carries the metadata get_metadata needs to answer lookup and
// getattr for a file.
type Attributes struct {
	Size       uint64
	Blocks     uint64
	BlockSize  uint32
	Atime      time.Time
	Mtime      time.Time
	Ctime      time.Time
	Crtime     time.Time
	Nlink      uint32
	UID        uint32
	GID        uint32
	Rdev       uint32
	Mode       os.FileMode
	PermBits   uint32
}

// Store is the backing store interface. Every operation may fail with an
// I/O error; Release is idempotent and silently ignores unknown handles.
type Store interface {
	Metadata(name string) (Attributes, error)
	Open(name string) (Handle, error)
	Create(name string) (Handle, error)
	Read(h Handle, offset, size uint64) ([]byte, error)
	Write(h Handle, data []byte) error
	Release(h Handle)
}

// DirStore is the concrete Store backed by an ordinary directory on the
// host filesystem, opened via the standard library.
type DirStore struct {
	sourcePath string

	mu        sync.Mutex
	nextHandle Handle
	openFiles  map[Handle]*os.File
}

// NewDirStore returns a Store rooted at sourcePath.
func NewDirStore(sourcePath string) *DirStore {
	return &DirStore{
		sourcePath: sourcePath,
		nextHandle: 1,
		openFiles:  make(map[Handle]*os.File),
	}
}

// SourcePath returns the directory this store is rooted at.
func (s *DirStore) SourcePath() string {
	return s.sourcePath
}

func (s *DirStore) relativePath(name string) string {
	return filepath.Join(s.sourcePath, name)
}

func (s *DirStore) Metadata(name string) (Attributes, error) {
	fi, err := os.Stat(s.relativePath(name))
	if err != nil {
		return Attributes{}, err
	}
	return attributesFromFileInfo(fi), nil
}

func (s *DirStore) Open(name string) (Handle, error) {
	f, err := os.Open(s.relativePath(name))
	if err != nil {
		return 0, err
	}
	return s.register(f), nil
}

func (s *DirStore) Create(name string) (Handle, error) {
	f, err := os.Create(s.relativePath(name))
	if err != nil {
		return 0, err
	}
	return s.register(f), nil
}

func (s *DirStore) register(f *os.File) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.nextHandle
	s.nextHandle++
	s.openFiles[h] = f
	return h
}

func (s *DirStore) lookup(h Handle) (*os.File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.openFiles[h]
	return f, ok
}

func (s *DirStore) Read(h Handle, offset, size uint64) ([]byte, error) {
	f, ok := s.lookup(h)
	if !ok {
		return nil, os.ErrNotExist
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := uint64(fi.Size())
	if offset >= fileSize {
		size = 0
	} else if offset+size > fileSize {
		size = fileSize - offset
	}
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	n, err := f.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func (s *DirStore) Write(h Handle, data []byte) error {
	f, ok := s.lookup(h)
	if !ok {
		return os.ErrNotExist
	}
	_, err := f.Write(data)
	return err
}

func (s *DirStore) Release(h Handle) {
	s.mu.Lock()
	f, ok := s.openFiles[h]
	if ok {
		delete(s.openFiles, h)
	}
	s.mu.Unlock()
	if ok {
		_ = f.Close()
	}
}

func attributesFromFileInfo(fi os.FileInfo) Attributes {
	attrs := Attributes{
		Size:      uint64(fi.Size()),
		Mtime:     fi.ModTime(),
		Mode:      fi.Mode(),
		PermBits:  uint32(fi.Mode().Perm()),
		Nlink:     1,
		BlockSize: 512,
	}
	attrs.Atime = attrs.Mtime
	attrs.Ctime = attrs.Mtime
	attrs.Crtime = attrs.Mtime
	attrs.Blocks = (attrs.Size + 511) / 512

	if sys, ok := fi.Sys().(*syscall.Stat_t); ok {
		attrs.Nlink = uint32(sys.Nlink)
		attrs.UID = sys.Uid
		attrs.GID = sys.Gid
		attrs.Rdev = uint32(sys.Rdev)
		attrs.BlockSize = uint32(sys.Blksize)
		attrs.Blocks = uint64(sys.Blocks)
		attrs.Atime = time.Unix(sys.Atim.Sec, sys.Atim.Nsec)
		attrs.Ctime = time.Unix(sys.Ctim.Sec, sys.Ctim.Nsec)
	}

	return attrs
}
