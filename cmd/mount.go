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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"

	"github.com/tagfs/tagfs/cfg"
	"github.com/tagfs/tagfs/fs"
	"github.com/tagfs/tagfs/internal/logger"
	"github.com/tagfs/tagfs/internal/perms"
)

// mount starts the filesystem server at c.SourcePath and blocks until the
// mount is torn down, either by an external unmount (fusermount -u) or by
// SIGINT/SIGTERM.
func mount(ctx context.Context, c *cfg.Config) error {
	uid, gid, err := perms.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("perms.MyUserAndGroup: %w", err)
	}

	if uid == 0 {
		fmt.Fprintln(os.Stdout, `
WARNING: tagfs invoked as root. This will cause every synthesized
directory to be owned by root. If this is not what you intended, invoke
tagfs as the user that will be interacting with the file system.`)
	}

	serverCfg := &fs.ServerConfig{
		SourcePath: string(c.SourcePath),
		Uid:        uid,
		Gid:        gid,
	}

	logger.Infof("creating server for source %q", c.SourcePath)
	server, err := fs.NewServer(ctx, serverCfg)
	if err != nil {
		return fmt.Errorf("fs.NewServer: %w", err)
	}

	mountCfg := getFuseMountConfig(c)

	logger.Infof("mounting at %q", c.MountPath)
	mfs, err := fuse.Mount(string(c.MountPath), server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("received signal, unmounting %q", c.MountPath)
		if err := fuse.Unmount(string(c.MountPath)); err != nil {
			logger.Errorf("unmount: %v", err)
		}
	}()

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("MountedFileSystem.Join: %w", err)
	}
	return nil
}

func getFuseMountConfig(c *cfg.Config) *fuse.MountConfig {
	options := make(map[string]string)
	if !c.NoUnmount {
		options["auto_unmount"] = ""
	}
	if !c.DisallowRoot {
		options["allow_root"] = ""
	}

	mountCfg := &fuse.MountConfig{
		FSName:     "tagfs",
		Subtype:    "tagfs",
		VolumeName: "tagfs",
		Options:    options,
		// Every operation of this filesystem is synchronized by a single
		// invariant-checked mutex; parallel dir ops would just queue behind it.
		EnableParallelDirOps: false,
	}

	// tagfs severity to jacobsa/fuse log level: only ERROR and TRACE have a
	// jacobsa/fuse equivalent worth wiring (its own internal diagnostics are
	// either noise below ERROR or full wire traces at TRACE).
	if c.Logging.Severity.Rank() <= cfg.ErrorLogSeverity.Rank() {
		mountCfg.ErrorLogger = logger.NewStdLogger(logger.LevelError, "fuse: ")
	}
	if c.Logging.Severity.Rank() <= cfg.TraceLogSeverity.Rank() {
		mountCfg.DebugLogger = logger.NewStdLogger(logger.LevelTrace, "fuse_debug: ")
	}
	return mountCfg
}
