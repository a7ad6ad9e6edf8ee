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

package common

// FUSE operation names, used to tag the ops metrics below. Limited to the
// operations the protocol adapter actually implements; everything else is
// answered by fuseutil.NotImplementedFileSystem and never reaches a call
// site that records these.
const (
	OpLookUpInode       = "LookUpInode"
	OpGetInodeAttributes = "GetInodeAttributes"
	OpMkDir             = "MkDir"
	OpUnlink            = "Unlink"
	OpRename            = "Rename"
	OpOpenDir           = "OpenDir"
	OpReadDir           = "ReadDir"
	OpReleaseDirHandle  = "ReleaseDirHandle"
	OpOpenFile          = "OpenFile"
	OpReadFile          = "ReadFile"
	OpReleaseFileHandle = "ReleaseFileHandle"
)

// FSOpKey annotates the file system op processed.
const FSOpKey = "fs_op"

// FSErrCategoryKey reduces the cardinality of error metrics by grouping
// errors together (e.g. "not-found", "io").
const FSErrCategoryKey = "fs_error_category"
