// Copyright 2024 Google Inc. All Rights Reserved.
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

package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultLoggingConfig(t *testing.T) {
	got := GetDefaultLoggingConfig()

	assert.Equal(t, LogSeverity("INFO"), got.Severity)
	assert.Equal(t, 10, got.LogRotate.BackupFileCount)
	assert.True(t, got.LogRotate.Compress)
	assert.Equal(t, int64(512), got.LogRotate.MaxFileSizeMb)
	assert.NoError(t, isValidLogRotateConfig(&got.LogRotate))
}
