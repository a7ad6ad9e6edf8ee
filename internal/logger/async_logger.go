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

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger decouples log writers from the underlying io.Writer (normally
// a rotating file) via a buffered channel and a single writer goroutine, so
// a slow or momentarily blocked disk never stalls the filesystem operation
// that triggered the log line. When the buffer is full, new messages are
// dropped rather than blocking the caller.
type AsyncLogger struct {
	dest io.WriteCloser

	messages chan []byte
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewAsyncLogger starts the writer goroutine and returns a logger that
// queues up to bufferSize pending writes to dest.
func NewAsyncLogger(dest io.WriteCloser, bufferSize int) *AsyncLogger {
	a := &AsyncLogger{
		dest:     dest,
		messages: make(chan []byte, bufferSize),
		done:     make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *AsyncLogger) run() {
	defer a.wg.Done()
	for msg := range a.messages {
		if _, err := a.dest.Write(msg); err != nil {
			fmt.Fprintf(os.Stderr, "asynclogger: write failed: %v\n", err)
		}
	}
}

// Write copies p and enqueues it for the writer goroutine. It never blocks:
// a full buffer drops the message and reports it on stderr.
func (a *AsyncLogger) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case a.messages <- buf:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}
	return len(p), nil
}

// Close drains the pending buffer, stops the writer goroutine, and closes
// the underlying destination.
func (a *AsyncLogger) Close() error {
	close(a.messages)
	a.wg.Wait()
	return a.dest.Close()
}
