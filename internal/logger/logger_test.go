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
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/tagfs/tagfs/cfg"
)

const (
	textTraceString   = `^time=[a-zA-Z0-9/:.+-]+ severity=TRACE message=www.traceExample.com`
	textDebugString   = `^time=[a-zA-Z0-9/:.+-]+ severity=DEBUG message=www.debugExample.com`
	textInfoString    = `^time=[a-zA-Z0-9/:.+-]+ severity=INFO message=www.infoExample.com`
	textWarningString = `^time=[a-zA-Z0-9/:.+-]+ severity=WARNING message=www.warningExample.com`
	textErrorString   = `^time=[a-zA-Z0-9/:.+-]+ severity=ERROR message=www.errorExample.com`
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToGivenBuffer(buf *bytes.Buffer, level string) {
	defaultLoggerFactory = &loggerFactory{format: "text"}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(buf, programLevel(level)))
}

func fetchLogOutputForSpecifiedSeverityLevel(level string, functions []func()) []string {
	var buf bytes.Buffer
	redirectLogsToGivenBuffer(&buf, level)

	var output []string
	for _, f := range functions {
		f()
		output = append(output, buf.String())
		buf.Reset()
	}
	return output
}

func getTestLoggingFunctions() []func() {
	return []func(){
		func() { Tracef("www.traceExample.com") },
		func() { Debugf("www.debugExample.com") },
		func() { Infof("www.infoExample.com") },
		func() { Warnf("www.warningExample.com") },
		func() { Errorf("www.errorExample.com") },
	}
}

func validateOutput(t *testing.T, expected []string, output []string) {
	for i := range output {
		if expected[i] == "" {
			assert.Equal(t, expected[i], output[i])
		} else {
			assert.Regexp(t, regexp.MustCompile(expected[i]), output[i])
		}
	}
}

func (t *LoggerTest) TestLogLevelOff() {
	expected := []string{"", "", "", "", ""}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.OFF, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestLogLevelError() {
	expected := []string{"", "", "", "", textErrorString}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.ERROR, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestLogLevelWarning() {
	expected := []string{"", "", "", textWarningString, textErrorString}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.WARNING, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestLogLevelInfo() {
	expected := []string{"", "", textInfoString, textWarningString, textErrorString}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.INFO, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestLogLevelDebug() {
	expected := []string{"", textDebugString, textInfoString, textWarningString, textErrorString}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.DEBUG, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestLogLevelTrace() {
	expected := []string{textTraceString, textDebugString, textInfoString, textWarningString, textErrorString}
	output := fetchLogOutputForSpecifiedSeverityLevel(cfg.TRACE, getTestLoggingFunctions())
	validateOutput(t.T(), expected, output)
}

func (t *LoggerTest) TestJSONFormatEmitsSeverityAndMessage() {
	var buf bytes.Buffer
	defaultLoggerFactory = &loggerFactory{format: "json"}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(&buf, programLevel(cfg.INFO)))

	Infof("www.infoExample.com")

	assert.Regexp(t.T(), `"severity":"INFO"`, buf.String())
	assert.Regexp(t.T(), `"message":"www.infoExample.com"`, buf.String())
}

func (t *LoggerTest) TestSetLoggingLevel() {
	testData := []struct {
		inputLevel    string
		expectedLevel slog.Level
	}{
		{cfg.TRACE, LevelTrace},
		{cfg.DEBUG, LevelDebug},
		{cfg.INFO, LevelInfo},
		{cfg.WARNING, LevelWarn},
		{cfg.ERROR, LevelError},
		{cfg.OFF, LevelOff},
	}

	for _, test := range testData {
		v := new(slog.LevelVar)
		setLoggingLevel(test.inputLevel, v)
		assert.Equal(t.T(), test.expectedLevel, v.Level())
	}
}

func (t *LoggerTest) TestSetLogFormat() {
	defaultLoggerFactory = &loggerFactory{level: cfg.INFO}

	SetLogFormat("text")
	assert.Equal(t.T(), "text", defaultLoggerFactory.format)

	SetLogFormat("bogus")
	assert.Equal(t.T(), "json", defaultLoggerFactory.format)
}

func (t *LoggerTest) TestNewStdLoggerForwardsToDefaultLogger() {
	var buf bytes.Buffer
	defaultLoggerFactory = &loggerFactory{format: "text"}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(&buf, programLevel(cfg.ERROR)))

	std := NewStdLogger(LevelError, "fuse: ")
	std.Print("kernel went away")

	assert.Regexp(t.T(), `severity=ERROR message="fuse: kernel went away"`, buf.String())
}
