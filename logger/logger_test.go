package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Output: &buf, NoColors: true})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("faces", 3).Debug("frame detected")
	assert.Contains(t, buf.String(), "frame detected")
	assert.Contains(t, buf.String(), "faces:3")
}

func TestNewFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "censor.log")
	log, err := New(Options{File: file, Output: &bytes.Buffer{}, NoColors: true})
	require.NoError(t, err)

	log.Info("written to file")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Output: &buf, NoColors: true})
	require.NoError(t, err)

	entry, id := WithRunID(log)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, entry.Data[RunIDKey])

	entry.Info("start")
	assert.Contains(t, buf.String(), id)
}
