package daemon

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquirePIDWritesOwnPID(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, AcquirePID(home))

	got := ReadPID(home)
	assert.Equal(t, os.Getpid(), got)

	RemovePID(home)
	assert.Equal(t, 0, ReadPID(home))
}

func TestAcquirePIDRejectsLiveDaemon(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, AcquirePID(home))

	err := AcquirePID(home)
	assert.Error(t, err)
}

func TestAcquirePIDReclaimsStalePID(t *testing.T) {
	home := t.TempDir()
	// A pid no process will ever hold: the max-ish value, vanishingly
	// unlikely to collide with a live process on the test runner.
	require.NoError(t, os.WriteFile(pidFile(home), []byte(strconv.Itoa(1<<30-1)), 0o644))

	require.NoError(t, AcquirePID(home))
	assert.Equal(t, os.Getpid(), ReadPID(home))
}

func TestReadPIDMissingFile(t *testing.T) {
	assert.Equal(t, 0, ReadPID(t.TempDir()))
}
