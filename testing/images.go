// Package testing collects helpers shared by this module's own test files.
// It is not a replacement for the standard "testing" package; callers still
// import that too.
package testing

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/porkrind/pdpfs/block"
	"github.com/porkrind/pdpfs/rt11"
)

// NewBlankRX01 returns a freshly zeroed RX01-geometry block device.
func NewBlankRX01(t *testing.T) block.Device {
	t.Helper()
	c, err := block.Load(make([]byte, block.RX01Geometry().TotalBytes()))
	require.NoError(t, err)
	dev, err := block.NewDevice(c)
	require.NoError(t, err)
	return dev
}

// NewFormattedRX01 returns an RX01 device already carrying a freshly
// mkfs'd, empty RT-11 volume.
func NewFormattedRX01(t *testing.T) *rt11.FileSystem {
	t.Helper()
	fs, err := rt11.Format(NewBlankRX01(t), "", "", "", "")
	require.NoError(t, err)
	return fs
}

// RandomBytes returns n bytes of random data, failing the test immediately
// if the system random source is unavailable.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

// HostFile wraps data in an io.ReadWriteSeeker, standing in for a host-side
// file in tests that exercise the CLI's host I/O contract without touching
// the real filesystem. Writes never grow the buffer past len(data).
func HostFile(data []byte) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(data)
}
