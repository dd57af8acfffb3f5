package pdpfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/porkrind/pdpfs/block"
	pdpfstesting "github.com/porkrind/pdpfs/testing"
)

// fakeHostIO stands in for the CLI's os-backed HostIO in tests. Each file's
// content lives behind an io.ReadWriteSeeker built by the shared test helper
// rather than a bare byte slice, matching what a real host file looks like
// to this interface's callers.
type fakeHostIO struct {
	files map[string]io.ReadWriteSeeker
}

func newFakeHostIO() *fakeHostIO {
	return &fakeHostIO{files: map[string]io.ReadWriteSeeker{}}
}

func (f *fakeHostIO) ReadHostFile(path string) ([]byte, error) {
	rws, ok := f.files[path]
	if !ok {
		return nil, &hostFileNotFoundError{path}
	}
	if _, err := rws.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(rws)
}

func (f *fakeHostIO) WriteHostFile(path string, data []byte) error {
	f.files[path] = pdpfstesting.HostFile(append([]byte{}, data...))
	return nil
}

func (f *fakeHostIO) HostPathExists(path string) bool {
	_, ok := f.files[path]
	return ok
}

type hostFileNotFoundError struct{ path string }

func (e *hostFileNotFoundError) Error() string { return e.path + ": no such host file" }

func TestMkfsRX01ProducesLoadableVolume(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "SCRATCH")
	require.NoError(t, err)

	out, err := v.Save(block.Flat)
	require.NoError(t, err)
	require.Len(t, out, block.RX01Geometry().TotalBytes())

	reopened, err := Open(out)
	require.NoError(t, err)
	require.Equal(t, "SCRATCH", reopened.FS.Home().VolumeID)
	require.Empty(t, reopened.FS.Enumerate(true))
}

func TestMkfsXXDPSetsSystemIdentification(t *testing.T) {
	v, err := Mkfs("rx01", "xxdp", "")
	require.NoError(t, err)
	require.Equal(t, "DECDXB", v.FS.Home().SystemID)
	require.Equal(t, "V1B", v.FS.Home().SystemVersion)
}

func TestMkfsRejectsUnknownDevice(t *testing.T) {
	_, err := Mkfs("rx02", "rt11", "")
	require.Error(t, err)
}

func TestMkfsRejectsUnknownFilesystem(t *testing.T) {
	_, err := Mkfs("rx01", "vms", "")
	require.Error(t, err)
}

func TestCopyHostToImage(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)

	io := newFakeHostIO()
	require.NoError(t, io.WriteHostFile("local/foo.txt", []byte("hello")))

	require.NoError(t, v.Copy(io, "local/foo.txt", "."))

	out, err := v.FS.Extract("FOO.TXT")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("hello")))
}

func TestCopyImageToHost(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	require.NoError(t, v.FS.Insert("FOO.TXT", []byte("payload")))

	hostIO := newFakeHostIO()
	require.NoError(t, v.Copy(hostIO, "FOO.TXT", "out/foo.txt"))

	require.True(t, hostIO.HostPathExists("out/foo.txt"))
	data, err := hostIO.ReadHostFile("out/foo.txt")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("payload")))
}

func TestCopyImageToImage(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	require.NoError(t, v.FS.Insert("FOO.TXT", []byte("payload")))

	require.NoError(t, v.Copy(newFakeHostIO(), "FOO.TXT", "BAR.TXT"))
	_, err = v.FS.Stat("BAR.TXT")
	require.NoError(t, err)
}

func TestCopyRejectsHostToHost(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	err = v.Copy(newFakeHostIO(), "a/b.txt", "c/d.txt")
	require.Error(t, err)
}

func TestConvertRoundTripsThroughIMD(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	require.NoError(t, v.FS.Insert("FOO.TXT", []byte("payload")))

	imdBytes, err := v.Convert(block.Imd)
	require.NoError(t, err)

	reopened, err := Open(imdBytes)
	require.NoError(t, err)
	out, err := reopened.FS.Extract("FOO.TXT")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("payload")))
}
