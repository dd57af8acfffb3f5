package pdpfs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpHomeIncludesVolumeID(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "MYVOL")
	require.NoError(t, err)

	var buf bytes.Buffer
	v.DumpHome(&buf)
	require.Contains(t, buf.String(), "MYVOL")
}

func TestDumpDirTextModeListsEntries(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	require.NoError(t, v.FS.Insert("FOO.TXT", []byte("x")))

	var buf bytes.Buffer
	require.NoError(t, v.DumpDir(&buf, false))
	require.Contains(t, buf.String(), "FOO")
}

func TestDumpDirCSVModeIsParseable(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)
	require.NoError(t, v.FS.Insert("FOO.TXT", []byte("x")))

	var buf bytes.Buffer
	require.NoError(t, v.DumpDir(&buf, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	require.Contains(t, lines[0], "segment")
	require.Contains(t, buf.String(), "FOO")
}

func TestDumpBlocksProducesOneSectionPerBlock(t *testing.T) {
	v, err := Mkfs("rx01", "rt11", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, v.DumpBlocks(&buf))
	require.Equal(t, v.Device.BlockCount(), strings.Count(buf.String(), "--- logical block"))
}
