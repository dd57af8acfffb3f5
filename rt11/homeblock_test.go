package rt11

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHomeBlockRoundTrip(t *testing.T) {
	hb := NewHomeBlock()
	hb.VolumeID = "SCRATCH"
	hb.OwnerName = "A USER"
	raw, err := hb.Encode()
	require.NoError(t, err)
	require.Len(t, raw, homeBlockSize)

	decoded, checksumOK, err := DecodeHomeBlock(raw)
	require.NoError(t, err)
	require.True(t, checksumOK)
	require.Equal(t, hb.ClusterSize, decoded.ClusterSize)
	require.Equal(t, hb.FirstDirectorySegmentBlock, decoded.FirstDirectorySegmentBlock)
	require.Equal(t, hb.SystemVersion, decoded.SystemVersion)
	require.Equal(t, "SCRATCH", decoded.VolumeID)
	require.Equal(t, "A USER", decoded.OwnerName)
	require.Equal(t, hb.SystemID, decoded.SystemID)
}

func TestHomeBlockDetectsChecksumMismatch(t *testing.T) {
	hb := NewHomeBlock()
	raw, err := hb.Encode()
	require.NoError(t, err)
	raw[0] ^= 0xff // corrupt a byte that isn't part of the checksum's own slot

	_, checksumOK, err := DecodeHomeBlock(raw)
	require.NoError(t, err)
	require.False(t, checksumOK)
}

func TestHomeBlockRejectsNonUnitClusterSize(t *testing.T) {
	hb := NewHomeBlock()
	hb.ClusterSize = 2
	raw, err := hb.Encode()
	require.NoError(t, err)

	_, _, err = DecodeHomeBlock(raw)
	require.Error(t, err)
}

func TestHomeBlockPreservesUnlabeledBytes(t *testing.T) {
	hb0 := NewHomeBlock()
	raw, err := hb0.Encode()
	require.NoError(t, err)
	raw[5] = 0xaa // inside the bad block replacement table, which this package never interprets

	hb, _, err := DecodeHomeBlock(raw)
	require.NoError(t, err)
	require.Equal(t, byte(0xaa), hb.Raw[5])

	reencoded, err := hb.Encode()
	require.NoError(t, err)
	require.Equal(t, byte(0xaa), reencoded[5])
}
