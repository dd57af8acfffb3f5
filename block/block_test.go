package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRX01InterleaveMappingIsInvertible(t *testing.T) {
	seen := map[[2]int]int{}
	for l := 0; l < RX01LogicalBlocks; l++ {
		global := rx01LogicalBlockToGlobalSector(l)
		track, sector := rx01GlobalSectorToPhysical(global)
		key := [2]int{track, sector}
		if prior, ok := seen[key]; ok {
			t.Fatalf("logical blocks %d and %d both map to track %d sector %d", prior, l, track, sector)
		}
		seen[key] = l
	}
}

func TestRX01GlobalSectorToPhysicalMatchesReferenceDriver(t *testing.T) {
	// Logical block 0's first sector: global sector 26, which must land on
	// physical cylinder 1 (track 0 is reserved) sector 0 with zero skew,
	// matching the RT-11 RX01 driver's own skew-before-track-skip ordering.
	track, sector := rx01GlobalSectorToPhysical(rx01LogicalBlockToGlobalSector(0))
	require.Equal(t, 1, track)
	require.Equal(t, 0, sector)
}

func TestRX01GlobalSectorToPhysicalInRange(t *testing.T) {
	for l := 0; l < 2002; l++ {
		track, sector := rx01GlobalSectorToPhysical(l)
		require.GreaterOrEqual(t, track, 0)
		require.Less(t, track, 77)
		require.GreaterOrEqual(t, sector, 0)
		require.Less(t, sector, 26)
	}
}

func TestFlatLoadRejectsUnsupportedSize(t *testing.T) {
	_, err := Load(make([]byte, 17))
	require.Error(t, err)
}

func TestFlatRoundTrip(t *testing.T) {
	data := make([]byte, RX01Geometry().TotalBytes())
	for i := range data {
		data[i] = byte(i)
	}
	c, err := Load(data)
	require.NoError(t, err)
	require.Equal(t, Flat, c.Kind)
	require.True(t, c.Geometry.IsRX01())

	out, err := c.Save(Flat)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestFlatHardDiskGeometryLoad(t *testing.T) {
	data := make([]byte, 1<<20+512)
	c, err := Load(data)
	require.NoError(t, err)
	require.Equal(t, Flat, c.Kind)
	require.Equal(t, BlockSize, c.Geometry.SectorSizeBytes)
	require.Equal(t, 1, c.Geometry.SectorsPerTrack)
}

func TestIMDRoundTripsToSameState(t *testing.T) {
	data := make([]byte, RX01Geometry().TotalBytes())
	for i := range data {
		data[i] = byte(i * 7)
	}
	flat, err := Load(data)
	require.NoError(t, err)

	imdBytes, err := flat.Save(Imd)
	require.NoError(t, err)
	require.Equal(t, Imd, Sniff(imdBytes))

	reloaded, err := Load(imdBytes)
	require.NoError(t, err)
	require.Equal(t, flat.Buffer, reloaded.Buffer)
	require.Equal(t, flat.Geometry, reloaded.Geometry)
}

func TestConvertFlatImdFlatIsIdentity(t *testing.T) {
	data := make([]byte, RX01Geometry().TotalBytes())
	for i := range data {
		data[i] = byte(i * 3)
	}
	flat, err := Load(data)
	require.NoError(t, err)

	imdBytes, err := flat.Convert(Imd)
	require.NoError(t, err)

	viaIMD, err := Load(imdBytes)
	require.NoError(t, err)

	backToFlat, err := viaIMD.Convert(Flat)
	require.NoError(t, err)
	require.Equal(t, data, backToFlat)
}

func TestNewDeviceRX01BlockCount(t *testing.T) {
	data := make([]byte, RX01Geometry().TotalBytes())
	c, err := Load(data)
	require.NoError(t, err)
	dev, err := NewDevice(c)
	require.NoError(t, err)
	require.Equal(t, RX01LogicalBlocks, dev.BlockCount())
}

func TestRX01DeviceReadWriteBlock(t *testing.T) {
	data := make([]byte, RX01Geometry().TotalBytes())
	c, err := Load(data)
	require.NoError(t, err)
	dev, err := NewDevice(c)
	require.NoError(t, err)

	payload := make([]byte, BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, dev.WriteBlock(1, payload))
	readBack, err := dev.ReadBlock(1)
	require.NoError(t, err)
	require.Equal(t, payload, readBack)

	other, err := dev.ReadBlock(0)
	require.NoError(t, err)
	require.NotEqual(t, payload, other)
}

func TestFlatDeviceBlockCount(t *testing.T) {
	data := make([]byte, 1<<20)
	c, err := Load(data)
	require.NoError(t, err)
	dev, err := NewDevice(c)
	require.NoError(t, err)
	require.Equal(t, (1<<20)/BlockSize, dev.BlockCount())
}
