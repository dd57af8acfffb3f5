package pdpfs

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// writeHexDump formats data as 16-byte-per-line offset/hex/ASCII rows,
// starting each row's offset label at baseOffset.
func writeHexDump(w io.Writer, data []byte, baseOffset int) {
	for row := 0; row < len(data); row += 16 {
		end := row + 16
		if end > len(data) {
			end = len(data)
		}
		chunk := data[row:end]

		fmt.Fprintf(w, "%06x  ", baseOffset+row)
		for i := 0; i < 16; i++ {
			if i < len(chunk) {
				fmt.Fprintf(w, "%02x ", chunk[i])
			} else {
				fmt.Fprint(w, "   ")
			}
			if i == 7 {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, " |")
		for _, b := range chunk {
			if b >= 0x20 && b < 0x7f {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}

// DumpBlocks hex-dumps every logical block of the volume.
func (v *Volume) DumpBlocks(w io.Writer) error {
	for b := 0; b < v.Device.BlockCount(); b++ {
		data, err := v.Device.ReadBlock(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "--- logical block %d ---\n", b)
		writeHexDump(w, data, 0)
	}
	return nil
}

// DumpSectors hex-dumps every physical (track, sector) of the container.
func (v *Volume) DumpSectors(w io.Writer) error {
	g := v.Container.Geometry
	for t := 0; t < g.Tracks; t++ {
		for s := 0; s < g.SectorsPerTrack; s++ {
			fmt.Fprintf(w, "--- track %d sector %d ---\n", t, s)
			writeHexDump(w, v.Container.SectorBytes(t, s), 0)
		}
	}
	return nil
}

// DumpHome pretty-prints the home block's fields.
func (v *Volume) DumpHome(w io.Writer) {
	hb := v.FS.Home()
	fmt.Fprintf(w, "cluster_size:                  %d\n", hb.ClusterSize)
	fmt.Fprintf(w, "first_directory_segment_block: %d\n", hb.FirstDirectorySegmentBlock)
	fmt.Fprintf(w, "system_version:                %q\n", hb.SystemVersion)
	fmt.Fprintf(w, "volume_id:                     %q\n", hb.VolumeID)
	fmt.Fprintf(w, "owner_name:                    %q\n", hb.OwnerName)
	fmt.Fprintf(w, "system_id:                     %q\n", hb.SystemID)
	fmt.Fprintf(w, "checksum_ok:                   %v\n", v.FS.HomeChecksumOK())
}

// dirDumpRow is the flattened, CSV-friendly form of one directory entry,
// used only by dump-dir --csv.
type dirDumpRow struct {
	Segment    int    `csv:"segment"`
	Status     string `csv:"status"`
	Name       string `csv:"name"`
	Ext        string `csv:"ext"`
	Length     int    `csv:"length_blocks"`
	StartBlock int    `csv:"start_block"`
	Date       string `csv:"date"`
}

// DumpDir pretty-prints every directory segment's header and entries. When
// csv is true, the entries (across all segments) are instead emitted as
// CSV via gocsv.
func (v *Volume) DumpDir(w io.Writer, csv bool) error {
	if csv {
		var rows []dirDumpRow
		for _, seg := range v.FS.Segments() {
			for _, e := range seg.Entries {
				date := ""
				if !e.CreationDate.IsZero() {
					date = e.CreationDate.Format("2006-01-02")
				}
				rows = append(rows, dirDumpRow{
					Segment:    seg.Number,
					Status:     e.Kind.String(),
					Name:       e.Name,
					Ext:        e.Ext,
					Length:     e.Length,
					StartBlock: e.StartBlock,
					Date:       date,
				})
			}
		}
		out, err := gocsv.MarshalString(&rows)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}

	for _, seg := range v.FS.Segments() {
		fmt.Fprintf(w, "--- segment %d ---\n", seg.Number)
		fmt.Fprintf(w, "total_segments=%d next_segment=%d highest_segment_in_use=%d extra_bytes_per_entry=%d data_block_start=%d\n",
			seg.Header.TotalSegments, seg.Header.NextSegment, seg.Header.HighestSegmentInUse,
			seg.Header.ExtraBytesPerEntry, seg.Header.DataBlockStart)
		for _, e := range seg.Entries {
			fmt.Fprintf(w, "  %-8s %-6s %-3s len=%-4d start=%-5d date=%s\n",
				e.Kind, e.Name, e.Ext, e.Length, e.StartBlock, e.CreationDate.Format("2006-01-02"))
		}
	}
	return nil
}
