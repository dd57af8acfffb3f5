package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/porkrind/pdpfs"
	"github.com/porkrind/pdpfs/block"
)

// osHostIO backs pdpfs.HostIO with the real filesystem for cp's host-side
// files. The image file itself is read and written with os directly by
// openVolume, saveVolume and the convert command.
type osHostIO struct{}

func (osHostIO) ReadHostFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osHostIO) WriteHostFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (osHostIO) HostPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// containerKindForPath infers the save format from the image path's
// extension: ".imd" is IMD, anything else is flat.
func containerKindForPath(path string) block.Kind {
	if strings.EqualFold(filepathExt(path), ".imd") {
		return block.Imd
	}
	return block.Flat
}

func filepathExt(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

func openVolume(imagePath string) (*pdpfs.Volume, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}
	return pdpfs.Open(data)
}

func saveVolume(v *pdpfs.Volume, imagePath string) error {
	out, err := v.Save(containerKindForPath(imagePath))
	if err != nil {
		return err
	}
	return os.WriteFile(imagePath, out, 0o644)
}

func main() {
	app := &cli.App{
		Name:  "pdpfs",
		Usage: "Read and write RT-11/XXDP disk images",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Required: true, Usage: "path to the disk image"},
		},
		Commands: []*cli.Command{
			lsCommand,
			cpCommand,
			mvCommand,
			rmCommand,
			mkfsCommand,
			dumpCommand,
			dumpHomeCommand,
			dumpDirCommand,
			convertCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Errorf("%s", err)
		os.Exit(1)
	}
}

var lsCommand = &cli.Command{
	Name:  "ls",
	Usage: "list directory entries",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "a", Usage: "include non-permanent entries"},
		&cli.BoolFlag{Name: "l", Usage: "print all raw fields"},
	},
	Action: func(c *cli.Context) error {
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		for _, e := range v.FS.Enumerate(c.Bool("a")) {
			if c.Bool("l") {
				fmt.Printf("%-8s %-6s %-3s %6d blocks  start=%-5d job/chan=%#04x  %s\n",
					e.Kind, e.Name, e.Ext, e.Length, e.StartBlock, e.JobChannel, e.CreationDate.Format("2006-01-02"))
			} else {
				fmt.Println(e.FullName())
			}
		}
		return nil
	},
}

var cpCommand = &cli.Command{
	Name:      "cp",
	Usage:     "copy a file between the host and the image, or within the image",
	ArgsUsage: "SRC DEST",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("cp requires exactly two arguments")
		}
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		src, dest := c.Args().Get(0), c.Args().Get(1)
		if err := v.Copy(osHostIO{}, src, dest); err != nil {
			return err
		}
		return saveVolume(v, c.String("image"))
	},
}

var mvCommand = &cli.Command{
	Name:      "mv",
	Usage:     "rename a file within the image",
	ArgsUsage: "SRC DEST",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "f", Usage: "overwrite an existing destination"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("mv requires exactly two arguments")
		}
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		if err := v.FS.Rename(strings.ToUpper(c.Args().Get(0)), strings.ToUpper(c.Args().Get(1)), c.Bool("f")); err != nil {
			return err
		}
		return saveVolume(v, c.String("image"))
	},
}

var rmCommand = &cli.Command{
	Name:      "rm",
	Usage:     "delete a file from the image",
	ArgsUsage: "NAME",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return fmt.Errorf("rm requires exactly one argument")
		}
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		if err := v.FS.Remove(strings.ToUpper(c.Args().First())); err != nil {
			return err
		}
		return saveVolume(v, c.String("image"))
	},
}

var mkfsCommand = &cli.Command{
	Name:      "mkfs",
	Usage:     "create a new volume; the image file must not already exist",
	ArgsUsage: "DEVICE FILESYSTEM",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("mkfs requires exactly two arguments: device filesystem")
		}
		imagePath := c.String("image")
		if (osHostIO{}).HostPathExists(imagePath) {
			return fmt.Errorf("%s: already exists", imagePath)
		}
		v, err := pdpfs.Mkfs(c.Args().Get(0), c.Args().Get(1), "")
		if err != nil {
			return err
		}
		return saveVolume(v, imagePath)
	},
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "hex-dump logical blocks, or physical sectors with -s",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "s", Usage: "dump physical sectors instead of logical blocks"},
	},
	Action: func(c *cli.Context) error {
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		if c.Bool("s") {
			return v.DumpSectors(os.Stdout)
		}
		return v.DumpBlocks(os.Stdout)
	},
}

var dumpHomeCommand = &cli.Command{
	Name:  "dump-home",
	Usage: "pretty-print home block fields",
	Action: func(c *cli.Context) error {
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		v.DumpHome(os.Stdout)
		return nil
	},
}

var dumpDirCommand = &cli.Command{
	Name:  "dump-dir",
	Usage: "pretty-print all directory segments",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "csv", Usage: "emit directory entries as CSV instead"},
	},
	Action: func(c *cli.Context) error {
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		return v.DumpDir(os.Stdout, c.Bool("csv"))
	},
}

var convertCommand = &cli.Command{
	Name:      "convert",
	Usage:     "rewrite the image in a different container format",
	ArgsUsage: "KIND DEST",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("convert requires exactly two arguments: kind dest")
		}
		v, err := openVolume(c.String("image"))
		if err != nil {
			return err
		}
		var kind block.Kind
		switch strings.ToLower(c.Args().Get(0)) {
		case "img":
			kind = block.Flat
		case "imd":
			kind = block.Imd
		default:
			return fmt.Errorf("unknown container kind %q (want img or imd)", c.Args().Get(0))
		}
		out, err := v.Convert(kind)
		if err != nil {
			return err
		}
		return os.WriteFile(c.Args().Get(1), out, 0o644)
	},
}
