// Package pdpfs is the library entry point: opening, formatting, and saving
// RT-11/XXDP disk images. The CLI in cmd/pdpfs is a thin wrapper around it.
package pdpfs

import (
	"strings"

	"github.com/porkrind/pdpfs/block"
	pdpfserrors "github.com/porkrind/pdpfs/errors"
	"github.com/porkrind/pdpfs/rt11"
)

// Volume is a mounted disk image: its container (the raw bytes and their
// framing), the logical block device built on top of it, and the RT-11
// filesystem mounted on that device.
type Volume struct {
	Container *block.Container
	Device    block.Device
	FS        *rt11.FileSystem
}

// Open loads an image (flat or IMD, sniffed automatically) and mounts its
// RT-11 filesystem.
func Open(data []byte) (*Volume, error) {
	c, err := block.Load(data)
	if err != nil {
		return nil, err
	}
	dev, err := block.NewDevice(c)
	if err != nil {
		return nil, err
	}
	fs, err := rt11.Mount(dev)
	if err != nil {
		return nil, err
	}
	return &Volume{Container: c, Device: dev, FS: fs}, nil
}

// Save flushes the filesystem's pending writes and serializes the image in
// the given container kind.
func (v *Volume) Save(kind block.Kind) ([]byte, error) {
	if err := v.FS.Sync(); err != nil {
		return nil, err
	}
	return v.Container.Save(kind)
}

// Convert reframes the volume's current bytes as a different container
// kind without mutating the filesystem itself.
func (v *Volume) Convert(kind block.Kind) ([]byte, error) {
	if err := v.FS.Sync(); err != nil {
		return nil, err
	}
	return v.Container.Convert(kind)
}

// knownDevices enumerates the mkfs `device` argument's valid values. Only
// rx01 is supported; see spec Non-goals on other geometries.
var knownDevices = map[string]func() block.Geometry{
	"rx01": block.RX01Geometry,
}

// systemIDFor returns the home block system_id and system_version strings
// for the requested filesystem kind. RT-11 and XXDP share the on-disk
// layout end to end; the home block's identification fields are the only
// place they differ.
func systemIDFor(filesystemKind string) (systemID, systemVersion string, err error) {
	switch strings.ToLower(filesystemKind) {
	case "rt11", "":
		return "DECRT11A", "V3A", nil
	case "xxdp":
		return "DECDXB", "V1B", nil
	default:
		return "", "", pdpfserrors.New(pdpfserrors.NameInvalid, "unknown filesystem kind %q (want rt11 or xxdp)", filesystemKind)
	}
}

// Mkfs creates a brand-new volume of the given device and filesystem kind.
func Mkfs(device, filesystemKind, volumeID string) (*Volume, error) {
	geometryFn, ok := knownDevices[strings.ToLower(device)]
	if !ok {
		return nil, pdpfserrors.New(pdpfserrors.GeometryMismatch, "unknown mkfs device %q (want rx01)", device)
	}
	geometry := geometryFn()

	systemID, systemVersion, err := systemIDFor(filesystemKind)
	if err != nil {
		return nil, err
	}

	c, err := block.Load(make([]byte, geometry.TotalBytes()))
	if err != nil {
		return nil, err
	}
	dev, err := block.NewDevice(c)
	if err != nil {
		return nil, err
	}
	fs, err := rt11.Format(dev, volumeID, "", systemID, systemVersion)
	if err != nil {
		return nil, err
	}
	return &Volume{Container: c, Device: dev, FS: fs}, nil
}

// HostIO is what the CLI supplies the library for import/export operations.
// The library itself never touches the real filesystem; cmd/pdpfs backs
// this with the os package.
type HostIO interface {
	ReadHostFile(path string) ([]byte, error)
	WriteHostFile(path string, data []byte) error
	HostPathExists(path string) bool
}

// IsHostPath reports whether a cp/mv-style path argument names a host file
// rather than an image entry, per the "contains a slash" rule.
func IsHostPath(path string) bool {
	return strings.Contains(path, "/")
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Copy implements the `cp` subcommand's full src/dest classification: host
// to image, image to host, or image to image. A lone "." means "same name,
// as seen on the other side."
func (v *Volume) Copy(io HostIO, src, dest string) error {
	srcIsHost := IsHostPath(src)
	// A lone "." dest names the side opposite src: the host when src is an
	// image entry (IsHostPath alone would class it as an image path).
	destIsHost := IsHostPath(dest) || (dest == "." && !srcIsHost)

	switch {
	case srcIsHost && !destIsHost:
		data, err := io.ReadHostFile(src)
		if err != nil {
			return err
		}
		name := dest
		if name == "." {
			name = baseName(src)
		}
		return v.FS.Insert(strings.ToUpper(name), data)

	case !srcIsHost && destIsHost:
		data, err := v.FS.Extract(strings.ToUpper(src))
		if err != nil {
			return err
		}
		path := dest
		if path == "." {
			path = src
		}
		return io.WriteHostFile(path, data)

	case !srcIsHost && !destIsHost:
		data, err := v.FS.Extract(strings.ToUpper(src))
		if err != nil {
			return err
		}
		name := dest
		if name == "." {
			name = src
		}
		return v.FS.Insert(strings.ToUpper(name), data)

	default:
		return pdpfserrors.New(pdpfserrors.NameInvalid, "cp %s %s: at least one side must be an image path", src, dest)
	}
}
