package core_test

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// tarEntry describes one member of a test tarball. An empty Body with a
// trailing slash in Name produces a directory.
type tarEntry struct {
	Name     string
	Body     string
	Mode     int64
	Linkname string
	Type     byte
}

// buildTarGz returns an in-memory gzip-compressed tarball
func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Type,
			Linkname: e.Linkname,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
			if len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/' {
				hdr.Typeflag = tar.TypeDir
			}
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0755
			}
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}

		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// protonTarball returns a minimal Proton-GE style archive with a top-level dir
func protonTarball(t *testing.T, topDir string) []byte {
	t.Helper()
	return buildTarGz(t, []tarEntry{
		{Name: topDir + "/"},
		{Name: topDir + "/proton", Body: "#!/usr/bin/env python3\n", Mode: 0755},
		{Name: topDir + "/version", Body: "1700000000 " + topDir + "\n"},
		{Name: topDir + "/files/bin/wine64", Body: "ELF", Mode: 0755},
	})
}
