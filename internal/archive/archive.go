// Package archive packs a file or directory subtree into a single
// compressed tar blob and unpacks such a blob back onto the filesystem.
// Blobs are opaque to callers; the cassette store only sees bytes.
package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fixtape/fixtape/internal/core"
)

// Compression names the fixed compression filter applied to every
// archive blob. All readers and writers of a cassette must agree on it,
// so it is chosen once for the whole system and recorded in cassette
// metadata.
const Compression = "gzip"

// Pack archives the file or directory at path into a compressed tar
// blob. Entry names are relative to the artifact's parent directory so
// no absolute host paths leak into the blob; for a directory the top
// directory itself is included as an entry, which lets Unpack strip it.
//
// The process working directory is temporarily switched to the
// artifact's parent and restored unconditionally, success or failure.
func Pack(path string) (_ []byte, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, core.WrapError(core.ErrArtifactMissing, err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(filepath.Dir(abs)); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := os.Chdir(cwd); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := addTree(tw, filepath.Base(abs)); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addTree writes the entry at name, and its subtree when it is a
// directory, to tw. name is relative to the current working directory.
// Sockets, pipes and device files fail loudly here: silently archiving
// a member that cannot be restored would produce an unreplayable
// cassette.
func addTree(tw *tar.Writer, name string) error {
	return filepath.Walk(name, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		var link string
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			link, err = os.Readlink(path)
			if err != nil {
				return err
			}
		case info.Mode().IsRegular() || info.IsDir():
		default:
			return fmt.Errorf("unsupported file type %v for %q", info.Mode().Type(), path)
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(path)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

// Unpack restores a blob produced by Pack onto target. If the first
// archive member is a regular file, exactly that file's content is
// written to target, overwriting it. Otherwise every member is
// extracted relative to target with its first path segment (the
// synthetic top directory) stripped; a member with no further segments
// maps to "." .
func Unpack(blob []byte, target string) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return core.WrapError(core.ErrArchiveMalformed, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	first, err := tr.Next()
	if err != nil {
		return core.WrapError(core.ErrArchiveMalformed, err)
	}

	if first.Typeflag == tar.TypeReg {
		content, err := io.ReadAll(tr)
		if err != nil {
			return core.WrapError(core.ErrArchiveMalformed, err)
		}
		return os.WriteFile(target, content, fs.FileMode(first.Mode).Perm())
	}

	hdr := first
	for {
		if err := extract(tr, hdr, target); err != nil {
			return err
		}
		hdr, err = tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return core.WrapError(core.ErrArchiveMalformed, err)
		}
	}
}

// extract restores one directory-tree member under target.
func extract(tr *tar.Reader, hdr *tar.Header, target string) error {
	name, err := stripTop(hdr.Name)
	if err != nil {
		return err
	}
	dest := filepath.Join(target, filepath.FromSlash(name))

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, fs.FileMode(hdr.Mode).Perm()|0o700)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return core.WrapError(core.ErrArchiveMalformed, err)
		}
		return os.WriteFile(dest, content, fs.FileMode(hdr.Mode).Perm())
	case tar.TypeSymlink:
		if err := checkLinkTarget(name, hdr.Linkname); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return err
		}
		return os.Symlink(filepath.FromSlash(hdr.Linkname), dest)
	default:
		// Special files (sockets, pipes, devices) are refused by Pack;
		// a blob carrying them did not come from us.
		return core.WrapError(core.ErrArchiveMalformed,
			fmt.Errorf("unsupported member type %d for %q", hdr.Typeflag, hdr.Name))
	}
}

// stripTop removes the synthetic top directory from a member name. A
// member naming the top directory itself maps to ".". Names that would
// escape the extraction root are rejected.
func stripTop(name string) (string, error) {
	clean := strings.TrimSuffix(filepath.ToSlash(name), "/")
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", core.WrapError(core.ErrArchiveMalformed,
				fmt.Errorf("member %q escapes extraction root", name))
		}
	}
	parts := strings.SplitN(clean, "/", 2)
	if len(parts) < 2 {
		return ".", nil
	}
	return parts[1], nil
}

// checkLinkTarget rejects symlink targets that resolve outside the
// extraction root. member is the stripped, slash-separated member name;
// relative targets within the tree (e.g. "../a.txt" from "b/link") are
// fine, absolute targets and climbs past the root are not.
func checkLinkTarget(member, linkname string) error {
	target := filepath.ToSlash(linkname)
	escape := core.WrapError(core.ErrArchiveMalformed,
		fmt.Errorf("link target %q for member %q escapes extraction root", linkname, member))
	if target == "" || strings.HasPrefix(target, "/") {
		return escape
	}
	joined := path.Join(path.Dir(member), target)
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return escape
	}
	return nil
}
