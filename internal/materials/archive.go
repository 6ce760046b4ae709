package materials

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Member is one named entry written into a container. Names always use forward slashes.
type Member struct {
	Name string
	Body []byte
}

// Extract unpacks archivePath into destDir. Entries that would escape destDir are rejected.
func Extract(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("open archive: %w", err)
		}
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, archivePath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	root, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve extract dir: %w", err)
	}

	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes archive root", ErrCorruptArchive, f.Name)
		}
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrCorruptArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.Name, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: read entry %s: %v", ErrCorruptArchive, f.Name, err)
	}
	return out.Close()
}

// ListMembers returns the files under rootDir matching a slash-separated glob such as
// "ppt/slides/slide*.xml". Results are in lexical order.
func ListMembers(rootDir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(rootDir, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// Recombine writes every regular file under sourceDir into a new archive at destArchivePath,
// named by its slash-separated path relative to sourceDir. Directory entries are implicit.
func Recombine(sourceDir, destArchivePath string) error {
	out, err := os.Create(destArchivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		return addFile(zw, p, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		zw.Close()
		out.Close()
		os.Remove(destArchivePath)
		return fmt.Errorf("add files to archive: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(destArchivePath)
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destArchivePath)
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// WriteArchive creates destArchivePath holding members in the given order.
func WriteArchive(destArchivePath string, members []Member) error {
	out, err := os.Create(destArchivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)
	for _, m := range members {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: path.Clean(m.Name), Method: zip.Deflate})
		if err == nil {
			_, err = w.Write(m.Body)
		}
		if err != nil {
			zw.Close()
			out.Close()
			os.Remove(destArchivePath)
			return fmt.Errorf("write member %s: %w", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(destArchivePath)
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destArchivePath)
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// RemoveScratch deletes dir and everything below it. A missing dir is not an error.
func RemoveScratch(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove scratch %s: %w", dir, err)
	}
	return nil
}
