package persona

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"
)

// maxEntryBytes caps how much of a single archive entry is read.
const maxEntryBytes = 256 << 20

var zipMagic = []byte("PK\x03\x04")

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".jsonl": true, ".csv": true,
	".html": true, ".htm": true, ".log": true,
}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// splitArchives expands zip archives into their file entries. Archive entries are returned
// separately from loose files because archive structure is the stronger format signal.
// Unreadable archives and entries are logged and skipped.
func splitArchives(files []File, logger *slog.Logger) (archived, loose []File) {
	for _, f := range files {
		if !isZip(f.Data) {
			loose = append(loose, f)
			continue
		}
		entries, err := unzipEntries(f, logger)
		if err != nil {
			logger.Warn("skipping unreadable archive", "file", f.Name, "error", err)
			continue
		}
		archived = append(archived, entries...)
	}
	return archived, loose
}

func unzipEntries(f File, logger *slog.Logger) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	var out []File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasPrefix(zf.Name, "__MACOSX/") {
			continue
		}
		data, err := readZipEntry(zf)
		if err != nil {
			logger.Warn("skipping unreadable archive entry", "file", f.Name, "entry", zf.Name, "error", err)
			continue
		}
		out = append(out, File{Name: zf.Name, Data: data})
	}
	return out, nil
}

func readZipEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntryBytes))
}

func extension(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}

func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

// isTextLike reports whether a file can contribute plain text to a transcript. The content
// must be valid UTF-8 without NUL bytes whatever the name says. Files without a known text
// extension must also be mostly printable.
func isTextLike(f File) bool {
	if len(bytes.TrimSpace(f.Data)) == 0 {
		return false
	}
	if !utf8.Valid(f.Data) || bytes.IndexByte(f.Data, 0) >= 0 {
		return false
	}
	if textExtensions[extension(f.Name)] {
		return true
	}
	return controlShare(f.Data) <= maxControlShare
}

// maxControlShare is the share of control characters tolerated in a file with no text extension.
const maxControlShare = 0.1

func controlShare(data []byte) float64 {
	total, control := 0, 0
	for _, r := range string(data) {
		total++
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			control++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(control) / float64(total)
}

// looksLikeJSON reports whether the file should be probed as a JSON export.
func looksLikeJSON(f File) bool {
	if extension(f.Name) == ".json" {
		return true
	}
	trimmed := bytes.TrimSpace(f.Data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
