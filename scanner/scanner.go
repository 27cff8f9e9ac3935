package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// MOFExt is the extension of MOF source files.
const MOFExt = ".mof"

type FileInfo struct {
	Path string
	Size int64
}

type Scanner struct {
	rootDir    string
	extensions []string
}

// New returns a scanner for files under rootDir whose extension matches
// one of extensions (case-insensitive). No extensions matches every file.
func New(rootDir string, extensions ...string) *Scanner {
	return &Scanner{
		rootDir:    rootDir,
		extensions: extensions,
	}
}

// Scan walks the root directory and returns the matching files sorted by
// path. A root that is itself a matching file yields just that file.
func (s *Scanner) Scan() ([]FileInfo, error) {
	var (
		files []FileInfo
		mutex sync.Mutex
		wg    sync.WaitGroup
	)

	err := filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if s.isTargetFile(path) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fileInfo := FileInfo{
					Path: path,
					Size: info.Size(),
				}
				mutex.Lock()
				files = append(files, fileInfo)
				mutex.Unlock()
			}()
		}
		return nil
	})

	wg.Wait()
	slices.SortFunc(files, func(a, b FileInfo) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, err
}

func (s *Scanner) isTargetFile(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range s.extensions {
		if strings.EqualFold(ext, targetExt) {
			return true
		}
	}
	return false
}

// Index maps class names to the MOF files named after them, so that
// "CIM_ManagedElement" is found in ".../CIM_ManagedElement.mof".
type Index struct {
	files map[string]string
}

// BuildIndex scans dirs in order. When two files share a class name the
// one from the earlier directory wins. Missing directories are skipped.
func BuildIndex(dirs ...string) (*Index, error) {
	idx := &Index{files: make(map[string]string)}
	for _, dir := range dirs {
		files, err := New(dir, MOFExt).Scan()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, f := range files {
			name := strings.ToLower(strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)))
			if _, seen := idx.files[name]; !seen {
				idx.files[name] = f.Path
			}
		}
	}
	return idx, nil
}

// Lookup returns the file declaring className, matched case-insensitively.
func (idx *Index) Lookup(className string) (string, bool) {
	if idx == nil {
		return "", false
	}
	path, ok := idx.files[strings.ToLower(className)]
	return path, ok
}

// Len returns the number of indexed files.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.files)
}
