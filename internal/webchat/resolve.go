// SPDX-License-Identifier: MPL-2.0

package webchat

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/clawdis/webchat/pkg/types"
)

const (
	// IndexFile is served for an empty request path or "/".
	IndexFile = "index.html"

	// maxLinkHops bounds how many dangling links are followed when checking
	// containment of a path that does not exist.
	maxLinkHops = 40
)

type (
	// CanonicalFile is a regular file that passed the containment check.
	// Path has every symlink resolved and lies strictly below the root.
	CanonicalFile struct {
		Path string
		Info fs.FileInfo
	}

	// Resolver maps request paths onto files below a canonical root.
	// It is safe for concurrent use; it never modifies the filesystem.
	Resolver struct {
		root   string
		prefix string
	}
)

// Size returns the file size recorded at resolution time.
func (f CanonicalFile) Size() int64 {
	if f.Info == nil {
		return 0
	}
	return f.Info.Size()
}

// NewResolver canonicalizes root once. The root must be an existing directory.
func NewResolver(root types.FilesystemPath) (*Resolver, error) {
	if err := root.Validate(); err != nil {
		return nil, &RootError{Root: root, Err: err}
	}
	abs, err := root.Abs()
	if err != nil {
		return nil, &RootError{Root: root, Err: err}
	}
	canonical, err := filepath.EvalSymlinks(abs.String())
	if err != nil {
		return nil, &RootError{Root: root, Err: err}
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, &RootError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &RootError{Root: root, Err: errors.New("not a directory")}
	}

	prefix := canonical
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return &Resolver{root: canonical, prefix: prefix}, nil
}

// Root returns the canonical root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve validates requestPath (in its escaped, on-the-wire form) and maps
// it to a regular file below the root.
//
// Order matters: ".." segments and NUL bytes are rejected on the decoded path
// before the filesystem is touched, and the containment check runs on the
// fully symlink-resolved path.
func (r *Resolver) Resolve(requestPath string) (CanonicalFile, error) {
	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return CanonicalFile{}, notFound(requestPath, err)
	}
	if strings.ContainsRune(decoded, 0) {
		return CanonicalFile{}, traversal(requestPath)
	}

	segments := splitSegments(decoded)
	for _, seg := range segments {
		if seg == ".." || filepath.VolumeName(seg) != "" {
			return CanonicalFile{}, traversal(requestPath)
		}
	}
	if len(segments) == 0 {
		segments = []string{IndexFile}
	}

	joined := filepath.Join(append([]string{r.root}, segments...)...)
	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if !r.missingWithin(joined) {
			return CanonicalFile{}, traversal(requestPath)
		}
		return CanonicalFile{}, notFound(requestPath, err)
	}
	if !r.within(canonical) {
		return CanonicalFile{}, traversal(requestPath)
	}

	info, err := os.Lstat(canonical)
	if err != nil {
		return CanonicalFile{}, notFound(requestPath, err)
	}
	if !info.Mode().IsRegular() {
		return CanonicalFile{}, notFound(requestPath, nil)
	}

	return CanonicalFile{Path: canonical, Info: info}, nil
}

func (r *Resolver) within(canonical string) bool {
	return canonical == r.root || strings.HasPrefix(canonical, r.prefix)
}

// missingWithin reports whether a path that failed to resolve would still
// land below the root. The deepest existing ancestor is resolved and checked;
// a dangling link is followed through its target so that a missing file
// behind an escaping link is treated like an existing one.
func (r *Resolver) missingWithin(p string) bool {
	for range maxLinkHops {
		existing, rest := deepestExisting(p)
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return r.within(resolved)
		}

		// existing is itself a dangling link; its parent always resolves.
		parent, err := filepath.EvalSymlinks(filepath.Dir(existing))
		if err != nil {
			return false
		}
		target, err := os.Readlink(existing)
		if err != nil {
			return false
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(parent, target)
		}
		p = filepath.Join(target, rest)
	}
	return false
}

// deepestExisting splits p into its longest ancestor visible to Lstat and the
// remaining relative part.
func deepestExisting(p string) (existing, rest string) {
	existing = filepath.Clean(p)
	for {
		if _, err := os.Lstat(existing); err == nil {
			return existing, rest
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return existing, rest
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

// splitSegments splits on both separators so that a decoded "%2F" or a
// backslash can never smuggle a ".." past the segment check. Empty and "."
// segments are dropped.
func splitSegments(p string) []string {
	fields := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	segments := fields[:0]
	for _, f := range fields {
		if f == "." {
			continue
		}
		segments = append(segments, f)
	}
	return segments
}
