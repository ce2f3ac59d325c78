package shader

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Resolver maps a shader identifier to its WGSL source bytes.
type Resolver interface {
	// Resolve returns the source for id.
	//
	// Parameters:
	//   - id: the shader identifier, e.g. "shaders/mesh.wgsl"
	//
	// Returns:
	//   - []byte: the raw source
	//   - error: an error if the shader could not be found or read
	Resolve(id string) ([]byte, error)
}

type fsResolver struct {
	fsys fs.FS
}

var _ Resolver = &fsResolver{}

// NewFSResolver returns a Resolver that reads shaders from fsys. Identifiers are slash
// separated paths; a missing extension defaults to ".wgsl".
//
// Parameters:
//   - fsys: the file system to read from, e.g. os.DirFS(".") or an embed.FS
//
// Returns:
//   - Resolver: the file system resolver
func NewFSResolver(fsys fs.FS) Resolver {
	return &fsResolver{fsys: fsys}
}

func (r *fsResolver) Resolve(id string) ([]byte, error) {
	name := strings.TrimPrefix(path.Clean(strings.TrimPrefix(id, "/")), "./")
	if path.Ext(name) == "" {
		name += ".wgsl"
	}
	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shader %q: %w", id, err)
	}
	return data, nil
}
