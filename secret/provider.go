package secret

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Provider resolves a reference to a secret value.
//
// Implementations must be safe for concurrent use and must not log values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// FileProvider reads secrets from files. Refs are paths on FS.
type FileProvider struct {
	fs billy.Filesystem
}

// NewFileProvider creates a FileProvider over fs. A nil fs means the host
// filesystem rooted at "/", so refs are absolute paths.
func NewFileProvider(fs billy.Filesystem) *FileProvider {
	if fs == nil {
		fs = osfs.New("/")
	}
	return &FileProvider{fs: fs}
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	data, err := util.ReadFile(p.fs, ref)
	if err != nil {
		return "", fmt.Errorf("secret file %s: %w", ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// EnvProvider reads secrets from environment variables. Refs are names.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = EnvProvider{}
)
