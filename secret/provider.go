package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves references against environment variables.
type EnvProvider struct{}

// Name returns "env".
func (EnvProvider) Name() string { return "env" }

// Resolve returns the value of the environment variable ref.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileProvider reads secrets from files, such as mounted container secrets.
// Surrounding whitespace is trimmed.
type FileProvider struct {
	// Dir, when set, confines references to files below it. Relative
	// references are resolved against it.
	Dir string
}

// Name returns "file".
func (FileProvider) Name() string { return "file" }

// Resolve returns the trimmed contents of the file ref.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.Dir != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Dir, path)
		}
		rel, err := filepath.Rel(p.Dir, filepath.Clean(path))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("secret: file %q is outside %s", ref, p.Dir)
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is operator configuration.
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
		}
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

var (
	_ Provider = EnvProvider{}
	_ Provider = FileProvider{}
)
