package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// WorkspaceRepository implements repositories.WorkspaceRepository using a workspace file
type WorkspaceRepository struct {
	path   string
	parser *WorkspaceParser
}

// NewWorkspaceRepository creates a repository reading path. path may be a workspace file
// or a directory holding one of WorkspaceFileNames.
func NewWorkspaceRepository(path string) *WorkspaceRepository {
	return &WorkspaceRepository{
		path:   path,
		parser: NewWorkspaceParser(),
	}
}

// GetWorkspace loads and parses the workspace file
func (r *WorkspaceRepository) GetWorkspace(ctx context.Context) (*entities.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filePath, err := r.resolve()
	if err != nil {
		return nil, err
	}
	return r.parser.ParseFile(filePath)
}

// Path returns the workspace file that GetWorkspace reads
func (r *WorkspaceRepository) Path() (string, error) {
	return r.resolve()
}

func (r *WorkspaceRepository) resolve() (string, error) {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("workspace not found: %s", r.path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", r.path, err)
	}
	if !info.IsDir() {
		return r.path, nil
	}

	for _, name := range WorkspaceFileNames {
		candidate := filepath.Join(r.path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no workspace file (%s) found in %s", WorkspaceFileNames[0], r.path)
}
