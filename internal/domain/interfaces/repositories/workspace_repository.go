// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// WorkspaceRepository defines the interface for loading the workspace to plan
type WorkspaceRepository interface {
	// GetWorkspace loads the workspace snapshot and workspace-level settings
	GetWorkspace(ctx context.Context) (*entities.Workspace, error)
}
