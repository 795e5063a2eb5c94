package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// RepoStore defines the driven port for tracked repository persistence.
type RepoStore interface {
	Create(ctx context.Context, repo model.Repository) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Repository, error)
	GetByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	SetActive(ctx context.Context, fullName string, active bool) error
	ListByOrg(ctx context.Context, orgID int64) ([]model.Repository, error)
}
