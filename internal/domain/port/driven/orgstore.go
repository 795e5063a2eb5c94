package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// OrgStore defines the driven port for organization persistence.
// Get methods return nil, nil when no row exists.
type OrgStore interface {
	Create(ctx context.Context, org model.Organization) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Organization, error)
	GetByGitHubOrg(ctx context.Context, login string) (*model.Organization, error)
	GetBySlackTeamID(ctx context.Context, teamID string) (*model.Organization, error)
	Update(ctx context.Context, org model.Organization) error
}
