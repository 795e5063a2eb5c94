package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// scope carries the tenant context resolved for an inbound review-platform
// event: the organization that owns the repository and the repository row
// itself.
type scope struct {
	org  *model.Organization
	repo *model.Repository
}

// resolveScope maps a repository full name ("owner/name") to its organization
// and repository rows. The repository row is created on first sighting.
// Returns nil when the owner is not a registered organization or the
// repository has been deactivated; callers drop the event in that case.
func resolveScope(ctx context.Context, orgs driven.OrgStore, repos driven.RepoStore, fullName string) (*scope, error) {
	owner, _, ok := strings.Cut(fullName, "/")
	if !ok {
		return nil, fmt.Errorf("malformed repository name %q", fullName)
	}

	org, err := orgs.GetByGitHubOrg(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("looking up organization %s: %w", owner, err)
	}
	if org == nil {
		return nil, nil
	}

	repo, err := repos.GetByFullName(ctx, fullName)
	if err != nil {
		return nil, fmt.Errorf("looking up repository %s: %w", fullName, err)
	}
	if repo == nil {
		repo = &model.Repository{
			OrgID:    org.ID,
			FullName: fullName,
			IsActive: true,
		}
		id, err := repos.Create(ctx, *repo)
		if err != nil {
			return nil, fmt.Errorf("registering repository %s: %w", fullName, err)
		}
		repo.ID = id
	}
	if !repo.IsActive {
		return nil, nil
	}

	return &scope{org: org, repo: repo}, nil
}
