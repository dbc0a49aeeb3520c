package repo

import (
	"context"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/common/models"
	"github.com/vmware-archive/salt-ci/server/store"
)

type RepoService struct {
	repoStore              store.RepoStore
	repoAdministratorStore store.RepoAdministratorStore
	logger.Log
}

func NewRepoService(
	repoStore store.RepoStore,
	repoAdministratorStore store.RepoAdministratorStore,
	logFactory logger.LogFactory) *RepoService {

	return &RepoService{
		repoStore:              repoStore,
		repoAdministratorStore: repoAdministratorStore,
		Log:                    logFactory("RepoService"),
	}
}

// ReadManaged reads a repo from the account's managed set.
// Returns models.ErrNotFound if the repo does not exist or the account does not administer it.
func (s *RepoService) ReadManaged(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, id models.RepoID) (*models.Repo, error) {
	repo, err := s.repoStore.Read(ctx, txOrNil, id)
	if err != nil {
		return nil, err
	}
	isAdmin, err := s.repoAdministratorStore.IsAdministrator(ctx, txOrNil, id, accountID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, gerror.NewErrNotFound("Not Found")
	}
	return repo, nil
}

// SearchManaged lists the account's managed repos that match filter.
// Use cursor to page through results, if any.
func (s *RepoService) SearchManaged(ctx context.Context, txOrNil *store.Tx, accountID models.AccountID, filter models.RepoFilter, pagination models.Pagination) ([]*models.Repo, *models.Cursor, error) {
	return s.repoStore.SearchManagedByAccount(ctx, txOrNil, accountID, filter, pagination)
}
