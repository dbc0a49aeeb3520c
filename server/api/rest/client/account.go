package client

import (
	"context"
	"net/http"

	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
)

const (
	accountPath    = "/api/v1/account"
	hooksTokenPath = "/api/v1/account/hooks-token"
	syncPath       = "/api/v1/sync"
)

func (a *APIClient) GetAccount(ctx context.Context) (*documents.Account, error) {
	account := &documents.Account{}
	_, err := a.getJSON(ctx, accountPath, account, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (a *APIClient) PatchAccount(ctx context.Context, req *documents.PatchAccountRequest) (*documents.Account, error) {
	account := &documents.Account{}
	_, err := a.patchJSON(ctx, accountPath, req, account, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (a *APIClient) RegenerateHooksToken(ctx context.Context) (*documents.Account, error) {
	account := &documents.Account{}
	_, err := a.postJSON(ctx, hooksTokenPath, nil, account, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Sync synchronizes the signed in account with the provider. A sync that stopped part way is
// returned without error; check the response's Partial flag.
func (a *APIClient) Sync(ctx context.Context) (*documents.SyncResponse, error) {
	res := &documents.SyncResponse{}
	_, err := a.postJSON(ctx, syncPath, nil, res, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, err
	}
	return res, nil
}
