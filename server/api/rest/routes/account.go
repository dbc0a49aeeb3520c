package routes

import "fmt"

func MakeAccountLink(rctx RequestContext) string {
	return fmt.Sprintf("%s/api/v1/account", rctx.BaseURL())
}

func MakeHooksTokenLink(rctx RequestContext) string {
	return fmt.Sprintf("%s/hooks-token", MakeAccountLink(rctx))
}

func MakeSyncLink(rctx RequestContext) string {
	return fmt.Sprintf("%s/api/v1/sync", rctx.BaseURL())
}
