package models

// ProviderUser is the authenticated user as reported by the provider.
type ProviderUser struct {
	ID        ProviderID
	Login     string
	Name      string
	AvatarURL string
}

// ProviderOrganization is an organization the authenticated user belongs to.
type ProviderOrganization struct {
	ID        ProviderID
	Name      string
	Login     string
	AvatarURL string
	// ViewerIsAdmin is true if the authenticated user is an admin of the organization.
	ViewerIsAdmin bool
}

// ProviderRepo is a repository visible to the authenticated user.
type ProviderRepo struct {
	ID          ProviderID
	Name        string
	OwnerLogin  string
	URL         string
	Description string
	Fork        bool
	Private     bool
	// ViewerIsAdmin is true if the authenticated user has admin permission on the repo.
	ViewerIsAdmin bool
}

// ProviderHook is a webhook registered on a provider repository.
type ProviderHook struct {
	ID     ProviderID
	Events []string
	Config map[string]interface{}
}

// URL returns the callback URL the hook delivers to, or "" if not set.
func (h *ProviderHook) URL() string {
	if h.Config == nil {
		return ""
	}
	url, _ := h.Config["url"].(string)
	return url
}

// HasEvent returns true if the hook subscribes to the named provider event.
func (h *ProviderHook) HasEvent(event string) bool {
	for _, e := range h.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}
