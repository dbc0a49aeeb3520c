package documents

import "github.com/vmware-archive/salt-ci/common/models"

// ResourceDocument is a resource as rendered by the API, addressable by its link.
type ResourceDocument interface {
	GetLink() string
	GetID() models.ResourceID
	GetKind() models.ResourceKind
	GetCreatedAt() models.Time
}

// resourceLink is embedded by every resource document to carry its URL.
type resourceLink struct {
	URL string `json:"url"`
}

func (d *resourceLink) GetLink() string {
	return d.URL
}

// GetRootDocumentResponse maps the name of each top level API resource to its URL.
type GetRootDocumentResponse map[string]string
