package models

// ETagAny can be supplied on update to skip the optimistic lock check.
const ETagAny ETag = "*"

// ETag is a hash of a mutable resource's contents, compared on update to detect concurrent writes.
type ETag string

func (e ETag) String() string {
	return string(e)
}

// GetETag returns etag if set, otherwise the resource's current ETag.
func GetETag(resource MutableResource, etag ETag) ETag {
	if etag != "" {
		return etag
	}
	return resource.GetETag()
}
