package rbac

import "strings"

// APIPrefix is the path prefix every classified route lives under
const APIPrefix = "/api/v1/"

// ResourceTypes lists the route segments that map to resources. Adding a
// resource type only requires adding it here; it then falls into both the
// collection and object groups.
var ResourceTypes = []string{
	"issues",
	"solutions",
	"proposals",
	"topics",
	"media",
	"suggestions",
	"endorsements",
	"votes",
	"organizations",
	"regions",
}

var resourceTypeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ResourceTypes))
	for _, t := range ResourceTypes {
		set[t] = struct{}{}
	}
	return set
}()

// Classify maps a request path onto a Resource. /api/v1/<type> is a
// collection route; /api/v1/<type>/<id> and anything below it is an object
// route. Unknown paths return false.
func Classify(path string) (Resource, bool) {
	if !strings.HasPrefix(path, APIPrefix) {
		return Resource{}, false
	}
	rest := strings.Trim(strings.TrimPrefix(path, APIPrefix), "/")
	if rest == "" {
		return Resource{}, false
	}
	parts := strings.Split(rest, "/")
	if _, ok := resourceTypeSet[parts[0]]; !ok {
		return Resource{}, false
	}
	if len(parts) == 1 {
		return Resource{Type: parts[0], Class: ClassCollection}, true
	}
	if parts[1] == "" {
		return Resource{}, false
	}
	return Resource{Type: parts[0], Class: ClassObject, ID: parts[1]}, true
}
