package socialgraph

import (
	"github.com/google/uuid"
)

// Distances between a user and a resource, lower is stronger.
const (
	// own profile
	DistanceOwn = 0
	// own post, or profile of the user visited right after
	DistanceNear = 1
	// observed two visits away
	DistanceFar = 2
)

// User represent an account discovered by the crawler on a social network.
type User struct {
	// unique identifier, time ordered so ordering by ID follows discovery order
	ID uuid.UUID `db:"id"`

	// (Network, ExternalID) identifies the user across crawls
	Network    string `db:"network"`
	ExternalID string `db:"external_id"`

	Handle string `db:"handle"`
	URL    string `db:"url"`

	// set once the user leaves the crawl window
	Completed bool `db:"completed"`
}

// Location is the geotag carried by a resource.
type Location struct {
	Name string
	Lat  float64
	Lon  float64
}

// Resource is a piece of crawled content, a profile bio or a post.
type Resource struct {
	ID uuid.UUID

	Network    string
	ExternalID string

	URL  string
	Text string

	// nil when the content is not geotagged
	Location *Location
}

// LocationName returns the location name or "" when there is none.
func (r *Resource) LocationName() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.Name
}

// Edge links a user to a resource with the distance they had in the crawl
// window when the resource was discovered.
type Edge struct {
	//unique identifier
	ID uuid.UUID

	UserID     uuid.UUID
	ResourceID uuid.UUID

	Distance int
}

// WeightedEntity is a named concept extracted from text with its relevance.
type WeightedEntity struct {
	Name string
	Rho  float64
}

// Annotation is what text analysis attaches to a resource, and also the
// shape of an analyzed query.
type Annotation struct {
	Stems    []string
	Entities []WeightedEntity
}

type ScoredResource struct {
	Resource
	Score float64
}

type ScoredUser struct {
	User
	Score float64 `db:"score"`
}

// Stats is the progress report of a crawl.
type Stats struct {
	Users          int `db:"users"`
	CompletedUsers int `db:"completed_users"`
	Resources      int `db:"resources"`
}
