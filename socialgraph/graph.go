package socialgraph

import (
	"context"

	"github.com/google/uuid"
)

//defined the graph operation
/*
1. insert users discovered by the crawler, or return the one already known
2. insert English resources together with their stems and entities
3. link users and resources with a distance
4. pick the next uncompleted user and mark users completed
5. stem/entity frequency statistics used by the resource scorer
6. persist resource and user scores, query the best ranked rows
7. iterate users and resources for the batch scoring passes
*/
// Graph is the single source of truth shared by the crawler and the ranking
// engine; both only ever talk through it.
type Graph interface {
	// CountUsers returns how many users of network are known.
	CountUsers(ctx context.Context, network string) (int, error)

	// FindUncompletedUser returns any user of network that is not completed
	// and whose ID is not in exclude. ErrNotFound when no such user exists.
	FindUncompletedUser(ctx context.Context, network string, exclude []uuid.UUID) (*User, error)

	// UpsertUser inserts user if its (network, externalID) is unknown.
	// Otherwise user is overwritten with the stored row. created reports
	// which case happened.
	UpsertUser(ctx context.Context, user *User) (created bool, err error)

	// MarkCompleted flags the user as completed.
	MarkCompleted(ctx context.Context, userID uuid.UUID) error

	// LookupResource returns the resource with the given identity or ErrNotFound.
	LookupResource(ctx context.Context, network, externalID string) (*Resource, error)

	// InsertResource persists res with its stems and entities. When a
	// resource with the same identity already exists nothing is written,
	// res is overwritten with the stored row and created is false.
	InsertResource(ctx context.Context, res *Resource, ann Annotation) (created bool, err error)

	// UpsertEdge links a user to a resource at a distance. ErrUnknownEdgeEndpoints
	// when either end is missing.
	UpsertEdge(ctx context.Context, edge *Edge) error

	// EdgeDistance returns the smallest distance between user and resource,
	// ErrNotFound when they are not linked.
	EdgeDistance(ctx context.Context, userID, resourceID uuid.UUID) (int, error)

	CountStemOccurrences(ctx context.Context, resourceID uuid.UUID, stem string) (int, error)
	CountStemGlobal(ctx context.Context, stem string) (int, error)
	CountEntityOccurrences(ctx context.Context, resourceID uuid.UUID, entity string) (int, error)
	CountEntityGlobal(ctx context.Context, entity string) (int, error)

	// AverageEntityRho is the mean rho of the resource links to entity, 0 if none.
	AverageEntityRho(ctx context.Context, resourceID uuid.UUID, entity string) (float64, error)

	UpsertResourceScore(ctx context.Context, resourceID uuid.UUID, score float64) error
	UpsertUserScore(ctx context.Context, userID uuid.UUID, score float64) error

	// TopResourcesByScore returns the scored resources linked to user, best first.
	TopResourcesByScore(ctx context.Context, userID uuid.UUID, limit int) ([]ScoredResource, error)

	// TopLocatedResourcesByScore is TopResourcesByScore restricted to
	// resources carrying a non-empty location name.
	TopLocatedResourcesByScore(ctx context.Context, userID uuid.UUID, limit int) ([]ScoredResource, error)

	// TopUsersByScore returns the scored users, best first.
	TopUsersByScore(ctx context.Context, limit int) ([]ScoredUser, error)

	//return user iterator to iterate users matching filter
	Users(ctx context.Context, filter UserFilter) (UserIterator, error)

	//return resource iterator to iterate every stored resource
	Resources(ctx context.Context) (ResourceIterator, error)

	Stats(ctx context.Context) (Stats, error)
}

// implemented by graph object that can be iterated
// the implementation detail is depend on underlying database technology
type Iterator interface {
	//advance the iterator , if not more item return false
	Next() bool

	// return last error encounterd by iterator
	Error() error

	//close release any resource associated with iterator
	Close() error
}

type UserIterator interface {
	Iterator

	//return currently fetched User
	User() *User
}

type ResourceIterator interface {
	Iterator

	// return currently fetched Resource
	Resource() *Resource
}

// UserFilter narrows the users returned by Graph.Users.
type UserFilter struct {
	// Network restricts to one social network when not empty.
	Network string

	// CompletedOnly skips users still inside (or ahead of) the crawl window.
	CompletedOnly bool
}
