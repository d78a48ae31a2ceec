package crawler

import (
	"context"
	"errors"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// ErrNoUncompletedUsers is returned by Step when the graph holds no user left
// to visit.
var ErrNoUncompletedUsers = errors.New("no uncompleted users")

// Source gives access to one social network. Errors are treated as
// transient and retried unless wrapped with retry.Permanent.
type Source interface {
	// Network names the social network, e.g. "IG".
	Network() string

	// FirstUser returns the seed of a crawl on an empty graph.
	FirstUser(ctx context.Context) (*socialgraph.User, error)

	// Profile returns the profile resource of user, nil when the user has none.
	Profile(ctx context.Context, user *socialgraph.User) (*socialgraph.Resource, error)

	// Posts returns the resources published by user, the profile excluded.
	Posts(ctx context.Context, user *socialgraph.User) ([]*socialgraph.Resource, error)

	// Followees returns the users followed by user.
	Followees(ctx context.Context, user *socialgraph.User) ([]*socialgraph.User, error)
}

// Analyzer is the text analysis a resource goes through before it is stored.
type Analyzer interface {
	ExpandLinks(ctx context.Context, text string) string
	IsEnglish(text string) bool
	Analyze(ctx context.Context, text string) socialgraph.Annotation
}
