package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zjrosen/taskdeck/internal/apierr"
	"github.com/zjrosen/taskdeck/internal/collection"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/transport"
)

// PathUsers is the admin user collection endpoint.
const PathUsers = "/users"

// ErrUnsupported is returned by Create: users are created by registering.
var ErrUnsupported = errors.New("users: creating users is not supported, use register")

// Fallback messages when the server gives none.
const (
	msgFetchFailed  = "Failed to fetch users."
	msgUpdateFailed = "Failed to update user."
	msgDeleteFailed = "Failed to delete user."
)

// Requester issues API requests.
type Requester interface {
	Request(ctx context.Context, method, path string, opts transport.Options) (*transport.Response, error)
}

// API is the admin user resource. It implements collection.Lister[User]
// and collection.Mutator[User, struct{}, Patch].
type API struct {
	requester Requester
}

// NewAPI creates the user resource over r.
func NewAPI(r Requester) *API {
	return &API{requester: r}
}

// List fetches all users. The server returns a plain array, so pages are
// cut locally using q.Page and q.Limit.
func (a *API) List(ctx context.Context, q query.Query) (collection.Page[User], error) {
	resp, err := a.requester.Request(ctx, http.MethodGet, PathUsers, transport.Options{})
	if err != nil {
		return collection.Page[User]{}, apierr.WithFallback(err, msgFetchFailed)
	}
	var all []User
	if err := resp.Decode(&all); err != nil {
		return collection.Page[User]{}, fmt.Errorf("listing users: %w", err)
	}
	return paginate(all, q.Page, q.Limit), nil
}

// Create always fails with ErrUnsupported.
func (a *API) Create(context.Context, struct{}) (User, error) {
	return User{}, ErrUnsupported
}

// Update sends p as JSON.
func (a *API) Update(ctx context.Context, id string, p Patch) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := a.requester.Request(ctx, http.MethodPut, PathUsers+"/"+id, transport.Options{Body: p}); err != nil {
		return apierr.WithFallback(err, msgUpdateFailed)
	}
	return nil
}

// Delete removes the user with id.
func (a *API) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if _, err := a.requester.Request(ctx, http.MethodDelete, PathUsers+"/"+id, transport.Options{}); err != nil {
		return apierr.WithFallback(err, msgDeleteFailed)
	}
	return nil
}

func paginate(all []User, page, limit int) collection.Page[User] {
	total := len(all)
	if limit < 1 {
		limit = total
	}
	pages := 0
	if total > 0 && limit > 0 {
		pages = (total + limit - 1) / limit
	}
	if page < 1 {
		page = 1
	}

	items := []User{}
	if start := (page - 1) * limit; start < total {
		items = append(items, all[start:min(start+limit, total)]...)
	}
	return collection.Page[User]{
		Items:      items,
		Pagination: collection.Pagination{TotalItems: total, TotalPages: pages},
	}
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("invalid user id %q", id)
	}
	return nil
}
