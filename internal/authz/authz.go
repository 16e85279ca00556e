// Package authz decides who may do what to which project. Verification
// of the presented token happens before this package is reached; the
// guard re-checks the subject against the database because role and
// active status can change after a token was issued.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
	"github.com/SciData-Delivery/Delivery-Service/internal/token"
)

// facility users upload and manage, end users download.
var (
	facilityVerbs = map[models.Verb]bool{models.VerbPut: true, models.VerbLs: true, models.VerbRm: true}
	endUserVerbs  = map[models.Verb]bool{models.VerbGet: true, models.VerbLs: true}
)

// Grant is the capability produced by a successful authorization: the
// verified subject plus a short-lived token bound to exactly one
// project, which downstream operations must present.
type Grant struct {
	User      models.User
	ProjectID string
	Verb      models.Verb
	Token     string
}

// Guard applies the role/verb matrix and project membership checks.
type Guard struct {
	store    storage.Store
	issuer   *token.Issuer
	grantTTL time.Duration
}

func NewGuard(store storage.Store, issuer *token.Issuer, grantTTL time.Duration) *Guard {
	return &Guard{store: store, issuer: issuer, grantTTL: grantTTL}
}

// CurrentUser resolves verified claims to a live subject. A subject
// that no longer exists or is inactive is an authentication failure,
// not a permission one: the client must log in again, not retry.
func (g *Guard) CurrentUser(ctx context.Context, claims *token.Claims) (models.User, error) {
	user, err := g.store.GetUserByPublicID(ctx, claims.Subject())
	if errors.Is(err, errvalues.ErrNotFound) {
		return models.User{}, fmt.Errorf("%w: subject %s does not exist", errvalues.ErrUnauthenticated, claims.Subject())
	}
	if err != nil {
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, fmt.Errorf("%w: subject %s is inactive", errvalues.ErrUnauthenticated, user.Username)
	}
	return user, nil
}

// Authorize runs the full policy chain for a requested project + verb
// and, on success, mints the narrowed grant token. An unknown project
// returns the same denial as missing membership so callers cannot
// probe for project existence.
func (g *Guard) Authorize(ctx context.Context, claims *token.Claims, projectID string, verb models.Verb) (Grant, error) {
	if projectID == "" {
		return Grant{}, fmt.Errorf("%w: project id missing", errvalues.ErrForbidden)
	}

	// A token already carrying a grant must match the requested project
	// and be marked verified; anything else never escalates.
	if claims.ProjectID != "" && !claims.HasGrant(projectID) {
		return Grant{}, fmt.Errorf("%w: token not valid for project %s", errvalues.ErrForbidden, projectID)
	}

	user, err := g.CurrentUser(ctx, claims)
	if err != nil {
		return Grant{}, err
	}

	allowed := endUserVerbs
	if user.IsFacility {
		allowed = facilityVerbs
	}
	if !allowed[verb] {
		return Grant{}, fmt.Errorf("%w: attempted to %s in project %s", errvalues.ErrForbidden, verb, projectID)
	}

	member, err := g.store.IsProjectMember(ctx, projectID, user.PublicID)
	if err != nil {
		return Grant{}, err
	}
	if !member {
		return Grant{}, fmt.Errorf("%w: project access denied", errvalues.ErrForbidden)
	}

	granted, err := g.issuer.IssueGrant(user.PublicID, user.IsFacility, projectID, g.grantTTL)
	if err != nil {
		return Grant{}, err
	}

	return Grant{User: user, ProjectID: projectID, Verb: verb, Token: granted}, nil
}

// RequireGrant checks that verified claims carry a grant for the given
// project, for endpoints that only accept grant tokens minted by
// Authorize. Returns the live subject.
func (g *Guard) RequireGrant(ctx context.Context, claims *token.Claims, projectID string) (models.User, error) {
	if projectID == "" {
		return models.User{}, fmt.Errorf("%w: project id missing", errvalues.ErrForbidden)
	}
	if !claims.HasGrant(projectID) {
		return models.User{}, fmt.Errorf("%w: access to project %s not verified", errvalues.ErrForbidden, projectID)
	}
	return g.CurrentUser(ctx, claims)
}
