package services

import (
	"context"
	"errors"
	"strings"

	"github.com/skyreserve/flight-booking-backend/internal/database"
	"github.com/skyreserve/flight-booking-backend/internal/models"
	"github.com/skyreserve/flight-booking-backend/pkg/search"
)

// ResolvedRoute is a flight identifier expanded to concrete legs plus the
// per-seat price summed across them.
type ResolvedRoute struct {
	FlightType models.FlightType
	Legs       []string
	UnitPrice  float64
}

// SearchFacade resolves an opaque flight identifier (direct flight id or
// CF_-prefixed computed route) into its ordered leg list and unit price.
type SearchFacade interface {
	Resolve(ctx context.Context, identifier string) (*ResolvedRoute, error)
}

// RouteResolver implements SearchFacade. Direct identifiers resolve against
// the local flight store; computed identifiers are delegated to the external
// route-search service.
type RouteResolver struct {
	flightRepo   *database.FlightRepository
	searchClient *search.Client
}

// NewRouteResolver creates a new RouteResolver. searchClient may be nil when
// no search service is configured; computed routes then resolve as invalid.
func NewRouteResolver(flightRepo *database.FlightRepository, searchClient *search.Client) *RouteResolver {
	return &RouteResolver{
		flightRepo:   flightRepo,
		searchClient: searchClient,
	}
}

// Resolve expands the identifier. Unknown or unbookable identifiers return
// an INVALID_FLIGHT error; an unreachable search service returns
// SERVICE_UNAVAILABLE.
func (r *RouteResolver) Resolve(ctx context.Context, identifier string) (*ResolvedRoute, error) {
	if strings.HasPrefix(identifier, models.ComputedRoutePrefix) {
		return r.resolveComputed(ctx, identifier)
	}

	flight, err := r.flightRepo.GetByID(identifier)
	if err != nil {
		return nil, err
	}
	if flight == nil || !flight.IsBookable() {
		return nil, models.NewInvalidFlightError(identifier)
	}

	return &ResolvedRoute{
		FlightType: models.FlightTypeDirect,
		Legs:       []string{flight.FlightID},
		UnitPrice:  flight.Price,
	}, nil
}

func (r *RouteResolver) resolveComputed(ctx context.Context, identifier string) (*ResolvedRoute, error) {
	if r.searchClient == nil {
		return nil, models.NewInvalidFlightError(identifier)
	}

	route, err := r.searchClient.ResolveRoute(ctx, identifier)
	if err != nil {
		if errors.Is(err, search.ErrRouteNotFound) {
			return nil, models.NewInvalidFlightError(identifier)
		}
		return nil, models.NewServiceUnavailableError("search")
	}

	return &ResolvedRoute{
		FlightType: models.FlightTypeComputed,
		Legs:       route.Legs,
		UnitPrice:  route.UnitPrice,
	}, nil
}
