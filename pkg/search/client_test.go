package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/routes/CF_204", r.URL.Path)
			w.Write([]byte(`{"route_id":"CF_204","legs":["UL-300","UL-301"],"unit_price":610.00}`))
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL})
		route, err := client.ResolveRoute(ctx, "CF_204")
		require.NoError(t, err)
		assert.Equal(t, "CF_204", route.RouteID)
		assert.Equal(t, []string{"UL-300", "UL-301"}, route.Legs)
		assert.Equal(t, 610.00, route.UnitPrice)
	})

	t.Run("Not Found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL})
		_, err := client.ResolveRoute(ctx, "CF_999")
		assert.ErrorIs(t, err, ErrRouteNotFound)
	})

	t.Run("Empty Legs Rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"route_id":"CF_204","legs":[],"unit_price":610.00}`))
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL})
		_, err := client.ResolveRoute(ctx, "CF_204")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no legs")
	})

	t.Run("Server Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(Config{BaseURL: srv.URL})
		_, err := client.ResolveRoute(ctx, "CF_204")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}
