package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibhor121/mastersunion/internal/api"
	"github.com/vibhor121/mastersunion/internal/database/models"
	"github.com/vibhor121/mastersunion/internal/mail"
	"github.com/vibhor121/mastersunion/internal/testutil"
	"github.com/vibhor121/mastersunion/pkg/util"
)

type testEnv struct {
	*testutil.TestSetup
	router *api.Router
	emails *testutil.FakeEmailQueue
}

func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	tc := testutil.NewTestContext(t)
	composer, err := mail.NewComposer()
	require.NoError(t, err)

	emails := &testutil.FakeEmailQueue{}
	router := api.NewRouter(api.RouterConfig{
		DB:         tc.DB,
		Logger:     util.DiscardLogger(),
		JWTService: tc.JWTService,
		Emails:     emails,
		Composer:   composer,
	})
	t.Cleanup(router.Close)

	return &testEnv{TestSetup: tc, router: router, emails: emails}
}

// do sends body as user (nil for an anonymous request) and returns the
// recorded response.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, user *models.User) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if user != nil {
		req = testutil.AuthenticatedRequest(t, method, path, body, e.Token(t, user))
	} else {
		req = testutil.UnauthenticatedRequest(t, method, path, body)
	}

	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}
