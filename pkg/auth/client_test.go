package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ROR44/firebase-admin-go/pkg/apierror"
	"github.com/ROR44/firebase-admin-go/pkg/transport"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

func TestGetUser(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/project-id/accounts:lookup", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"users": [{
				"localId": "uid-1",
				"email": "user@example.com",
				"emailVerified": true,
				"displayName": "User One",
				"createdAt": "1618498000000",
				"lastLoginAt": "1618499000000"
			}]
		}`))
	}))
	defer srv.Close()

	client := getClient(t, srv)

	user, err := client.GetUser(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t,
		&UserRecord{
			UID:                "uid-1",
			Email:              "user@example.com",
			EmailVerified:      true,
			DisplayName:        "User One",
			CreationTimestamp:  1618498000000,
			LastLogInTimestamp: 1618499000000,
		},
		user)
}

func TestGetUserNotFound(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users": []}`))
	}))
	defer srv.Close()

	client := getClient(t, srv)

	_, err := client.GetUser(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, apierror.NotFound, apierror.Kind(err))
	require.Contains(t, err.Error(), "missing")
}

func TestGetUserBackendError(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"status":"PERMISSION_DENIED","message":"nope"}}`))
	}))
	defer srv.Close()

	client := getClient(t, srv)

	_, err := client.GetUser(context.Background(), "uid-1")
	require.Error(t, err)
	require.Equal(t, apierror.PermissionDenied, apierror.Kind(err))
	require.Equal(t, "nope", err.Error())
}

func TestUsersPagination(t *testing.T) {

	var gotTokens []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/projects/project-id/accounts:batchGet", r.URL.Path)
		require.Equal(t, "1000", r.URL.Query().Get("maxResults"))

		token := r.URL.Query().Get("nextPageToken")
		gotTokens = append(gotTokens, token)

		switch token {
		case "":
			_, _ = w.Write([]byte(`{
				"users": [
					{"localId": "uid-1", "passwordHash": "hash-1", "salt": "salt-1"},
					{"localId": "uid-2"}
				],
				"nextPageToken": "page-2"
			}`))
		case "page-2":
			_, _ = w.Write([]byte(`{"users": [{"localId": "uid-3"}]}`))
		default:
			t.Errorf("unexpected page token: %q", token)
		}
	}))
	defer srv.Close()

	client := getClient(t, srv)

	it := client.Users(context.Background(), "")

	var uids []string
	for {
		user, err := it.Next()
		if err == iterator.Done {
			break
		}
		require.NoError(t, err)
		uids = append(uids, user.UID)

		if user.UID == "uid-1" {
			require.Equal(t, "hash-1", user.PasswordHash)
			require.Equal(t, "salt-1", user.PasswordSalt)
		}
	}

	require.Equal(t, []string{"uid-1", "uid-2", "uid-3"}, uids)
	require.Equal(t, []string{"", "page-2"}, gotTokens)

	// drained iterators stay done
	_, err := it.Next()
	require.Equal(t, iterator.Done, err)
}

func TestUsersResumeFromToken(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "page-2", r.URL.Query().Get("nextPageToken"))
		_, _ = w.Write([]byte(`{"users": [{"localId": "uid-3"}]}`))
	}))
	defer srv.Close()

	client := getClient(t, srv)

	it := client.Users(context.Background(), "page-2")

	user, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, "uid-3", user.UID)

	_, err = it.Next()
	require.Equal(t, iterator.Done, err)
}

func TestUsersBackendError(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := getClient(t, srv)

	it := client.Users(context.Background(), "")

	_, err := it.Next()
	require.Error(t, err)
	require.Equal(t, apierror.Internal, apierror.Kind(err))
}

func getClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	tr := transport.NewClient(srv.Client(), transport.StaticTokenSource("test-token"))

	client, err := NewClient(tr, "project-id", WithEndpoint(srv.URL+"/v1"))
	require.NoError(t, err)

	return client
}
