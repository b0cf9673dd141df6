package firebase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ROR44/firebase-admin-go/pkg/transport"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {

	serviceAccount := writeTempFile(t, `{"project_id":"project-id-123"}`)

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
project-id: project-id-123
service-account: `+serviceAccount+`
timeout: 3s
`)))

	cfg, err := NewConfig(v)
	require.NoError(t, err)
	require.Equal(t,
		&Config{
			ProjectID:      "project-id-123",
			ServiceAccount: serviceAccount,
			Timeout:        3 * time.Second,
		},
		cfg)
}

func TestNewConfigMissingServiceAccountFile(t *testing.T) {

	v := viper.New()
	v.Set("service-account", filepath.Join(t.TempDir(), "nope.json"))

	_, err := NewConfig(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "path to service-account")
}

func TestNewAppWithTokenSource(t *testing.T) {

	app, err := NewApp(
		&Config{ProjectID: "project-id-123"},
		WithTokenSource(transport.StaticTokenSource("token")))
	require.NoError(t, err)
	require.Equal(t, "project-id-123", app.ProjectID())

	msg, err := app.Messaging()
	require.NoError(t, err)
	require.NotNil(t, msg)

	authClient, err := app.Auth()
	require.NoError(t, err)
	require.NotNil(t, authClient)
}

func TestNewAppRequiresCredentials(t *testing.T) {

	_, err := NewApp(&Config{ProjectID: "project-id-123"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "service-account file or token source")
}

func TestNewAppRequiresProjectID(t *testing.T) {

	_, err := NewApp(nil, WithTokenSource(transport.StaticTokenSource("token")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "project id")
}

func TestProjectIDFromServiceAccount(t *testing.T) {

	id, err := projectIDFromServiceAccount([]byte(`{"project_id":"p-1","type":"service_account"}`))
	require.NoError(t, err)
	require.Equal(t, "p-1", id)

	_, err = projectIDFromServiceAccount([]byte(`{}`))
	require.Error(t, err)

	_, err = projectIDFromServiceAccount([]byte(`not json`))
	require.Error(t, err)
}

func TestReadServiceAccount(t *testing.T) {

	path := writeTempFile(t, `{"project_id":"p-1"}`)

	data, err := readServiceAccount(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"project_id":"p-1"}`, string(data))

	_, err = readServiceAccount(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
