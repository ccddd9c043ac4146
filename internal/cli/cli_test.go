package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fieldline/routecache"
	"github.com/fieldline/routecache/config"
	"github.com/fieldline/routecache/geo"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func nominatim(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"35.6762","lon":"139.6503"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	cfg := config.Default()
	mutate(&cfg)
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routecache.json")
	out, err := run(t, "sample-config", path)
	require.NoError(t, err)
	require.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.APIKeys, 1)
}

func TestGeocodeInProcess(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Nominatim.URL = nominatim(t).URL })

	out, err := run(t, "--config", path, "geocode", "Tokyo", "Station")
	require.NoError(t, err)
	require.Equal(t, "35.6762,139.6503", strings.TrimSpace(out))
}

func TestDriveTimeInProcess(t *testing.T) {
	out, err := run(t, "drivetime", "--from", "35.6762,139.6503", "--to", "35.4437,139.6380")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "min"), out)
}

func TestDriveTimeRejectsBadPoint(t *testing.T) {
	_, err := run(t, "drivetime", "--from", "north", "--to", "1,1")
	require.ErrorIs(t, err, geo.ErrInvalidPoint)
}

func TestGeocodeAgainstServer(t *testing.T) {
	cfg := config.Default()
	cfg.Nominatim.URL = nominatim(t).URL
	a, err := newApp(cfg, nil, nil, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := routecache.NewServer(routecache.DefaultOptions()...)
	srv.RegisterLookup(a.service)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	out, err := run(t, "geocode", "--server", lis.Addr().String(), "Tokyo")
	require.NoError(t, err)
	require.Equal(t, "35.6762,139.6503", strings.TrimSpace(out))
}

func TestPolicies(t *testing.T) {
	res := policies(config.Default())

	for name, group := range map[string]string{
		"/routecache.Admin/Purge":    "admin",
		"DELETE /v1/cache/:name":     "admin",
		"GET /v1/cache/stats":        "admin",
		"/routecache.Lookup/Geocode": "lookup",
		"GET /v1/drivetime":          "lookup",
	} {
		m, ok := res.Resolve(name)
		require.True(t, ok, name)
		require.Equal(t, group, m.Group, name)
	}

	m, _ := res.Resolve("/routecache.Admin/Stats")
	require.True(t, m.Policy.AuthRequired)
	require.Equal(t, "admin", m.Policy.Scope)

	open := config.Default()
	open.AdminScope = ""
	m, _ = policies(open).Resolve("/routecache.Admin/Purge")
	require.False(t, m.Policy.AuthRequired)
}

func TestKeyStore(t *testing.T) {
	cfg := config.Default()
	cfg.APIKeys = []config.APIKey{{Key: "secret-key-1234", Tenant: "acme", Scopes: []string{"admin"}}}

	actor, err := keyStore(cfg).Authenticate("secret-key-1234")
	require.NoError(t, err)
	require.Equal(t, "acme", actor.Tenant)
	require.Equal(t, "****1234", actor.KeyID)
	require.True(t, actor.HasScope("admin"))
}
