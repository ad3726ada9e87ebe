package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketCountManagement/internal/auth"
	"ticketCountManagement/internal/config"
	"ticketCountManagement/internal/db"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "boletas", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "hash-password", "rollback"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	dev := cmd.PersistentFlags().Lookup("dev")
	require.NotNil(t, dev)
	assert.Equal(t, "false", dev.DefValue)
	env := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, env)
	assert.Equal(t, "[.env]", env.DefValue)

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	port := serve.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "s3cret\n", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	ok, err := auth.VerifyPassword("s3cret", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestMigrateNeedsTarget(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATA_DIR", t.TempDir())
	_, err := run(t, "", "--dev", "--env-file", "missing.env", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres url required")
}

func TestRollback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATA_DIR", dir)

	out, err := run(t, "", "--dev", "--env-file", "missing.env", "rollback")
	require.NoError(t, err)
	assert.Contains(t, out, "applied migrations: [1 2 3 4]")

	h, err := db.Open(filepath.Join(dir, "data.db"))
	require.NoError(t, err)
	defer h.Close()
	versions, err := db.AppliedVersions(h)
	require.NoError(t, err)
	// reopening reapplies the reverted migration
	assert.Equal(t, []int{1, 2, 3, 4, 5}, versions)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	_, err := loadConfig(&RootOptions{EnvFiles: []string{"missing.env"}})
	assert.Error(t, err)
	cfg, err := loadConfig(&RootOptions{EnvFiles: []string{"missing.env"}, Dev: true})
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Auth.SessionSecret)
}

func TestRunServe(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("GRPC_ADDRESS", "")
	t.Setenv("CATALOG_FILE", "")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("ADMIN_PASSWORD", "boot-pw")
	cfg, err := config.LoadWithDefaults()
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, lis) }()

	base := "http://" + lis.Addr().String()
	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(base + "/healthz")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	// the bootstrapped admin can sign in
	resp, err = http.Post(base+"/api/token", "application/json", strings.NewReader(`{"username":"admin","password":"boot-pw"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
