//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/internal/dbtest/postgrestest"
	"github.com/openkcm/session-client/internal/dbtest/valkeytest"
)

const (
	testUsername = "alice"
	testPassword = "secret" // NOSONAR
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, name string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every test runs the
	// process in its own subdirectory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, name+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	istat.Cfg.Storage.Type = config.StorageFile
	istat.Cfg.Storage.Directory = filepath.Join(istat.Procdir, "state")

	return istat
}

// PrepareTokenServer starts a token endpoint that accepts testUsername and
// testPassword.
func (istat *infraStat) PrepareTokenServer(t *testing.T) {
	t.Helper()

	signKey := []byte("0123456789abcdef0123456789abcdef") // NOSONAR
	mint := func(c gojwt.MapClaims) string {
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(signKey)
		require.NoError(t, err)
		return token
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		grant := r.PostForm.Get("grant_type")
		validPassword := grant == "password" &&
			r.PostForm.Get("username") == testUsername && r.PostForm.Get("password") == testPassword
		validRefresh := grant == "refresh_token" && r.PostForm.Get("refresh_token") != ""
		if !validPassword && !validRefresh {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}

		now := time.Now()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": mint(gojwt.MapClaims{
				"sub":      "id-" + testUsername,
				"username": testUsername,
				"email":    testUsername + "@example.com",
				"groups":   []string{"users"},
				"exp":      now.Add(15 * time.Minute).Unix(),
			}),
			"refresh_token": mint(gojwt.MapClaims{
				"sub": "id-" + testUsername,
				"exp": now.Add(time.Hour).Unix(),
			}),
			"token_type": "Bearer",
			"expires_in": 900,
		})
	}))
	istat.closeFuncs = append(istat.closeFuncs, func(context.Context) { server.Close() })

	istat.Cfg.Exchange.TokenEndpoint = server.URL
	istat.Cfg.Exchange.ClientAuth = config.ClientAuth{Type: config.ClientAuthInsecure, ClientID: "session-client"}
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Cfg.Storage.Type = config.StoragePostgres
	istat.Cfg.Database.Name = postgrestest.DBName
	istat.Cfg.Database.User = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBUser}
	istat.Cfg.Database.Password = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBPassword}
	istat.Cfg.Database.Host = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBHost}
	istat.Cfg.Database.Port = pgPort.Port()
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.Storage.Type = config.StorageValKey
	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: net.JoinHostPort("localhost", vkPort.Port())}
	istat.Cfg.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareConfig writes the config for running the test into ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	cfgMap := make(map[string]any)
	err := mapstructure.Decode(istat.Cfg, &cfgMap)
	require.NoError(t, err, "failed to decode config")

	data, err := yaml.Marshal(cfgMap)
	require.NoError(t, err, "failed to encode config")

	err = os.WriteFile(istat.ConfigFilePath, data, fs.ModePerm)
	require.NoError(t, err, "failed to write config")
}

// Run executes the binary in Procdir and returns its combined output.
func (istat *infraStat) Run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, filepath.Join(wd, binary), args...)
	cmd.Dir = istat.Procdir
	cmd.Stdout = &out
	cmd.Stderr = &out

	err = cmd.Run()
	return out.String(), err
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
