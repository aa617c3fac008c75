package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightsurety/internal/config"
	"github.com/yegors/flightsurety/pkg/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, "Commit: unknown")
}

func TestConfigPrintsEffectiveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080

[ledger]
insurance_cap = "0.5 ether"
`), 0o644))
	t.Setenv("FLIGHTSURETY_ORACLES_COUNT", "7")

	out, err := run(t, "config", "--config", path, "--log-level", "debug")
	require.NoError(t, err)

	var cfg config.Config
	_, err = toml.Decode(out, &cfg)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Oracles.Count)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0.5 ether", cfg.Ledger.InsuranceCap.String())
}

func TestConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nportt = 1\n"), 0o644))

	_, err := run(t, "config", "--config", path)
	assert.ErrorContains(t, err, "unknown config keys")
}

func TestProvisionAirlinesPrependsFirstAirline(t *testing.T) {
	cfg := config.Default()
	cfg.Provision.AirlineCount = 3

	airlines, err := provisionAirlines(cfg)
	require.NoError(t, err)
	require.Len(t, airlines, 3)
	assert.Equal(t, cfg.Ledger.FirstAirlineAddress(), airlines[0])

	cfg.Provision.Airlines = []string{"0x0000000000000000000000000000000000000A02"}
	airlines, err = provisionAirlines(cfg)
	require.NoError(t, err)
	assert.Len(t, airlines, 2)
}

func TestBootstrapProvisionsLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Storage.DatabasePath = ":memory:"
	cfg.Oracles.Count = 4
	cfg.Provision.AirlineCount = 2
	cfg.Provision.FlightsPerAirline = 1

	svc, err := buildServices(cfg, logger.NewNop())
	require.NoError(t, err)
	defer svc.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bootstrap(ctx, cfg, svc, logger.NewNop()))

	ledger := svc.app.Ledger()
	assert.Equal(t, 2, ledger.AirlinesCount())
	assert.Len(t, ledger.FlightCodes(), 2)
	for _, w := range svc.pool.Workers() {
		_, ok := w.Indexes()
		assert.True(t, ok)
	}
}
