package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
)

func TestPoolConfigUsesOptions(t *testing.T) {
	opts := PoolOptions{MaxConns: 25, MinConns: 4, PingTimeout: time.Second}.withDefaults()
	cfg, err := poolConfig("postgres://app:pw@localhost:5432/vitacare", opts)
	require.NoError(t, err)

	assert.Equal(t, int32(25), cfg.MaxConns)
	assert.Equal(t, int32(4), cfg.MinConns)
	assert.Equal(t, "vitacare-orchestrator", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolOptionsDefaults(t *testing.T) {
	opts := PoolOptions{MinConns: 50}.withDefaults()
	assert.Equal(t, int32(10), opts.MaxConns)
	assert.Equal(t, int32(10), opts.MinConns)
	assert.Equal(t, 5*time.Second, opts.PingTimeout)
}

func TestPoolConfigKeepsDSNApplicationName(t *testing.T) {
	cfg, err := poolConfig("postgres://localhost/vitacare?application_name=seed", PoolOptions{}.withDefaults())
	require.NoError(t, err)
	assert.Equal(t, "seed", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigRejectsBadDSN(t *testing.T) {
	_, err := poolConfig("postgres://localhost:notaport/db", PoolOptions{}.withDefaults())
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}
