package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewClient(logger.NewNop(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, rdb.Close())
}

func TestNewClientRequiresAddr(t *testing.T) {
	_, err := NewClient(logger.NewNop(), Config{})
	require.Error(t, err)

	_, err = NewClient(nil, Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
