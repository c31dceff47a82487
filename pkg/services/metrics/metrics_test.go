package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/cryptogogue/volwal/pkg/config"
	_ "github.com/cryptogogue/volwal/pkg/crafting"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestPrometheusService(t *testing.T) {
	s := NewPrometheusService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"127.0.0.1:0", "127.0.0.1:0"},
	}, zaptest.NewLogger(t))
	require.Equal(t, "Prometheus", s.Name())
	require.NoError(t, s.Start())
	t.Cleanup(s.ShutDown)

	addrs := s.Addresses()
	require.Len(t, addrs, 2)
	for _, addr := range addrs {
		code, body := get(t, "http://"+addr+"/metrics")
		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, "volwal_crafting_binding_rebuilds_total")
		require.Contains(t, body, "volwal_crafting_composed_invocations_total")
	}

	s.ShutDown()
	require.Nil(t, s.Addresses())
	_, err := http.Get("http://" + addrs[0] + "/metrics")
	require.Error(t, err)
}

func TestPprofService(t *testing.T) {
	s := NewPprofService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"127.0.0.1:0"},
	}, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	t.Cleanup(s.ShutDown)

	code, _ := get(t, "http://"+s.Addresses()[0]+"/debug/pprof/cmdline")
	require.Equal(t, http.StatusOK, code)
}

func TestServiceDisabled(t *testing.T) {
	s := NewPrometheusService(config.BasicService{
		Addresses: []string{"127.0.0.1:0"},
	}, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	require.Empty(t, s.Addresses())
	s.ShutDown()
}

func TestServiceBindFailure(t *testing.T) {
	s := NewPrometheusService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"127.0.0.1:0", "256.0.0.1:1"},
	}, zaptest.NewLogger(t))
	require.Error(t, s.Start())
	require.Empty(t, s.Addresses())
}
