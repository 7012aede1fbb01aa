package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "response", nil
}

func TestUnaryServerInterceptor_RecordsRequest(t *testing.T) {
	collector := NewCollector()
	interceptor := UnaryServerInterceptor(collector, nil, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/riskmap.v1.RiskMapService/InitWidgets"}

	for i := 0; i < 5; i++ {
		resp, err := interceptor(context.Background(), "request", info, okHandler)
		require.NoError(t, err)
		assert.Equal(t, "response", resp)
	}

	apiMetrics := collector.GetAPIMetrics()
	assert.Equal(t, uint64(5), apiMetrics.RequestCounts[info.FullMethod])
	assert.Contains(t, apiMetrics.TotalDurationSeconds, info.FullMethod)
	assert.NotContains(t, apiMetrics.ErrorCounts, info.FullMethod)
}

func TestUnaryServerInterceptor_RecordsError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	collector := NewCollector()
	interceptor := UnaryServerInterceptor(collector, nil, zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/riskmap.v1.RiskMapService/ReadCatalog"}

	expectedErr := status.Error(codes.NotFound, "catalog not found")
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, expectedErr
	}

	_, err := interceptor(context.Background(), "request", info, handler)
	assert.Same(t, expectedErr, err)

	assert.Equal(t, uint64(1), collector.GetAPIMetrics().ErrorCounts[info.FullMethod])

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "NotFound", entries[0].ContextMap()["code"])
}

func TestUnaryServerInterceptor_WithPrometheusExporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewCollector()
	exporter := NewPrometheusExporter(collector, reg)
	interceptor := UnaryServerInterceptor(collector, exporter, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/riskmap.v1.RiskMapService/ExpandRelation"}

	_, err := interceptor(context.Background(), "request", info, okHandler)
	require.NoError(t, err)
	_, err = interceptor(context.Background(), "request", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(exporter.grpcRequests.WithLabelValues(info.FullMethod)))
	assert.Equal(t, 1.0, testutil.ToFloat64(exporter.grpcErrors.WithLabelValues(info.FullMethod)))
}
