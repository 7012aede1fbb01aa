package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC interceptor that records metrics for each request.
// Failed requests are logged with their status code when logger is set.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		method := info.FullMethod

		collector.RecordRequest(method)
		if exporter != nil {
			exporter.RecordRequest(method)
		}

		resp, err := handler(ctx, req)

		elapsed := time.Since(start)
		collector.RecordDuration(method, elapsed.Seconds())
		if exporter != nil {
			exporter.RecordDuration(method, elapsed.Seconds())
		}

		if err != nil {
			collector.RecordError(method)
			if exporter != nil {
				exporter.RecordError(method)
			}
			logger.Warn("request failed",
				zap.String("method", method),
				zap.Stringer("code", status.Code(err)),
				zap.Duration("duration", elapsed),
				zap.Error(err),
			)
		}

		return resp, err
	}
}
