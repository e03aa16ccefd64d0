package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/Observe-l/polar-ssc/internal/env"
)

// Control server for remote decoder evaluation: gRPC on :50051 once the
// generated stubs are registered, Prometheus metrics on :2112.

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := env.NewEvalServer()

	reg := prometheus.NewRegistry()
	registerMetrics(reg, srv)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":2112", mux); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	ln, err := net.Listen("tcp", ":50051")
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	grpcSrv := grpc.NewServer()
	registerEnv(grpcSrv, srv)

	go func() {
		<-c
		logger.Info("shutting down")
		grpcSrv.GracefulStop()
	}()

	logger.Info("polar eval control listening", zap.String("addr", ln.Addr().String()))
	if err := grpcSrv.Serve(ln); err != nil {
		logger.Fatal("grpc serve", zap.Error(err))
	}
}

func registerMetrics(reg *prometheus.Registry, srv *env.EvalServer) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "polar_eval_bit_error_rate",
		Help: "Bit error rate of the most recent evaluation step.",
	}, func() float64 { return srv.LastObservation().BitErrorRate }))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "polar_eval_frame_error_rate",
		Help: "Frame error rate of the most recent evaluation step.",
	}, func() float64 { return srv.LastObservation().FrameErrorRate }))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "polar_eval_fast_decode_share",
		Help: "Share of blocks settled without the list pass.",
	}, func() float64 { return srv.LastObservation().FastShare }))
}
