package main

import (
	"google.golang.org/grpc"

	"github.com/Observe-l/polar-ssc/internal/env"
)

// registerEnv is replaced by the grpcproto-tagged build once the
// generated stubs exist. By default it is a no-op so the binary builds
// without running protoc.
var registerEnv = func(_ *grpc.Server, _ *env.EvalServer) {}
