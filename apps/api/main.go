package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the default mux

	"github.com/smartclass/portal/apps/api/di"
	echoapi "github.com/smartclass/portal/apps/api/echo"
	"github.com/smartclass/portal/core"
)

func main() {
	if err := di.New().Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(conf *core.Config, logger core.Logger, cleanup di.CleanupParam, server *echoapi.Server) {
	logger.Info(fmt.Sprintf("smartclass API starting : version %q, env %q", conf.Build, conf.Env))
	defer logger.Info("smartclass API stopped")
	defer cleanup.DB()
	defer cleanup.Sessions()

	serveDebug(conf, logger)
	go server.Start()

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("received %v, shutting down", sig))
		shutdown(conf, logger, server)
	}
}

// serveDebug exposes /debug/pprof and /debug/vars on the debug host.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()
}

// shutdown lets in-flight requests finish within the shutdown timeout, then forces the listener closed.
func shutdown(conf *core.Config, logger core.Logger, server *echoapi.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err == nil {
		return
	}
	logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
	if err = server.Close(); err != nil {
		logger.Error(fmt.Sprintf("forced close failed: %v", err), err)
	}
}
