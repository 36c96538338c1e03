// Command unoserver runs the UNO engine's websocket server: config file and
// flag parsing, logging backend construction, and graceful shutdown, with a
// default configuration file of server.toml in the working directory,
// overridable with -conf.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unoengine/uno-server/pkg/config"
	"github.com/unoengine/uno-server/pkg/identity"
	"github.com/unoengine/uno-server/pkg/logging"
	"github.com/unoengine/uno-server/pkg/registry"
	"github.com/unoengine/uno-server/pkg/server"
	"github.com/unoengine/uno-server/pkg/stats"
)

const defaultConfigFile = "server.toml"

func main() {
	var configPath string
	flag.StringVar(&configPath, "conf", defaultConfigFile, "path to a TOML configuration file")

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fs := flag.CommandLine
	config.RegisterFlags(fs, &cfg)
	flag.Parse()
	if configPath != defaultConfigFile {
		// -conf is only known once the flags are parsed: load that file
		// instead and re-apply the command-line flags on top of it.
		if cfg, err = config.LoadFile(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		_ = fs.Parse(os.Args[1:])
	}

	logBackend, err := logging.NewBackend(logging.Config{DebugLevel: cfg.LogDebugLevel, LogFile: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("SERVER")

	reg := registry.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	idp := identity.NewDevProvider()
	sink := stats.NewMemorySink()

	srv := server.New(log, reg, idp, sink, rand.New(rand.NewSource(time.Now().UnixNano())), cfg.BotActionMin, cfg.BotActionMax)

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Infof("shutting down")
	srv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Errorf("http shutdown error: %v", err)
	}
}
