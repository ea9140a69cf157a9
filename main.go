package main

import (
	"context"
	"fmt"
	"os"

	logger "github.com/Easy-Infra-Ltd/easy-logger"

	"github.com/Easy-Infra-Ltd/easy-content-guard/src/config"
	"github.com/Easy-Infra-Ltd/easy-content-guard/src/engine"
	"github.com/Easy-Infra-Ltd/easy-content-guard/src/server"
)

func main() {
	log := logger.CreateLoggerFromEnv(nil, "red").With("process", "easycontentguard")

	cfgPath := "config.json"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	eng, err := engine.New(cfg.Engine.EngineSettings(), cfg.Engine.CustomInjectionPatterns, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(eng, cfg.Server, log)
	if err := srv.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
