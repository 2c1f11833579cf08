package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/medibook/internal/admin"
	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, args, err := config.LoadConfigArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Environment, os.Stderr)
	app := admin.NewApp(cfg, logger, os.Stdin, os.Stdout)

	if err := app.Run(ctx, args); err != nil {
		log.Fatalf("%v", err)
	}

}
