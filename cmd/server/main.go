package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"broadside/server/internal/app"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	worldPath := flag.String("world", "", "path to a world config yaml, defaults built in")
	clientDir := flag.String("client", "", "directory of static client files to serve at /")
	logJSON := flag.String("log-json", "", "path for the ndjson event log, empty disables it")
	verbose := flag.Bool("verbose", false, "include debug events in the log stream")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, app.Config{
		Addr:       *addr,
		WorldPath:  *worldPath,
		ClientDir:  *clientDir,
		LogJSON:    *logJSON,
		LogVerbose: *verbose,
	}); err != nil {
		log.Fatalf("%v", err)
	}
}
