package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/kaplanelad/active-storage/common"
	"github.com/kaplanelad/active-storage/httpserver"
	"github.com/kaplanelad/active-storage/storage"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "primary",
		Value: "mem://",
		Usage: "location URI of the primary store",
	},
	&cli.StringSliceFlag{
		Name:  "store",
		Usage: "secondary store as name=uri, repeatable",
	},
	&cli.StringSliceFlag{
		Name:  "mirror",
		Usage: "mirror group as group=name1,name2, repeatable",
	},
	&cli.StringFlag{
		Name:  "mirrors-policy",
		Value: "continue-on-failure",
		Usage: "fan-out failure policy: 'continue-on-failure' or 'stop-on-failure'",
	},
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "storaged",
		Usage: "add 'service' tag to logs",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "storaged",
		Usage: "Serve mirrored object storage over HTTP",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   cCtx.Bool("log-debug"),
				JSON:    cCtx.Bool("log-json"),
				Service: cCtx.String("log-service"),
				Version: common.Version,
			})

			if cCtx.Bool("log-uid") {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			policy, err := storage.ParsePolicy(cCtx.String("mirrors-policy"))
			if err != nil {
				logger.Error("Invalid mirrors policy", "err", err)
				return err
			}

			secondaries, err := parsePairs(cCtx.StringSlice("store"))
			if err != nil {
				logger.Error("Invalid store flag", "err", err)
				return err
			}

			factory := storage.NewStoreFactory(logger)
			multi, err := factory.MultiStoreFor(cCtx.Context, cCtx.String("primary"), secondaries)
			if err != nil {
				logger.Error("Failed to assemble stores", "err", err)
				return err
			}
			multi.SetMirrorsPolicy(policy)

			for _, spec := range cCtx.StringSlice("mirror") {
				group, members, ok := cutPair(spec)
				if !ok {
					return fmt.Errorf("invalid mirror flag %q, expected group=name1,name2", spec)
				}
				if err := multi.AddMirrors(group, strings.Split(members, ",")); err != nil {
					logger.Error("Failed to define mirror group", "group", group, "err", err)
					return err
				}
			}

			cfg := &httpserver.HTTPServerConfig{
				ListenAddr:               cCtx.String("listen-addr"),
				Log:                      logger,
				DrainDuration:            time.Duration(cCtx.Int64("drain-seconds")) * time.Second,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}

			srv := httpserver.New(cfg, httpserver.NewHandler(multi, logger))
			srv.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit

			logger.Info("Shutting down")
			srv.Shutdown()
			return nil
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func parsePairs(specs []string) (map[string]string, error) {
	pairs := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, uri, ok := cutPair(spec)
		if !ok {
			return nil, fmt.Errorf("invalid store flag %q, expected name=uri", spec)
		}
		pairs[name] = uri
	}
	return pairs, nil
}

func cutPair(spec string) (string, string, bool) {
	name, value, ok := strings.Cut(spec, "=")
	if !ok || name == "" || value == "" {
		return "", "", false
	}
	return name, value, true
}
