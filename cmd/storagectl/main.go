package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kaplanelad/active-storage/common"
	"github.com/kaplanelad/active-storage/storage"
)

var globalFlags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "primary",
		Value: "file://./storage-data",
		Usage: "location URI of the primary store",
	},
	&cli.StringSliceFlag{
		Name:  "store",
		Usage: "secondary store as name=uri, repeatable",
	},
	&cli.StringFlag{
		Name:  "mirrors-policy",
		Value: "continue-on-failure",
		Usage: "fan-out failure policy: 'continue-on-failure' or 'stop-on-failure'",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
}

func main() {
	app := &cli.App{
		Name:  "storagectl",
		Usage: "Run object operations against mirrored stores",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:      "write",
				Usage:     "write a local file to the given object path on all stores",
				ArgsUsage: "<path> <local-file>",
				Action:    runWrite,
			},
			{
				Name:      "read",
				Usage:     "print the object at the given path from the primary store",
				ArgsUsage: "<path>",
				Action:    runRead,
			},
			{
				Name:      "exists",
				Usage:     "check whether an object exists on the primary store",
				ArgsUsage: "<path>",
				Action:    runExists,
			},
			{
				Name:      "last-modified",
				Usage:     "print the object's modification timestamp from the primary store",
				ArgsUsage: "<path>",
				Action:    runLastModified,
			},
			{
				Name:      "delete",
				Usage:     "delete the object at the given path from all stores",
				ArgsUsage: "<path>",
				Action:    runDelete,
			},
			{
				Name:      "delete-directory",
				Usage:     "delete the directory at the given path from all stores",
				ArgsUsage: "<path>",
				Action:    runDeleteDirectory,
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildMultiStore(cCtx *cli.Context) (*storage.MultiStore, error) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool("log-debug"),
		Service: "storagectl",
		Version: common.Version,
	})

	policy, err := storage.ParsePolicy(cCtx.String("mirrors-policy"))
	if err != nil {
		return nil, err
	}

	secondaries := make(map[string]string)
	for _, spec := range cCtx.StringSlice("store") {
		name, uri, ok := strings.Cut(spec, "=")
		if !ok || name == "" || uri == "" {
			return nil, fmt.Errorf("invalid store flag %q, expected name=uri", spec)
		}
		secondaries[name] = uri
	}

	factory := storage.NewStoreFactory(logger)
	multi, err := factory.MultiStoreFor(cCtx.Context, cCtx.String("primary"), secondaries)
	if err != nil {
		return nil, err
	}
	multi.SetMirrorsPolicy(policy)
	return multi, nil
}

func runWrite(cCtx *cli.Context) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("expected <path> <local-file>")
	}

	content, err := os.ReadFile(cCtx.Args().Get(1))
	if err != nil {
		return err
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}
	return multi.MirrorStoresFromPrimary().Write(cCtx.Context, cCtx.Args().Get(0), content)
}

func runRead(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected <path>")
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}

	contents, err := multi.Primary().Read(cCtx.Context, cCtx.Args().Get(0))
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(contents.Bytes())
	return err
}

func runExists(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected <path>")
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}

	exists, err := multi.Primary().FileExists(cCtx.Context, cCtx.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Println(exists)
	return nil
}

func runLastModified(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected <path>")
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}

	modified, err := multi.Primary().LastModified(cCtx.Context, cCtx.Args().Get(0))
	if err != nil {
		return err
	}

	fmt.Println(modified.UTC().Format(time.RFC3339))
	return nil
}

func runDelete(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected <path>")
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}
	return multi.MirrorStoresFromPrimary().Delete(cCtx.Context, cCtx.Args().Get(0))
}

func runDeleteDirectory(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected <path>")
	}

	multi, err := buildMultiStore(cCtx)
	if err != nil {
		return err
	}
	return multi.MirrorStoresFromPrimary().DeleteDirectory(cCtx.Context, cCtx.Args().Get(0))
}
