package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/strmhub/transcoder/api"
	"github.com/strmhub/transcoder/clients"
	"github.com/strmhub/transcoder/config"
	"github.com/strmhub/transcoder/handlers"
	"github.com/strmhub/transcoder/log"
	"github.com/strmhub/transcoder/media"
	"github.com/strmhub/transcoder/transcoder"
)

func main() {
	fs := flag.NewFlagSet("transcoder", flag.ExitOnError)
	cli := config.Cli{}

	version := fs.Bool("version", false, "print application version")

	config.AddrFlag(fs, &cli.HTTPAddress, "http-addr", "0.0.0.0:7666", "Address to bind the streaming API to")
	config.AddrFlag(fs, &cli.MetricsAddress, "metrics-addr", "127.0.0.1:2112", "Address to bind the healthcheck and metrics listener to")
	fs.StringVar(&cli.APIURL, "api-url", "http://back:5000", "Base URL of the metadata API used to resolve slugs")
	config.CommaSliceFlag(fs, &cli.APIKeys, "kyoo-apikeys", []string{}, "Comma separated API keys, the first one is sent as X-API-KEY when resolving paths")
	fs.StringVar(&cli.CachePath, "cache-path", "/cache", "Directory holding transcode outputs, wiped at startup")
	fs.StringVar(&cli.MetadataPath, "metadata-path", "/metadata", "Directory holding extracted attachments and subtitles")
	_ = fs.String("config", "", "config file (optional)")

	err := ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarNoPrefix(),
	)
	if err != nil {
		fatal("error parsing cli", "err", err)
	}
	if len(fs.Args()) > 0 {
		fatal("unexpected extra arguments on command line", "args", fmt.Sprint(fs.Args()))
	}

	if *version {
		fmt.Printf("transcoder version: %s\n", config.Version)
		return
	}

	resolver, err := clients.NewAPIClient(cli)
	if err != nil {
		fatal("error creating api client", "err", err)
	}

	identifier := media.NewIdentifier(cli.MetadataPath)

	engine, err := transcoder.New(transcoder.Layout{Root: cli.CachePath}, identifier, resolver)
	if err != nil {
		fatal("error preparing the transcode cache", "err", err, "path", cli.CachePath)
	}

	streamHandlers := &handlers.StreamHandlersCollection{
		Resolver:     resolver,
		Identifier:   identifier,
		Transcoder:   engine,
		MetadataPath: cli.MetadataPath,
	}

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return handleSignals(ctx)
	})

	group.Go(func() error {
		return api.ListenAndServe(ctx, cli.HTTPAddress, streamHandlers)
	})

	group.Go(func() error {
		return api.ListenAndServeInternal(ctx, cli.MetricsAddress, streamHandlers)
	})

	err = group.Wait()
	engine.Shutdown()
	log.LogNoRequestID("Shutdown complete", "reason", err)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-c:
		log.LogNoRequestID("caught signal, attempting clean shutdown", "signal", s.String())
		return fmt.Errorf("caught signal=%v", s)
	case <-ctx.Done():
		return nil
	}
}

func fatal(message string, keyvals ...interface{}) {
	log.LogNoRequestID(message, keyvals...)
	os.Exit(1)
}
