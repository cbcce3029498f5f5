package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"time"

	"azulnodes/internal/adapters/converter"
	"azulnodes/internal/adapters/file"
	"azulnodes/internal/adapters/handler"
	"azulnodes/internal/core/node"
	"azulnodes/internal/core/port"
	"azulnodes/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("output.directory", "output")
	viper.SetDefault("jpeg.encoder", "auto")
	viper.SetDefault("jpeg.prefix_suffix", "_jpg")
	viper.SetDefault("conditioning.strength_policy", "set")
	viper.SetDefault("handler.timeout", "5m")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
		log.Debug().Msg("no config file, using defaults")
	}

	var logLevel zerolog.Level

	switch viper.GetString("app.log_level") {
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	nodeRegistry := &node.Registry{}

	encoder := newEncoder(viper.GetString("jpeg.encoder"))

	allocator, err := file.NewOutputAllocator(viper.GetString("output.directory"))
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing output allocator")
	}

	exporter := service.NewJPEGExporter(encoder, allocator, file.NewWriter())

	blender, err := service.NewConditioningBlender()
	if err != nil {
		log.Panic().Err(err).Msg("failed initializing conditioning blender")
	}

	nodeRegistry.Register(node.NewSaveImageAsJPG(exporter))
	nodeRegistry.Register(node.NewWeightedConditioningAverage(blender))

	mode := "run"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "list":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nodeRegistry.Schemas()); err != nil {
			log.Fatal().Err(err).Msg("failed writing node schemas")
		}
	case "run":
		handlerTimeout, err := time.ParseDuration(viper.GetString("handler.timeout"))
		if err != nil {
			log.Panic().Err(err).Msg("invalid timeout for handler in config")
		}

		nodeHandler := handler.NewNode(nodeRegistry, handlerTimeout)
		if err := nodeHandler.Handle(ctx, os.Stdin, os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("node request failed")
		}
	default:
		log.Fatal().Str("mode", mode).Msg("usage: azulnodes [list|run]")
	}
}

func newEncoder(kind string) port.ImageEncoder {
	if kind == "native" {
		log.Info().Msg("using native jpeg encoder")
		return converter.NewNativeEncoder()
	}

	magickEncoder, err := converter.NewMagickEncoder()
	if err == nil {
		log.Info().Msg("using magick jpeg encoder")
		return magickEncoder
	}

	if kind == "magick" {
		log.Panic().Err(err).Msg("failed initializing magick encoder")
	}

	log.Info().Err(err).Msg("falling back to native jpeg encoder")

	return converter.NewNativeEncoder()
}
