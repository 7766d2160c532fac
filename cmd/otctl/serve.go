package main

import (
	"context"
	"flag"
	"net/http"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"golang.org/x/xerrors"

	"github.com/otlabs/collabtext/internal/auth"
	"github.com/otlabs/collabtext/internal/broadcast"
	"github.com/otlabs/collabtext/internal/config"
	"github.com/otlabs/collabtext/internal/logging"
	"github.com/otlabs/collabtext/internal/server"
	"github.com/otlabs/collabtext/internal/store"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "otctl.yaml", "path to config YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return xerrors.Errorf("load config: %w", err)
	}

	log := logging.NewConsole(logging.ParseLevel(cfg.Logging.Level))

	documentStore, err := store.Open(cfg.Mysql.DSN)
	if err != nil {
		return xerrors.Errorf("open document store: %w", err)
	}

	var publisher *broadcast.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaCfg := sarama.NewConfig()
		kafkaCfg.Producer.Return.Successes = true
		kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
		producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
		if err != nil {
			return xerrors.Errorf("connect kafka producer: %w", err)
		}
		defer producer.Close()
		publisher = broadcast.NewPublisher(producer, cfg.Kafka.Topic, log, broadcast.PublisherOptions{})
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	revisionCache := store.NewRevisionCache(rdb)

	hubs := server.NewHubSet(documentStore, publisher, revisionCache, log)

	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err := sarama.NewConsumer(cfg.Kafka.Brokers, sarama.NewConfig())
		if err != nil {
			return xerrors.Errorf("connect kafka consumer: %w", err)
		}
		defer consumer.Close()
		subscriber := broadcast.NewSubscriber(consumer, cfg.Kafka.Topic, log)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := subscriber.Run(ctx, hubs.HandleRemoteEvent); err != nil {
				log.Warn().Err(err).Msg("otctl: broadcast subscriber stopped")
			}
		}()
	}

	authn := auth.New(cfg.Auth.Secret)
	router := server.NewRouter(hubs, authn, log)

	log.Info().Str("addr", cfg.Running.Addr).Msg("otctl: listening")
	return http.ListenAndServe(cfg.Running.Addr, router)
}
