package main

import (
	"log/slog"

	"github.com/Skotchmaster/forum_auth/pkg/events"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/config"
)

// buildPublisher wires the sinks that are configured. With none, events are dropped.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, func()) {
	var (
		sinks   events.Multi
		closers []func()
	)

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		k := events.NewKafka(brokers, cfg.KafkaTopic)
		sinks = append(sinks, k)
		closers = append(closers, func() {
			if err := k.Close(); err != nil {
				logger.Error("kafka close", "error", err.Error())
			}
		})
		logger.Info("auth events enabled", "sink", "kafka", "topic", cfg.KafkaTopic)
	}

	if cfg.ESURL != "" {
		a, err := events.NewAudit(events.ElasticConfig{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			logger.Error("audit trail disabled", "error", err.Error())
		} else {
			sinks = append(sinks, a)
			logger.Info("auth events enabled", "sink", "elasticsearch", "index", cfg.ESIndex)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return events.Nop{}, closeAll
	}
	return sinks, closeAll
}
