package cmd

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/config"
)

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Format)) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	return nil
}
