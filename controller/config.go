package controller

import (
	"serialtool/codec"
	"serialtool/config"
	"serialtool/eventlog"
	"serialtool/session"
)

// OptionsFromConfig maps the serial, event log and library sections onto
// controller options. Callers add the library, sink, notifier and logger.
func OptionsFromConfig(cfg *config.Config) Options {
	mode, err := codec.ParseMode(cfg.Serial.Mode)
	if err != nil {
		mode = codec.ModeASCII
	}

	return Options{
		EventLog:    eventlog.New(cfg.EventLog.Directory),
		LibraryPath: cfg.Library.Path,
		Mode:        mode,
		WorkerOptions: []session.Option{
			session.WithPollInterval(cfg.Serial.PollInterval()),
			session.WithReadTimeout(cfg.Serial.ReadTimeout()),
		},
	}
}
