package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"serialtool/config"
	"serialtool/controller"
	"serialtool/gui/ui"
	"serialtool/library"
	"serialtool/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON or YAML)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(&cfg.Logging, os.Stderr, *debug)
	defer closer.Close()

	lib, err := library.Load(cfg.Library.Path)
	var persistErr *library.PersistenceError
	if errors.As(err, &persistErr) {
		logger.Warn("Command library unreadable, starting empty", "path", cfg.Library.Path, "error", err)
	}

	console := ui.NewConsole(ui.DefaultConsoleLines)

	opts := controller.OptionsFromConfig(cfg)
	opts.Library = lib
	opts.Sink = console
	opts.Logger = logger
	ctrl := controller.New(opts)

	myApp := app.NewWithID("io.serialtool.gui")
	myWindow := myApp.NewWindow("Serial Tool")
	myWindow.Resize(fyne.NewSize(1000, 700))

	mainUI := ui.NewMainUI(myWindow, ctrl, cfg, console, logger)
	myWindow.SetContent(mainUI.Build())
	myWindow.SetMainMenu(mainUI.MainMenu())

	mainUI.Start()
	myWindow.ShowAndRun()
	mainUI.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Close(ctx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
	}
}
