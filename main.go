// Package main provides the entry point for the Doc Annotator application.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"doc-annotator/internal/app"
	"doc-annotator/internal/config"
	"doc-annotator/internal/event"
	"doc-annotator/internal/log"
	"doc-annotator/internal/session"
	"doc-annotator/internal/version"
	"doc-annotator/ui/mainwindow"
	"doc-annotator/ui/prefs"
)

func defaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "doc-annotator", "config.yaml")
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("config: %v", err)
		os.Exit(1)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	log.Infof("starting doc-annotator v%s", version.Version)

	fyneApp := fyneapp.NewWithID("io.docannotator.app")
	fyneApp.Settings().SetTheme(&app.AnnotatorTheme{})

	bus := event.NewBus()
	view, err := session.NewDocumentView(cfg, bus)
	if err != nil {
		log.Errorf("session: %v", err)
		os.Exit(1)
	}
	defer view.Close()

	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, view, bus)
	restoreWindowState(win, appPrefs)

	if flag.NArg() > 0 {
		win.OpenDocument(flag.Arg(0))
	}

	setupHotReload(win, appPrefs)

	win.ShowAndRun()

	saveWindowState(win, appPrefs)
	if err := appPrefs.SaveIfChanged(); err != nil {
		log.Warnf("preferences: %v", err)
	}
}

func restoreWindowState(win *mainwindow.MainWindow, p *prefs.Prefs) {
	w := p.FloatWithFallback(prefs.KeyWindowWidth, 1100)
	h := p.FloatWithFallback(prefs.KeyWindowHeight, 800)
	win.Resize(fyne.NewSize(float32(w), float32(h)))

	if p.Bool(prefs.KeyFitToWindow, true) {
		win.SetFitToWindow(true)
	}
}

func saveWindowState(win *mainwindow.MainWindow, p *prefs.Prefs) {
	size := win.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		p.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		p.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	}
	p.SetBool(prefs.KeyFitToWindow, win.FitToWindow())
}

// setupHotReload configures restart detection after recompilation.
func setupHotReload(win *mainwindow.MainWindow, p *prefs.Prefs) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Warnf("hot reload: unable to determine executable path")
		return
	}

	reloader.OnNewBinary(func() {
		log.Infof("hot reload: newer binary detected")
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					return
				}
				_ = p.SaveIfChanged()
				log.Infof("hot reload: restarting")
				if err := reloader.Restart(); err != nil {
					log.Errorf("hot reload: restart failed: %v", err)
				}
			}, win)
	})
	reloader.Start()
}
