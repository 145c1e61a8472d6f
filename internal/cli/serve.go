package cli

import (
	"context"
	"sync"

	"github.com/mesa-livre/print-agent/internal/config"
	"github.com/mesa-livre/print-agent/internal/device"
	"github.com/mesa-livre/print-agent/internal/engine"
	"github.com/mesa-livre/print-agent/internal/feed"
	"github.com/mesa-livre/print-agent/internal/layout"
	"github.com/mesa-livre/print-agent/internal/preview"
	"github.com/mesa-livre/print-agent/internal/server"
	"github.com/mesa-livre/print-agent/internal/sink"
	"github.com/mesa-livre/print-agent/internal/state"
)

// runServe wires every component together and blocks until ctx is cancelled.
func runServe(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log := config.NewLogger(cfg.LogLevel)
	log.WithField("version", Version).Info("Starting print agent")

	store, err := state.Open(cfg.StateDB)
	if err != nil {
		return err
	}
	defer store.Close()

	layouts, err := layout.LoadDir(cfg.LayoutDir)
	if err != nil {
		log.WithError(err).Warn("Failed to load layouts, using built-in default")
	}
	active := layout.Select(layouts)
	if cfg.PaperWidth > 0 {
		active.PaperWidth = cfg.PaperWidth
	}
	log.WithField("layout", active.Name).Info("Receipt layout selected")
	layoutFn := func() *layout.Layout { return active }

	locator := device.NewLocator(log, cfg.FallbackPaths)
	printerSink := sink.New(log)
	client := feed.NewClient(cfg.APIURL, cfg.APIKey, log)

	eng, err := engine.New(engine.Options{
		Log:          log,
		Feed:         client,
		Sink:         printerSink,
		Resolver:     locator,
		Store:        store,
		Layout:       layoutFn,
		GracePeriod:  cfg.GracePeriod(),
		PollInterval: cfg.PollInterval(),
	})
	if err != nil {
		return err
	}
	eng.SelectPrinter(cfg.PrinterPath)

	var prev *preview.Renderer
	if p, err := preview.NewRenderer(); err != nil {
		log.WithError(err).Warn("Receipt previews disabled")
	} else {
		prev = p
		log.WithField("chrome", preview.ChromeVersion(p.ChromePath())).Debug("Preview renderer ready")
	}

	srv := server.New(log, locator, eng, printerSink, layoutFn, prev, Version)
	subscriber := feed.NewSubscriber(cfg.WSURL, cfg.APIKey, cfg.AgentKey, log, eng.Notify)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eng.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		subscriber.Run(ctx)
	}()

	err = srv.ListenAndServe(ctx, cfg.ListenAddr)
	wg.Wait()
	log.Info("Shutdown complete")
	return err
}
