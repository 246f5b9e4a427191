package app

import (
	"context"
	"errors"
	"strings"

	"github.com/dshills/soundboard/internal/bridge"
	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/hotkey"
	"github.com/dshills/soundboard/internal/instance"
	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/router"
	"github.com/dshills/soundboard/internal/surface"
	"github.com/dshills/soundboard/internal/watcher"
)

// Components in start order.
const (
	componentDataDir = "dataDir"
	componentLock    = "lock"
	componentSubdirs = "subdirs"
	componentMigrate = "migrate"
	componentRouter  = "router"
	componentHotkeys = "hotkeys"
	componentMenu    = "menu"
	componentWatcher = "watcher"
	componentBridge  = "bridge"
	componentSurface = "surface"
)

const trayTitle = "soundboard"

// bootstrapper initializes components in dependency order and releases
// the started ones when a fatal step fails.
type bootstrapper struct {
	app *Application
	ctx context.Context
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{app: app, ctx: context.Background()}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{componentDataDir, b.initDataDir},
		{componentLock, b.initLock},
		{componentSubdirs, b.initSubdirs},
		{componentMigrate, b.initMigrate},
		{componentRouter, b.initRouter},
		{componentHotkeys, b.initHotkeys},
		{componentMenu, b.initMenu},
		{componentWatcher, b.initWatcher},
		{componentBridge, b.initBridge},
		{componentSurface, b.initSurface},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return err
		}
		b.app.initOrder = append(b.app.initOrder, step.name)
	}
	return nil
}

// cleanup releases started components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.app.initOrder) - 1; i >= 0; i-- {
		if err := b.app.release(b.app.initOrder[i]); err != nil {
			b.app.logger.Warn("cleanup %s: %v", b.app.initOrder[i], err)
		}
	}
	b.app.initOrder = nil
}

// nonFatal reports a failed optional step and lets bootstrap continue.
func (b *bootstrapper) nonFatal(component, title string, err error) {
	b.app.reportComponentError(&ComponentError{Component: component, Title: title, Err: err})
}

func (b *bootstrapper) initDataDir() error {
	if b.app.opts.DataDir == "" {
		return &InitError{Component: "data directory", Err: config.ErrDataDir}
	}
	store, err := config.Bootstrap(b.app.opts.DataDir)
	if err != nil {
		return &InitError{Component: "data directory", Err: err}
	}
	b.app.store = store
	return nil
}

func (b *bootstrapper) initLock() error {
	lock, err := instance.Acquire(b.app.opts.DataDir)
	if err != nil {
		return &InitError{Component: "instance lock", Err: err}
	}
	b.app.lock = lock
	return nil
}

func (b *bootstrapper) initSubdirs() error {
	created, err := config.EnsureSubdirs(b.app.opts.DataDir)
	if err != nil {
		b.nonFatal(componentSubdirs, "Could not create directory", err)
		return nil
	}
	if created {
		b.app.logger.Debug("created data directories")
	}
	return nil
}

func (b *bootstrapper) initMigrate() error {
	res, err := b.app.store.Migrate(b.ctx)
	switch {
	case err != nil:
		b.nonFatal(componentMigrate, "Could not update settings", err)
	case res.Newer:
		b.app.logger.Warn("settings version %d is newer than this release; left unchanged", res.FromVersion)
	case res.Migrated:
		b.app.logger.Info("upgraded settings from version %d to %d", res.FromVersion, res.ToVersion)
	}
	return nil
}

func (b *bootstrapper) initRouter() error {
	b.app.router = router.New()
	return b.app.registerHandlers()
}

func (b *bootstrapper) initHotkeys() error {
	if b.app.surfaces.Hotkeys == nil {
		return &InitError{Component: "hotkeys", Err: errors.New("no registrar")}
	}
	b.app.binder = hotkey.NewBinder(b.app.surfaces.Hotkeys)

	doc, err := b.app.store.Get(b.ctx)
	if err != nil {
		b.nonFatal(componentHotkeys, "Could not update settings", err)
		return nil
	}

	err = b.app.binder.Bind(keybind.Candidates(doc.Keybinds), b.app.trigger)
	var conflict *hotkey.BindConflict
	switch {
	case errors.As(err, &conflict):
		names := make([]string, len(conflict.Actions))
		for i, a := range conflict.Actions {
			names[i] = string(a)
		}
		b.app.logger.Debug("%v", errors.Join(conflict.Errs...))
		b.app.reportError("Could not bind the following accelerators", strings.Join(names, ","))
	case err != nil:
		b.nonFatal(componentHotkeys, "Could not update settings", err)
	default:
		b.app.logger.Debug("bound all accelerators")
	}
	return nil
}

func (b *bootstrapper) initMenu() error {
	if b.app.surfaces.Menu == nil {
		return &InitError{Component: "menu", Err: errors.New("no installer")}
	}
	env := menu.Env{Platform: b.app.opts.Platform, Debug: b.app.opts.Debug}
	b.app.menu = menu.NewSynchronizer(b.app.store, b.app.surfaces.Menu, env, b.app.opts.Logger)
	if err := b.app.menu.Rebuild(b.ctx, menu.Config{AllDisabled: true}); err != nil {
		b.nonFatal(componentMenu, "Could not load settings", err)
	}
	if tray := b.app.surfaces.Tray; tray != nil {
		if err := tray.Install(menu.Tray(trayTitle)); err != nil {
			b.app.logger.Warn("install tray: %v", err)
		}
	}
	return nil
}

func (b *bootstrapper) initWatcher() error {
	opts := []watcher.Option{watcher.WithErrorHandler(func(err error) {
		b.app.logger.Warn("watch: %v", err)
	})}
	if b.app.opts.WatchDelay > 0 {
		opts = append(opts, watcher.WithDelay(b.app.opts.WatchDelay))
	}
	w, err := watcher.New(b.app.opts.DataDir, b.app.onFileChange, opts...)
	if err != nil {
		b.nonFatal(componentWatcher, "Could not watch data directory", err)
		return nil
	}
	b.app.watcher = w
	return nil
}

func (b *bootstrapper) initBridge() error {
	if b.app.opts.Listen == "" {
		return nil
	}
	server := bridge.NewServer(b.app.router, b.app.focus, b.app.opts.Logger)
	addr, err := server.Start(b.app.opts.Listen)
	if err != nil {
		b.nonFatal(componentBridge, "Could not start bridge", err)
		return nil
	}
	b.app.bridge = server
	b.app.addr = addr
	if err := b.app.lock.Publish(addr); err != nil {
		b.app.logger.Warn("publish bridge address: %v", err)
	}
	return nil
}

func (b *bootstrapper) initSurface() error {
	s := b.app.surfaces
	if s.View == nil {
		return nil
	}
	port := &queuedPort{Port: b.app.router.Presentation(), queue: b.app.presentation}
	b.app.surface = surface.New(port, s.Player, s.Devices, s.View, b.app.opts.Logger)
	return nil
}
