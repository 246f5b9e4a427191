// Package app wires the control side of the soundboard: the settings
// store, global hotkeys, the menu, file watching, the router and the
// bridge. All control-side work runs on one task queue; the in-process
// presentation runs on a second queue so it can wait on control requests.
package app

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/soundboard/internal/bridge"
	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/hotkey"
	"github.com/dshills/soundboard/internal/instance"
	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/router"
	"github.com/dshills/soundboard/internal/surface"
	"github.com/dshills/soundboard/internal/watcher"
)

// Options configures the application.
type Options struct {
	// DataDir holds settings.json and the sets directory.
	DataDir string

	// Platform is a GOOS value used to shape the menu. Defaults to runtime.GOOS.
	Platform string

	// Debug adds developer menu entries.
	Debug bool

	// Listen is the bridge address. Empty disables the bridge.
	Listen string

	// WatchDelay coalesces file changes. Zero uses the watcher default.
	WatchDelay time.Duration

	// Logger receives application logs. Nil uses the default logger.
	Logger *logging.Logger
}

// Dialogs shows errors to the user.
type Dialogs interface {
	ShowError(title, message string)
}

// Surfaces are the desktop capabilities the application drives.
type Surfaces struct {
	// Hotkeys registers global accelerators. Required.
	Hotkeys hotkey.Registrar
	// Menu displays the application menu. Required.
	Menu menu.Installer
	// Tray displays the tray menu. Nil skips it.
	Tray menu.Installer
	// Dialogs shows errors. Nil only logs them.
	Dialogs Dialogs

	// View enables the in-process presentation. Nil leaves presentation
	// to bridge clients.
	View surface.View
	// Player plays sound files. Nil logs instead.
	Player surface.Player
	// Devices lists output devices. Nil reports the system default.
	Devices surface.DeviceLister

	// Focus raises the surface when a second instance starts.
	Focus func()
}

// Application is the control-side coordinator.
type Application struct {
	opts     Options
	surfaces Surfaces
	logger   *logging.Logger

	store   *config.Store
	lock    *instance.Lock
	router  *router.Router
	binder  *hotkey.Binder
	menu    *menu.Synchronizer
	watcher *watcher.Watcher
	bridge  *bridge.Server
	surface *surface.Surface
	addr    string

	loop         *queue
	presentation *queue
	initOrder    []string

	running      atomic.Bool
	mu           sync.Mutex
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	shutdownErr  error
}

// New bootstraps every component. Only an unusable data directory or a
// running instance fails it; other failures are shown as dialogs.
func New(opts Options, surfaces Surfaces) (*Application, error) {
	if opts.Platform == "" {
		opts.Platform = runtime.GOOS
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.DefaultConfig())
	}
	if surfaces.Player == nil {
		surfaces.Player = surface.NewLogPlayer(opts.Logger)
	}
	if surfaces.Devices == nil {
		surfaces.Devices = surface.SystemDevices{}
	}

	app := &Application{
		opts:     opts,
		surfaces: surfaces,
		logger:   opts.Logger.WithComponent("app"),
	}
	app.loop = newQueue("control", app.reportPanic)
	app.presentation = newQueue("presentation", app.reportPanic)

	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts the task queues and the in-process presentation, then blocks
// until ctx is done or Quit is called. It shuts the application down
// before returning.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	app.mu.Lock()
	app.cancel = cancel
	app.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.loop.run(ctx)
	}()
	go func() {
		defer wg.Done()
		app.presentation.run(ctx)
	}()

	if app.surface != nil {
		_ = app.presentation.post(func() {
			if err := app.surface.Start(ctx); err != nil {
				app.reportError("Could not start presentation", err.Error())
			}
		})
	}
	app.logger.Info("running (data dir %s)", app.opts.DataDir)

	<-ctx.Done()
	wg.Wait()
	return app.Shutdown()
}

// Quit asks Run to return.
func (app *Application) Quit() {
	app.mu.Lock()
	cancel := app.cancel
	app.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown releases every component in reverse start order. It runs once;
// later calls return the first result.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.Quit()
		app.loop.close()
		app.presentation.close()

		var errs []error
		for i := len(app.initOrder) - 1; i >= 0; i-- {
			if err := app.release(app.initOrder[i]); err != nil {
				errs = append(errs, err)
			}
		}
		app.shutdownErr = errors.Join(errs...)
		app.logger.Info("shut down")
	})
	return app.shutdownErr
}

// release stops one component started by the bootstrapper.
func (app *Application) release(component string) error {
	switch component {
	case componentLock:
		if app.lock != nil {
			return app.lock.Release()
		}
	case componentHotkeys:
		if app.binder != nil {
			return app.binder.Close()
		}
	case componentWatcher:
		if app.watcher != nil {
			return app.watcher.Close()
		}
	case componentBridge:
		if app.bridge != nil {
			return app.bridge.Close()
		}
	case componentSurface:
		if app.surface != nil {
			app.surface.Close()
		}
	}
	return nil
}

// Post queues fn on the control task queue.
func (app *Application) Post(fn func()) error {
	return app.loop.post(fn)
}

// IsRunning reports whether Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Router returns the command router.
func (app *Application) Router() *router.Router {
	return app.router
}

// Store returns the settings store.
func (app *Application) Store() *config.Store {
	return app.store
}

// Surface returns the in-process presentation, or nil.
func (app *Application) Surface() *surface.Surface {
	return app.surface
}

// Addr returns the bridge address, or "" when the bridge is off.
func (app *Application) Addr() string {
	return app.addr
}

// DataDir returns the data directory.
func (app *Application) DataDir() string {
	return app.opts.DataDir
}

// reportError logs an error and shows it to the user.
func (app *Application) reportError(title, message string) {
	app.logger.Error("%s: %s", title, message)
	if app.surfaces.Dialogs != nil {
		app.surfaces.Dialogs.ShowError(title, message)
	}
}

func (app *Application) reportComponentError(err *ComponentError) {
	app.logger.Debug("%v", err)
	app.reportError(err.Title, err.Err.Error())
}

func (app *Application) reportPanic(err error) {
	app.logger.Error("task failed: %v", err)
}
