package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/keybind"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/router"
	"github.com/dshills/soundboard/internal/watcher"
)

// registerHandlers installs the control side of every presentation->control
// channel.
func (app *Application) registerHandlers() error {
	control := app.router.Control()

	handlers := map[router.Channel]router.RequestHandler{
		router.ChannelSettingsPath:  app.handleSettingsPath,
		router.ChannelSettingsGet:   app.handleSettingsGet,
		router.ChannelSettingsSet:   app.handleSettingsSet,
		router.ChannelSettingsReset: app.handleSettingsReset,
	}
	for ch, h := range handlers {
		if err := control.Handle(ch, h); err != nil {
			return &InitError{Component: "router", Err: err}
		}
	}

	listeners := map[router.Channel]router.Listener{
		router.ChannelMenuReload:  app.onMenuReload,
		router.ChannelDialogError: app.onDialogError,
	}
	for ch, l := range listeners {
		if _, err := control.On(ch, l); err != nil {
			return &InitError{Component: "router", Err: err}
		}
	}
	return nil
}

// onLoop runs fn on the control queue and waits for its result.
func (app *Application) onLoop(ctx context.Context, fn func() (any, error)) (any, error) {
	var (
		result any
		err    error
	)
	if qerr := app.loop.do(ctx, func() { result, err = fn() }); qerr != nil {
		return nil, qerr
	}
	return result, err
}

func (app *Application) handleSettingsPath(context.Context, router.Message) (any, error) {
	return app.opts.DataDir, nil
}

// handleSettingsGet returns the whole document, or the value at a key when
// the request carries one.
func (app *Application) handleSettingsGet(ctx context.Context, msg router.Message) (any, error) {
	var key string
	if !msg.Empty() {
		if err := msg.Decode(&key); err != nil {
			return nil, err
		}
	}
	return app.onLoop(ctx, func() (any, error) {
		if key == "" {
			return app.store.Get(ctx)
		}
		return app.store.GetKey(ctx, key)
	})
}

func (app *Application) handleSettingsSet(ctx context.Context, msg router.Message) (any, error) {
	if msg.Empty() {
		return nil, fmt.Errorf("%w: empty patch", config.ErrInvalidPatch)
	}
	patch, err := config.ParsePatch(msg.Payload)
	if err != nil {
		return nil, err
	}
	return app.onLoop(ctx, func() (any, error) {
		return nil, app.reportWrite(app.store.Set(ctx, patch))
	})
}

func (app *Application) handleSettingsReset(ctx context.Context, _ router.Message) (any, error) {
	return app.onLoop(ctx, func() (any, error) {
		return nil, app.reportWrite(app.store.Reset(ctx))
	})
}

// reportWrite shows a failed settings write as a dialog and passes err on
// to the requester.
func (app *Application) reportWrite(err error) error {
	if errors.Is(err, config.ErrWrite) {
		app.reportError("Could not save settings", err.Error())
	}
	return err
}

func (app *Application) onMenuReload(msg router.Message) {
	var cfg menu.Config
	if err := msg.Decode(&cfg); err != nil {
		app.logger.Warn("menu reload: %v", err)
		return
	}
	app.post(func() {
		if err := app.menu.Rebuild(context.Background(), cfg); err != nil {
			app.reportError("Could not load settings", err.Error())
		}
	})
}

func (app *Application) onDialogError(msg router.Message) {
	var d router.Dialog
	if err := msg.Decode(&d); err != nil {
		app.logger.Warn("dialog: %v", err)
		return
	}
	app.post(func() { app.reportError(d.Title, d.Message) })
}

// trigger turns a pressed accelerator into a broadcast.
func (app *Application) trigger(a keybind.Action) {
	app.post(func() { app.fire(a) })
}

func (app *Application) fire(a keybind.Action) {
	control := app.router.Control()
	var err error
	switch {
	case a.Slot() >= 0:
		err = control.Notify(router.ChannelPlay, a.Slot())
	case a == keybind.ActionStop:
		err = control.Notify(router.ChannelStop, nil)
	case a == keybind.ActionNextSet:
		err = control.Notify(router.ChannelSelectSet, +1)
	case a == keybind.ActionPrevSet:
		err = control.Notify(router.ChannelSelectSet, -1)
	default:
		err = fmt.Errorf("unknown action %q", a)
	}
	if err != nil {
		app.logger.Error("fire %s: %v", a, err)
	}
}

// Activate sends the command of a menu item to the presentation.
func (app *Application) Activate(item menu.Item) {
	switch {
	case item.Role == menu.RoleQuit:
		app.Quit()
		return
	case item.Command == nil || !item.Enabled:
		return
	}
	cmd := *item.Command
	app.post(func() {
		if err := app.router.Control().Notify(cmd.Channel, cmd.Arg); err != nil {
			app.logger.Error("menu %s: %v", item.ID, err)
		}
	})
}

// onFileChange runs on a watcher goroutine.
func (app *Application) onFileChange(ev watcher.Event) {
	app.logger.Debug("%s changed (%s)", ev.Target, ev.Op)
	switch ev.Target {
	case watcher.TargetSettings:
		app.post(func() {
			app.store.Invalidate()
			if err := app.menu.Refresh(context.Background()); err != nil {
				app.reportError("Could not load settings", err.Error())
			}
		})
	case watcher.TargetSets:
		app.post(func() {
			if err := app.router.Control().Notify(router.ChannelLoadSets, nil); err != nil {
				app.logger.Error("sets reload: %v", err)
			}
		})
	}
}

func (app *Application) focus() {
	if app.surfaces.Focus == nil {
		return
	}
	app.post(app.surfaces.Focus)
}

func (app *Application) post(fn func()) {
	if err := app.loop.post(fn); err != nil {
		app.logger.Debug("dropped task: %v", err)
	}
}

// queuedPort hands every presentation delivery to the presentation queue,
// so listeners never run on the goroutine that broadcast.
type queuedPort struct {
	router.Port
	queue *queue
}

func (p *queuedPort) wrap(l router.Listener) router.Listener {
	return func(msg router.Message) {
		_ = p.queue.post(func() { l(msg) })
	}
}

func (p *queuedPort) On(ch router.Channel, l router.Listener) (*router.Subscription, error) {
	return p.Port.On(ch, p.wrap(l))
}

func (p *queuedPort) OnReplay(ch router.Channel, l router.Listener) (*router.Subscription, error) {
	return p.Port.OnReplay(ch, p.wrap(l))
}
