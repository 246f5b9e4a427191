package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/soundboard/internal/app"
	"github.com/dshills/soundboard/internal/bridge"
	"github.com/dshills/soundboard/internal/hotkey"
	"github.com/dshills/soundboard/internal/instance"
	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/term"
)

func runApp(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	logger, logOut, err := newLogger(opts, !opts.Headless)
	if err != nil {
		return err
	}
	defer logOut.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		surfaces app.Surfaces
		screen   *term.Terminal
	)
	if opts.Headless {
		surfaces = headlessSurfaces(logger)
	} else {
		screen, err = term.Open(logger)
		if err != nil {
			return fmt.Errorf("opening terminal: %w", err)
		}
		defer screen.Close()
		surfaces = app.Surfaces{
			Hotkeys: screen,
			Menu:    screen,
			Tray:    screen.Tray(),
			Dialogs: screen,
			View:    screen,
			Focus:   screen.Focus,
		}
	}

	application, err := app.New(app.Options{
		DataDir: opts.DataDir,
		Debug:   opts.Debug,
		Listen:  opts.Listen,
		Logger:  logger,
	}, surfaces)
	if err != nil {
		var running *instance.RunningError
		if errors.As(err, &running) {
			return raiseRunning(ctx, running, logger)
		}
		return err
	}
	defer application.Shutdown()

	if screen == nil {
		return application.Run(ctx)
	}

	screen.OnActivate(application.Activate)
	screen.OnQuit(application.Quit)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := screen.Run(ctx); err != nil {
			logger.Error("terminal: %v", err)
		}
		application.Quit()
	}()

	err = application.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// raiseRunning asks the running instance to come forward.
func raiseRunning(ctx context.Context, running *instance.RunningError, logger *logging.Logger) error {
	if running.Addr == "" {
		logger.Warn("another instance is running without a bridge")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := bridge.RequestFocus(ctx, running.Addr); err != nil {
		return fmt.Errorf("raising running instance: %w", err)
	}
	logger.Info("raised the instance at %s", running.Addr)
	return nil
}

// headlessSurfaces serves hotkeys and the menu to nobody. Presentation is
// left to bridge clients and errors end up in the log.
func headlessSurfaces(logger *logging.Logger) app.Surfaces {
	logger = logger.WithComponent("headless")
	holder := &menu.Holder{}
	holder.OnChange(func(tree menu.Tree) {
		logger.Debug("menu installed with %d commands", len(tree.Leaves()))
	})
	return app.Surfaces{
		Hotkeys: &loggedHotkeys{logger: logger, bound: make(map[string]func())},
		Menu:    holder,
		Dialogs: loggedDialogs{logger: logger},
	}
}

// loggedHotkeys accepts every accelerator. Without a terminal nothing can
// press them.
type loggedHotkeys struct {
	logger *logging.Logger

	mu    sync.Mutex
	bound map[string]func()
}

var _ hotkey.Registrar = (*loggedHotkeys)(nil)

func (h *loggedHotkeys) Register(accel string, fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bound[accel]; ok {
		return fmt.Errorf("%s already registered", accel)
	}
	h.bound[accel] = fn
	h.logger.Debug("registered %s", accel)
	return nil
}

func (h *loggedHotkeys) Unregister(accel string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bound, accel)
	h.logger.Debug("unregistered %s", accel)
	return nil
}

type loggedDialogs struct {
	logger *logging.Logger
}

func (d loggedDialogs) ShowError(title, message string) {
	d.logger.Error("%s: %s", title, message)
}
