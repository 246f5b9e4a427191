package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/soundboard/internal/bridge"
	"github.com/dshills/soundboard/internal/instance"
	"github.com/dshills/soundboard/internal/menu"
	"github.com/dshills/soundboard/internal/surface"
	"github.com/dshills/soundboard/internal/term"
)

var attachAddr string

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Show and play sounds for a running instance",
	Long: `attach connects to a running soundboard over its bridge and acts as its
presentation: it plays the sounds the instance's hotkeys select and shows
the current set. The address is read from the data directory unless --addr
is given.`,
	Args: cobra.NoArgs,
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachAddr, "addr", "", "bridge address of the running instance")
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	addr := attachAddr
	if addr == "" {
		if addr, err = instance.ReadAddr(opts.DataDir); err != nil {
			return err
		}
	}
	if addr == "" {
		return errors.New("no running instance with a bridge")
	}

	logger, logOut, err := newLogger(opts, true)
	if err != nil {
		return err
	}
	defer logOut.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := bridge.Dial(ctx, addr, logger)
	if err != nil {
		return fmt.Errorf("attaching to %s: %w", addr, err)
	}
	defer client.Close()

	screen, err := term.Open(logger)
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer screen.Close()
	screen.OnQuit(cancel)
	if err := screen.Tray().Install(menu.Tray("soundboard (attached to " + addr + ")")); err != nil {
		return err
	}

	presentation := surface.New(client, surface.NewLogPlayer(logger), surface.SystemDevices{}, screen, logger)
	if err := presentation.Start(ctx); err != nil {
		return err
	}
	defer presentation.Close()

	go func() {
		select {
		case <-client.Done():
			logger.Info("instance at %s went away", addr)
			cancel()
		case <-ctx.Done():
		}
	}()

	return screen.Run(ctx)
}
