package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	xterm "golang.org/x/term"

	"github.com/dshills/soundboard/internal/bridge"
	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/instance"
	"github.com/dshills/soundboard/internal/logging"
	"github.com/dshills/soundboard/internal/router"
)

var settingsTimeout = 10 * time.Second

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change settings.json",
	Long: `Read or change settings.json. Requests go to the running instance when
there is one, so it sees the change on its next read; otherwise the file is
read and written directly.`,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return settingsRequest(cmd, router.ChannelSettingsPath, nil)
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the settings document or one key (dotted paths allowed)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arg any
		if len(args) == 1 {
			arg = args[0]
		}
		return settingsRequest(cmd, router.ChannelSettingsGet, arg)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <json>",
	Short: "Merge a JSON object into the settings document",
	Example: `  soundboard settings set '{"keybinds": {"modifier": "Alt", "sound0": "1", "sound1": "2",
    "sound2": "3", "sound3": "4", "sound4": "5", "sound5": "6", "sound6": "7",
    "sound7": "8", "sound8": "9", "sound9": "0", "stop": "S", "nextSet": "N", "prevSet": "P"}}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !json.Valid([]byte(args[0])) {
			return fmt.Errorf("%w: not valid JSON", config.ErrInvalidPatch)
		}
		return settingsRequest(cmd, router.ChannelSettingsSet, json.RawMessage(args[0]))
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return settingsRequest(cmd, router.ChannelSettingsReset, nil)
	},
}

func init() {
	settingsCmd.AddCommand(settingsPathCmd, settingsGetCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// requester sends settings requests to whoever owns settings.json.
type requester interface {
	Request(ctx context.Context, ch router.Channel, arg any) (router.Message, error)
}

func settingsRequest(cmd *cobra.Command, ch router.Channel, arg any) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	logger, logOut, err := newLogger(opts, false)
	if err != nil {
		return err
	}
	defer logOut.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), settingsTimeout)
	defer cancel()

	target, closeTarget, err := settingsTarget(ctx, opts.DataDir, logger)
	if err != nil {
		return err
	}
	defer closeTarget()

	reply, err := target.Request(ctx, ch, arg)
	if err != nil {
		return err
	}
	return printPayload(cmd.OutOrStdout(), reply.Payload)
}

// settingsTarget prefers the running instance and falls back to the file.
func settingsTarget(ctx context.Context, dir string, logger *logging.Logger) (requester, func(), error) {
	if addr, err := instance.ReadAddr(dir); err == nil && addr != "" {
		client, err := bridge.Dial(ctx, addr, logger)
		if err == nil {
			return client, func() { _ = client.Close() }, nil
		}
		logger.Debug("no instance at %s: %v", addr, err)
	}

	store, err := config.Bootstrap(dir)
	if err != nil {
		return nil, nil, err
	}
	return &fileSettings{dir: dir, store: store}, func() {}, nil
}

// fileSettings answers settings requests from the document on disk.
type fileSettings struct {
	dir   string
	store *config.Store
}

func (f *fileSettings) Request(ctx context.Context, ch router.Channel, arg any) (router.Message, error) {
	var (
		result any
		err    error
	)
	switch ch {
	case router.ChannelSettingsPath:
		result = f.dir
	case router.ChannelSettingsGet:
		if key, _ := arg.(string); key != "" {
			result, err = f.store.GetKey(ctx, key)
		} else {
			result, err = f.store.Get(ctx)
		}
	case router.ChannelSettingsSet:
		raw, _ := arg.(json.RawMessage)
		var patch config.Patch
		if patch, err = config.ParsePatch(raw); err == nil {
			err = f.store.Set(ctx, patch)
		}
	case router.ChannelSettingsReset:
		err = f.store.Reset(ctx)
	default:
		err = &router.DeliveryError{Channel: ch, Err: router.ErrNoHandler}
	}
	if err != nil {
		return router.Message{}, err
	}

	payload, err := router.Encode(result)
	if err != nil {
		return router.Message{}, err
	}
	return router.Message{Channel: ch, Payload: payload}, nil
}

// printPayload writes a reply as indented JSON, colored on a terminal.
// Empty replies print nothing.
func printPayload(w io.Writer, payload json.RawMessage) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	out := pretty.Pretty(payload)
	if f, ok := w.(*os.File); ok && xterm.IsTerminal(int(f.Fd())) {
		out = pretty.Color(out, nil)
	}
	_, err := w.Write(out)
	return err
}
