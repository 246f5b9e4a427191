package router

import "sort"

// Channel names one route across the control/presentation boundary.
type Channel string

// Channel catalogue.
const (
	// ChannelPlay fires a slot. Payload: slot index 0-9.
	ChannelPlay Channel = "sounds:play"
	// ChannelStop stops playback. No payload.
	ChannelStop Channel = "sounds:stop"
	// ChannelSelectSet moves the set selection. Payload: +1 or -1.
	ChannelSelectSet Channel = "sounds:sets:select"
	// ChannelLoadSets asks the presentation to enumerate set files. No payload.
	ChannelLoadSets Channel = "sounds:sets:load"
	// ChannelLoadDevices asks the presentation to enumerate output devices.
	ChannelLoadDevices Channel = "devices:load"

	// ChannelMenuReload rebuilds the menu. Payload: menu configuration.
	ChannelMenuReload Channel = "menu:reload"
	// ChannelDialogError shows an error to the user. Payload: Dialog.
	ChannelDialogError Channel = "dialog:error"
	// ChannelEmit asks control to redeliver a broadcast. Payload: channel name.
	ChannelEmit Channel = "emit"

	// ChannelSettingsPath returns the data directory.
	ChannelSettingsPath Channel = "settings:path"
	// ChannelSettingsGet returns the document, or one value when a key is given.
	ChannelSettingsGet Channel = "settings:get"
	// ChannelSettingsSet merges a partial document.
	ChannelSettingsSet Channel = "settings:set"
	// ChannelSettingsReset restores the defaults.
	ChannelSettingsReset Channel = "settings:reset"
)

// Kind is the message discipline of a channel.
type Kind int

const (
	// KindNotify is fire-and-forget.
	KindNotify Kind = iota
	// KindRequest expects exactly one response or rejection.
	KindRequest
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotify:
		return "notify"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Direction is the side that sends on a channel.
type Direction int

const (
	// ToPresentation channels are sent by control.
	ToPresentation Direction = iota
	// ToControl channels are sent by the presentation.
	ToControl
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case ToPresentation:
		return "control->presentation"
	case ToControl:
		return "presentation->control"
	default:
		return "unknown"
	}
}

// Info describes a catalogued channel.
type Info struct {
	Channel   Channel
	Kind      Kind
	Direction Direction
}

var catalogue = map[Channel]Info{
	ChannelPlay:          {ChannelPlay, KindNotify, ToPresentation},
	ChannelStop:          {ChannelStop, KindNotify, ToPresentation},
	ChannelSelectSet:     {ChannelSelectSet, KindNotify, ToPresentation},
	ChannelLoadSets:      {ChannelLoadSets, KindNotify, ToPresentation},
	ChannelLoadDevices:   {ChannelLoadDevices, KindNotify, ToPresentation},
	ChannelMenuReload:    {ChannelMenuReload, KindNotify, ToControl},
	ChannelDialogError:   {ChannelDialogError, KindNotify, ToControl},
	ChannelEmit:          {ChannelEmit, KindNotify, ToControl},
	ChannelSettingsPath:  {ChannelSettingsPath, KindRequest, ToControl},
	ChannelSettingsGet:   {ChannelSettingsGet, KindRequest, ToControl},
	ChannelSettingsSet:   {ChannelSettingsSet, KindRequest, ToControl},
	ChannelSettingsReset: {ChannelSettingsReset, KindRequest, ToControl},
}

// Lookup returns the catalogue entry for ch.
func Lookup(ch Channel) (Info, bool) {
	info, ok := catalogue[ch]
	return info, ok
}

// Channels returns every catalogued channel, sorted by name.
func Channels() []Channel {
	out := make([]Channel, 0, len(catalogue))
	for ch := range catalogue {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Broadcasts returns the control->presentation notify channels, sorted by name.
func Broadcasts() []Channel {
	var out []Channel
	for _, ch := range Channels() {
		info := catalogue[ch]
		if info.Kind == KindNotify && info.Direction == ToPresentation {
			out = append(out, ch)
		}
	}
	return out
}

// Check returns a DeliveryError unless ch is catalogued with kind k and
// direction d.
func Check(ch Channel, k Kind, d Direction) error {
	info, ok := Lookup(ch)
	if !ok {
		return &DeliveryError{Channel: ch, Err: ErrUnknownChannel}
	}
	if info.Kind != k {
		return &DeliveryError{Channel: ch, Err: ErrWrongKind}
	}
	if info.Direction != d {
		return &DeliveryError{Channel: ch, Err: ErrWrongDirection}
	}
	return nil
}
