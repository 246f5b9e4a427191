// Package router carries messages between the privileged control side and
// the presentation surface it drives.
//
// Channels form a closed catalogue. Each channel has a kind and a direction:
//
//   - notify channels are fire-and-forget and reach every subscribed listener
//   - request channels go from presentation to control and produce exactly
//     one response or rejection
//
// A presentation listener that subscribes after control already broadcast
// on its channel can call Emit (or subscribe with OnReplay). Control then
// redelivers the most recent payload of that channel once. Nothing else is
// queued for late subscribers.
//
// Basic usage:
//
//	r := router.New()
//	r.Control().Handle(router.ChannelSettingsPath, func(ctx context.Context, _ router.Message) (any, error) {
//	    return dataDir, nil
//	})
//	r.Presentation().OnReplay(router.ChannelLoadSets, func(msg router.Message) {
//	    loadSets()
//	})
//	r.Control().Notify(router.ChannelLoadSets, nil)
package router
