// Package gamestream maintains a single long-lived server-sent event stream to
// the game server and delivers its typed events to in-process subscribers.
//
// A Manager owns the stream. It reads the bearer token from a
// CredentialSource, opens the stream through a Transport and reconnects with
// exponential backoff whenever the stream fails, until Disconnect is called.
// Decoded events are handed to a Dispatcher, which calls the subscribers of
// each event type in registration order.
//
//	transport, err := sse.New("https://example.com")
//	if err != nil {
//		return err
//	}
//
//	manager, err := gamestream.NewManager().
//		WithTransport(transport).
//		WithCredentials(store).
//		WithLogger(logger).
//		Build()
//	if err != nil {
//		return err
//	}
//
//	onState := gamestream.GameStateFunc(func(ctx context.Context, s gamestream.GameStatePayload) error {
//		fmt.Println("mistakes:", s.Mistakes)
//		return nil
//	})
//	manager.On(gamestream.EventGameState, onState)
//	defer manager.Off(gamestream.EventGameState, onState)
//
//	if err := manager.Connect(ctx); err != nil {
//		log.Println(err)
//	}
//	defer manager.Disconnect()
package gamestream
