// Package serverquery provides a Go client for the TeamSpeak 3 ServerQuery
// protocol.
//
// # Protocol Overview
//
// ServerQuery is a line-oriented text protocol over TCP. Every line ends
// with "\n\r". A command is answered by an optional data line and a status
// line; the server may push event notifications at any time, interleaved
// with responses on the same stream. Commands carry no request ID, so
// responses are matched to commands in send order.
//
// # Basic Usage
//
//	sess := serverquery.NewSession(serverquery.WithLogger(logger))
//	if err := sess.Connect(ctx, 10011, "localhost"); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	resp, err := sess.Exec(ctx, "use", serverquery.Fields{"sid": 1})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err = sess.Exec(ctx, "clientlist", serverquery.Fields{"uid": true})
//	for _, client := range resp.Records() {
//	    fmt.Println(client["client_nickname"])
//	}
//
// Send returns a *Pending without waiting, so several commands can be in
// flight at once:
//
//	a, _ := sess.Send("version", nil)
//	b, _ := sess.Send("whoami", nil)
//	ra, errA := a.Wait(ctx)
//	rb, errB := b.Wait(ctx)
//
// # Response Shape
//
// Response.Data is nil when the reply had no data line, a Record when it
// held one record, and a []Record when it held several. Response.Records
// always returns a slice.
//
// # Event Handling
//
// Events are published on typed topics after the server has been asked to
// send them with servernotifyregister:
//
//	sess.Events().Text.Subscribe(func(e serverquery.TextEvent) {
//	    fmt.Println(e.Field("invokername"), e.Field("msg"))
//	})
//	sess.Events().Close.Subscribe(func(e serverquery.CloseEvent) {
//	    fmt.Println("closed:", e.Err)
//	})
//
// # Thread Safety
//
// Session is safe for concurrent use. Codec and parser functions are pure.
package serverquery
