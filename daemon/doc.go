// Package daemon assembles the engine: a task store, a handler registry,
// and a worker pool behind one embeddable facade.
//
// Typical use:
//
//	d, err := daemon.New(config.Default())
//	if err != nil { ... }
//	d.RegisterFunc("send_email", sendEmail)
//	if err := d.Run(context.Background()); err != nil { ... }
//
// Run blocks until SIGINT/SIGTERM or context cancellation, then drains
// in-flight work and closes the store. Producers embedded in the same
// process use Submit, Task, Tasks, Redrive and Delete; the daemon process
// itself stays single-binary with no network surface.
package daemon
