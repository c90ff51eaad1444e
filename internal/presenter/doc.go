// Package presenter drives the simulated digital-human presenter.
//
// # Status machine
//
// Presenter status moves through a fixed cycle:
//
//	idle -start-> preparing -ready-> listening -ask-> thinking -answered-> speaking
//	speaking -speechComplete-> listening
//	preparing -startFailure-> idle
//	any -stop-> idle
//
// Machine only answers whether a trigger applies; the Orchestrator decides what
// to do with inapplicable requests.
//
// # Orchestrator
//
// The Orchestrator owns at most one Session and publishes Events on its own
// event bus:
//
//	orch := presenter.NewOrchestrator(presenter.Config{Speaker: gw})
//	unsubscribe := orch.Subscribe(func(e presenter.Event) { ... })
//	sess, err := orch.StartSession(ctx, "")
//	err = orch.SendText(ctx, sess.ID, "讲讲勾股定理")
//
// Every stop or start bumps a session generation. Provisioning results,
// presenter answers and speech revert timers that belong to an older
// generation are dropped.
//
// # Tracker
//
// Tracker subscribes to an Orchestrator and keeps the aggregated view served
// by the HTTP API.
package presenter
