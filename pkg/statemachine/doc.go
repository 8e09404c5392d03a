// Package statemachine implements a small finite state machine with guards,
// actions and transition listeners.
//
// A machine is defined with options and driven with Fire:
//
//	sm := statemachine.MustNew(Starting,
//		statemachine.WithTransition(Starting, Active, Activate),
//		statemachine.WithTransition(Active, Terminating, Terminate,
//			statemachine.WithActions(stopTimers)),
//		statemachine.WithListener(logTransition),
//	)
//	if err := sm.Fire(ctx, Activate, nil); err != nil {
//		// statemachine.IsNoTransitionAvailableError(err) or IsTransitionRejectedError(err)
//	}
//
// Guards of candidate transitions are evaluated in the order the transitions
// were added; the first candidate whose guards all pass is taken. Actions run
// before the state changes and an action error aborts the transition.
// Listeners run after the change and outside the machine lock, so they may
// read Current.
package statemachine
