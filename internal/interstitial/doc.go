// Package interstitial implements the lifecycle of a full-screen ad unit.
//
// A Unit moves through four phases:
//
//	Idle ──LoadAd──▶ Loading ──OnLoaded──▶ Ready ──Show──▶ Showing
//	  ▲                 │                                     │
//	  └────OnFailed─────┘                                     │
//	  └───────────────────────OnDidDismiss────────────────────┘
//
// A load result arriving while Showing is held until the presentation is
// dismissed, after which the unit is Ready again. Show presents at most once
// per ready creative no matter how often or how concurrently it is called.
//
// # Collaborators
//
// A LoadCoordinator fetches and prepares creatives. It reports outcomes
// through LoadListener and, once a creative is on screen, interaction
// events through InteractionReporter. Unit implements both.
//
// # Threading
//
// Show must run on the UI execution context of the uiqueue.Scheduler given
// to New. Everything else may be called from any goroutine. Observers
// registered with SetObserver are always called on the UI execution
// context, in the order outcomes occurred.
//
// The presentation host passed to Show is held weakly. PresentationHost
// returns nil once the caller drops its last reference.
package interstitial
