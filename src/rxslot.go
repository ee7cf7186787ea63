package avionics

/*------------------------------------------------------------------
 *
 * Purpose:	Live receive state for one configured label.
 *
 *------------------------------------------------------------------*/

// RxSlot is the live state for one configured label within a RxGroup.
// IsFresh is never cached: it is recomputed on every read from the current
// clock, never stored across a `now` change (invariant 4).
type RxSlot struct {
	RawWord uint32
	SSM     SSM
	SDI     uint8

	EngFloat float64
	EngInt   int32

	DiscreteBits uint32

	LastGoodMs uint32

	// IsNotBabbling is true when the gap since the previous good receipt
	// was >= the label's min_transmit_interval_ms. It is computed once,
	// at the moment of the *next* good receipt (process_received step 4),
	// and held until then.
	IsNotBabbling bool

	// everReceived distinguishes "never heard" from "heard exactly at
	// t=0"; LastGoodMs alone can't tell the difference.
	everReceived bool
}
