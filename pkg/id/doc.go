// Package id provides run identifiers for hhdiag: 128-bit values that sort
// by creation time.
//
// The layout is [8 bytes ms_timestamp][8 bytes sequence], big-endian, so IDs
// created in the same millisecond still increase strictly. The Generator pins
// to the last seen millisecond when the clock regresses.
//
//	runID := id.New()
//	fmt.Println(runID)          // 32 hex chars
//	fmt.Println(runID.Short())  // last 8, for terminal listings
//	parsed, _ := id.Parse(runID.String())
package id
