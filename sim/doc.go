// Package sim provides the discrete-event simulation of cars competing for parking spots.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - scheduler.go: simulated clock and the event queue (time order, FIFO on ties)
//   - spot.go: parking spots and the reservation protocol (lapse, reserve, confirm, occupy)
//   - car.go: the Parked → Traveling → Searching state machine
//   - world.go: composition of the above; the only place cars search from
//
// # Architecture
//
// Spatial lookup lives in sim/geo (Z-order keys over an ordered table); transition
// recording lives in sim/trace. Both are pure data packages with no dependency on sim.
//
// Everything runs on one goroutine in logical time. A car "waits" by scheduling its
// next wake-up; the scheduler stores only (car, time) and the world dispatches on the
// car's current state. Spots are addressed by index into an arena owned by the world,
// and every occupancy or reservation change goes through SpotTable.
//
// # Determinism
//
// All randomness comes from a PartitionedRNG derived from the configured seed. Two
// worlds built from the same Config and driven by the same calls produce identical
// transition sequences, regardless of what other worlds run in parallel.
package sim
