// Package flight implements the flight-control core: a four-phase state
// machine (Idle, TakingOff, Automatic, Landing) driven by a fixed-period
// tick, four single-axis PID loops, and last-write-wins cells holding
// the latest vehicle pose and goal pose.
//
// Each tick converts the desired world-frame pose and the measured
// world-frame pose into one body-frame velocity command:
//
//	ctrl := flight.New(cfg.Frame, publisher, flight.Options{})
//	go ctrl.Run(ctx)
//	ctrl.UpdatePose(pose)   // async, from the pose feed
//	ctrl.RequestTakeoff()   // async trigger
//
// # Thread Safety
//
// UpdatePose, UpdateGoal, RequestTakeoff and RequestLand may be called
// from any goroutine. The tick loop is the single logical actor; no two
// ticks overlap.
package flight
