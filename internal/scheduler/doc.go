// Package scheduler drives the poll loop.
//
// A Scheduler owns the watermark. It starts at now minus the interval, runs
// one cycle immediately, then one per tick. A successful cycle moves the
// watermark to the cycle's start time; a failed one leaves it so the next
// cycle asks for the same window again. Duplicate delivery across that
// retry is accepted.
package scheduler
