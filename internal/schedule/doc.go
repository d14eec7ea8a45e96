// Package schedule assigns publish slots under daily-quota and
// time-of-day-window constraints.
//
// The planner is a pure computation over its inputs: no clock access, no
// randomness, no stored state. For a fixed set of taken slots and a fixed
// "now" it always returns the same answer, which keeps slot assignment
// testable across timezones and DST boundaries.
package schedule
