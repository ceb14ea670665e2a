// Package preflight provides readiness checks for the tools, services, and
// filesystem paths mangadrop depends on.
//
// The CLI "mangadrop status" command runs RunAll to show what a checkout
// would trip over: a missing kindlegen binary, an unreachable MangaDex API,
// or a state directory without write access. Device presence is reported
// separately because it changes from minute to minute.
package preflight
