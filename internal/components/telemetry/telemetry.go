// Package telemetry is the single reporting surface of clantool. Components
// never log directly, they report through an API so tests can assert on what
// was reported.
package telemetry

import (
	"fmt"
)

// API receives reports from crawler, reconciler and CLI components.
//
// Report ids name the component, not the failing line: `crawl.fetch`,
// `writer.halted`, `daemon.crawl-all`. They are lowercase, use a dot between
// package and operation and dashes inside an operation name. Every package
// keeps its ids as `report_*` constants.
type API interface {
	// ReportBroken reports a failure that needs an operator, like a halted
	// clan or an unreachable upstream.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something that was skipped or degraded but
	// recovers on its own, like a stale snapshot or a missing clan page.
	ReportWarning(id string, params ...any)
	// ReportDebug is dropped unless verbose output was requested.
	ReportDebug(msg string, params ...any)
	// ReportCount records a gauge value, such as the member count of a
	// roster. Values are points in time and are not summed.
	ReportCount(id string, count int64)
}

// KV is a named parameter, implementations render it as `Key=Value`.
type KV struct {
	Key   string
	Value any
}

// ScopedAPI prefixes every id with a namespace, typically the clan or the
// owning component.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
