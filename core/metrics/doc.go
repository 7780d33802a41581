// Package metrics defines the observability sinks fed by the poll loop. Every
// sink records poll outcomes; sinks that also implement SlotStateRecorder
// receive the slot predicates of each derived tree. Implementations live in
// infra/metrics and register themselves with RegisterMetricsSink.
package metrics
