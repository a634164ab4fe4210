// Package natssink publishes goSession audit events to NATS.
//
// Every event is encoded as JSON and published to "<Subject>.<event_type>",
// so consumers can subscribe to "gosession.audit.>" or to one event type.
// Publishing is fire-and-forget; failures are logged and counted.
package natssink
