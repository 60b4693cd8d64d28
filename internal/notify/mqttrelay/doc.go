// Package mqttrelay forwards snapshot insert notifications to an MQTT broker.
//
// The relay holds one persistent changefeed watcher per collection and
// publishes the SnapshotMeta of every insert as JSON to
// <topic_prefix>/<collection>. Payload bodies are never published; consumers
// fetch them over HTTP. Publishing is best effort: when the broker is slow
// the watcher buffer overflows and notifications are dropped and counted.
package mqttrelay
