// Package infra holds the technical adapters: console, MQTT and HTTP
// inputs/outputs, metrics sinks and status notifiers. These packages
// depend only on the interfaces defined in the core packages.
package infra
