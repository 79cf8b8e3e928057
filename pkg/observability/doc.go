/*
Package observability turns serializer lifecycle hooks into metrics and logs.

Metrics are kept in a private Prometheus registry. Exports are short-lived
processes, so the registry is persisted with WriteTextfile for the node
exporter textfile collector instead of being scraped.
*/
package observability
