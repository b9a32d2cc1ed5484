// Package observability records what the notification service did. Events
// are appended to a JSON Lines log; delivery metrics and failure alerts are
// derived from that log on demand.
package observability
