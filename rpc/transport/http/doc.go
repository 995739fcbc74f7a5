// Package http implements the RPC transport over plain HTTP.
//
// Every request is a POST to /{shardId} with the serialized message as body, the
// response body is the serialized reply. The server additionally exposes the
// VictoriaMetrics registry of the process at GET /metrics, which includes the
// flash, engine, object store and RPC counters.
//
// The client balances requests round-robin over all endpoints and retries failed
// requests on the next endpoint. Endpoints may be given with or without scheme.
//
// Thread Safety:
//
//	The client transport is safe for concurrent use after Connect.
package http
