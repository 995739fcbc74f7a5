// Package transport defines the interfaces between the RPC server and client and the
// network. Requests and responses are opaque byte slices addressed to a shard id; the
// serializer package gives them meaning.
//
// Implementations: base (framed streams, used by tcp and unix) and http.
package transport
