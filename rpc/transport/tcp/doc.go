// Package tcp implements the framed RPC transport over TCP sockets. It only supplies
// the connectors; framing, worker pools, retries and request correlation live in the
// base package.
//
// Socket options (TCP_NODELAY, keep-alive, buffer sizes, linger) are taken from the
// transport section of the server and client configuration. The default server read
// buffer is 512 KB.
package tcp
