// Package unix implements the framed RPC transport over Unix domain sockets for
// clients on the same machine as the server, typically the eekv CLI talking to a
// local device server. The endpoint is the socket path; a stale socket file is
// removed on Listen.
package unix
