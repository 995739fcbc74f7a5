// Package base implements the framed stream transport shared by the tcp and unix
// packages. Each frame is [shardID:8][requestID:8][length:4][payload], all big endian;
// responses echo the shard and request id of their request.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Core client implementation that manages multiple connections
//     with round-robin load balancing. Supports multiple connections per endpoint
//     for improved throughput.
//
//   - serverTransport: Core server implementation that accepts connections and
//     routes requests to the appropriate handler based on shardID. Each connection
//     runs at most WorkersPerConn requests concurrently. The read timeout is an idle
//     timeout after which the server closes the connection.
//
// Performance Optimizations:
//
//   - Connection Pooling: Multiple connections per endpoint. A failed connection is
//     dropped with all its pending requests and dialed again by the next request
//     that picks it.
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse buffers, reducing
//     GC pressure and memory allocations.
//
//   - Asynchronous Processing: The client sends requests and correlates responses
//     asynchronously using unique request IDs, enabling higher throughput.
//
//   - Frame Batching: The transport uses net.Buffers to reduce syscalls when
//     writing frames, combining header and payload into a single write operation.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport uses atomic operations
//	and mutexes to ensure concurrent access safety, while the server creates a
//	dedicated goroutine for each connection.
package base
