// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free primitives behind the buddy allocator: the tagged block state
// table, Treiber stacks threaded through a node-indexed link table, a bounded
// MPMC queue, and cross-platform CPU pinning / identification.
//
// Tables are laid over storage supplied by an api.Backend, so none of the
// types here hold Go pointers inside their element arrays.
package concurrency
