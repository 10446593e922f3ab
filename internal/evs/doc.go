// Package evs multiplexes exclusive hardware camera and display sessions
// across multiple client sessions.
//
// The broker has four layers:
//
//   - Enumerator: client entry point. Resolves camera ids (including
//     logical multi-camera composites) to physical devices, owns the
//     registry of active hardware sessions and the single active display.
//   - HalCamera: one per open physical device. Fans frames out to its
//     clients, reference-counts the shared buffers, negotiates the device
//     buffer pool and arbitrates the master (parameter-control) role.
//   - VirtualCamera: one per client session. Enforces the client's buffer
//     quota, tracks buffers the client still holds and runs the per-client
//     stream state machine.
//   - HalDisplay: identity wrapper over the display handle so stale close
//     calls from superseded sessions can be detected.
//
// Clients never touch hardware handles directly; everything goes through
// these proxies, which is what makes buffer accounting and master
// arbitration centrally enforceable.
package evs
