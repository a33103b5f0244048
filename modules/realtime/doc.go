// Package realtime is the domain module on top of the connection gateway:
// it maps store events (orders, stock, notifications, presence) onto wire
// events and enforces the authorization rules for socket-originated
// mutations.
//
// The gateway package (pkg/realtime) knows nothing about orders or
// notifications; this module registers handlers on it and receives the
// broadcast emitter by injection. REST handlers publish the same domain
// events through the same emitter.
package realtime
