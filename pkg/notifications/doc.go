// Package notifications persists and delivers user notifications.
//
// The package separates three concerns:
//
//   - Storage: persistence with upsert-by-id semantics, so a delivery job
//     that runs more than once leaves exactly one record
//   - Deliverer: real-time delivery, normally through the gateway emitter
//     into the recipient's user room
//   - Service: the submission front door, queue-first with a synchronous
//     fallback when the queue is unavailable
//
// # Delivery paths
//
// With a queue wired, Send turns the notification into a durable task; the
// worker persists and emits it with the queue's retry semantics. Without a
// queue, or when submission fails, Send persists and emits inline. The
// returned Receipt reports which path ran so transport handlers can tell
// the submitter.
//
//	receipt, err := svc.Send(ctx, notifications.Notification{
//	    UserID:  "42",
//	    Type:    notifications.TypeInfo,
//	    Title:   "Order shipped",
//	    Message: "Your order #7 is on the way",
//	})
package notifications
