// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation holds the message log of the active session.
//
// Sends are optimistic: the user's message is appended immediately with a
// pending status and reconciled when the backend replies. A reply is applied
// only if the stream has not navigated since the request was issued; every
// Load and Clear bumps a generation counter and cancels the outstanding
// request, so late replies for a session the user has left are discarded.
//
// # Lifecycle
//
//	Empty --Send--> Pending --reply--> Settled --Send--> Pending ...
//	  any --Load--> Pending --messages--> Settled (bound to the loaded id)
//	  any --Clear--> Empty (unbound)
//
// A stream is unbound until the first successful send (the backend assigns
// the session id) or a successful Load. Once bound, replies never rebind it.
//
// # Delivery status
//
// Locally fabricated user messages carry a status: pending while the request
// is outstanding, delivered once acknowledged, failed otherwise. Failed
// messages stay in the log and can be resent in place with Resend.
package conversation
