// Package message defines the hook payload and the classifier that derives it
// from raw source messages.
//
// Classification labels a message dm or group from the transport event kind,
// resolves sender and body from whichever fields the source populated, and
// marks priority when the sender equals the configured owner exactly (no case
// folding, no alias resolution). Messages missing a sender or a textual body
// are dropped rather than dispatched malformed.
package message
