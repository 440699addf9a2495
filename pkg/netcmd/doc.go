// Package netcmd implements the follower side of the addressed text
// command protocol spoken with the fleet coordinator.
//
// Every frame is a single line
//
//	[<address>] <token> <token> ...
//
// where address is a dotted-quad IPv4 address of a node or 0.0.0.0 for
// all nodes. A node reacts only to frames sent to 0.0.0.0 or to its own
// address.
package netcmd
