// Package uart assembles the dongle's serial byte stream into command lines.
package uart

// Lines are ASCII text terminated by CR or LF. Either delimiter ends a
// line and empty lines are ignored, so CRLF from a host counts once.
// A line longer than MaxLineLength is dropped silently and assembly
// restarts with the next byte; the sender gets no notification.
//
// Producer: Receiver, reading one byte at a time from the transport.
// Consumer: the device main loop, taking lines from a Mailbox.
