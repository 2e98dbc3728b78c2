// Package vibease implements the framing and obfuscation layer of the Vibease
// BLE protocol.
//
// Commands are scrambled with a shared key, base64 encoded and split into
// packets such as "*d0t7Y2RWRwVXQ2N3>" ... "<RQ==!". The first character tells
// the message type (or marks a continuation), the last one whether more
// packets follow. A Session reassembles and decodes them again. Before the
// handshake both directions use the secondary static key; the peripheral's
// "HS=" reply provides the key for the rest of the connection.
package vibease
