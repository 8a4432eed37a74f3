/*
Copyright 2025 The Mysqlbulk Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mysql

const (
	// MaxPacketSize is the maximum payload length of a packet
	// the server supports.
	MaxPacketSize = (1 << 24) - 1

	// connBufferSize is how much we buffer for reading and writing.
	connBufferSize = 16 * 1024

	// packetHeaderSize is the 3 length bytes plus the sequence byte.
	packetHeaderSize = 4

	// DefaultMaxAllowedPacket is assumed when the session has no
	// server-advertised value.
	DefaultMaxAllowedPacket = 64 << 20
)

// Capability flags, as exchanged during the handshake.
const (
	// CapabilityClientLocalFiles permits LOAD DATA LOCAL INFILE.
	CapabilityClientLocalFiles = 1 << 7

	// CapabilityClientProtocol41 is the 4.1 protocol, always set by
	// current servers.
	CapabilityClientProtocol41 = 1 << 9

	// CapabilityClientTransactions reports transaction status in OK
	// packets.
	CapabilityClientTransactions = 1 << 13

	// CapabilityClientDeprecateEOF replaces trailing EOF packets with
	// OK packets.
	CapabilityClientDeprecateEOF = 1 << 24
)

// Server status flags carried in OK packets.
const (
	ServerStatusInTrans    = 0x0001
	ServerStatusAutocommit = 0x0002
)

// Column definition flags.
const (
	// NotNullFlag marks a column that rejects NULL.
	NotNullFlag = 0x1

	// AutoIncrementFlag marks an auto-increment column.
	AutoIncrementFlag = 0x200
)

// Commands.
const (
	// ComQuery is the query command.
	ComQuery = 0x03
)

// First byte of a server reply packet.
const (
	// OKPacket is the header of the OK packet.
	OKPacket = 0x00

	// EOFPacket is the header of the EOF packet.
	EOFPacket = 0xfe

	// ErrPacket is the header of the error packet.
	ErrPacket = 0xff

	// LocalInfilePacket is the header of the request that asks the
	// client to stream a local file.
	LocalInfilePacket = 0xfb

	// NullValue is the marker for a NULL field in a text row packet.
	NullValue = 0xfb
)

// Error codes returned by the server, or generated locally with server
// semantics.
const (
	ERAccessDeniedError = 1045
	ERDupEntry          = 1062
	ERSyntaxError       = 1064
	ERUnknownError      = 1105
	ERFileNotFound      = 1017
	ERNoSuchTable       = 1146
	ERNetPacketTooLarge = 1153
	ERQueryInterrupted  = 1317
)

// SQL states.
const (
	SSUnknownSQLState   = "HY000"
	SSAccessDeniedError = "28000"
	SSClientError       = "42000"
	SSDupKey            = "23000"
	SSNetError          = "08S01"
	SSQueryInterrupted  = "70100"
	SSUnknownTable      = "42S02"
)
