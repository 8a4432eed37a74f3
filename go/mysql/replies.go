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

// The tagged server replies a bulk operation distinguishes. Anything
// else (column definitions, row packets) is passed through as Raw for
// the result reader.

// Reply is one parsed server packet.
type Reply interface {
	isReply()
}

// ReplyOK is the server's OK packet.
type ReplyOK struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  uint16
	Warnings     uint16
}

// ReplyErr is the server's ERR packet.
type ReplyErr struct {
	Err *SQLError
}

// ReplyLocalInfile is the server's request for the client to stream a
// local file.
type ReplyLocalInfile struct {
	Filename string
}

// ReplyRaw is any other packet, unparsed.
type ReplyRaw struct {
	Data []byte
}

func (*ReplyOK) isReply()          {}
func (*ReplyErr) isReply()         {}
func (*ReplyLocalInfile) isReply() {}
func (*ReplyRaw) isReply()         {}

// isEOFPacket determines whether a data packet is a true EOF. DO NOT
// blindly compare the first byte of a packet to EOFPacket: OK packets
// with the EOF header and length-encoded integers both start with
// 0xfe, so the length must be checked too.
func isEOFPacket(data []byte) bool {
	return len(data) > 0 && data[0] == EOFPacket && len(data) < 9
}

// parseOKPacket parses an OK packet, or an EOF-header OK packet as sent
// when CapabilityClientDeprecateEOF is on.
func parseOKPacket(data []byte) (*ReplyOK, error) {
	pos := 1 // skip the header byte
	affectedRows, pos, ok := readLenEncInt(data, pos)
	if !ok {
		return nil, newProtocolError("invalid OK packet affected rows: %v", data)
	}
	lastInsertID, pos, ok := readLenEncInt(data, pos)
	if !ok {
		return nil, newProtocolError("invalid OK packet last insert id: %v", data)
	}
	statusFlags, pos, ok := readUint16(data, pos)
	if !ok {
		return nil, newProtocolError("invalid OK packet status flags: %v", data)
	}
	warnings, _, ok := readUint16(data, pos)
	if !ok {
		return nil, newProtocolError("invalid OK packet warnings: %v", data)
	}
	return &ReplyOK{
		AffectedRows: affectedRows,
		LastInsertID: lastInsertID,
		StatusFlags:  statusFlags,
		Warnings:     warnings,
	}, nil
}

// ParseErrorPacket parses the ERR packet into a *SQLError.
func ParseErrorPacket(data []byte) *SQLError {
	// Skip the ERR header byte and read the error code.
	code, pos, ok := readUint16(data, 1)
	if !ok {
		return NewSQLError(ERUnknownError, SSUnknownSQLState, "invalid error packet code: %v", data)
	}

	// '#' marker of the optional SQL state.
	state := SSUnknownSQLState
	if marker, next, ok := readByte(data, pos); ok && marker == '#' {
		stateBytes, next, ok := readBytes(data, next, 5)
		if !ok {
			return NewSQLError(ERUnknownError, SSUnknownSQLState, "invalid error packet sqlstate: %v", data)
		}
		state = string(stateBytes)
		pos = next
	}

	msg, _, _ := readEOFString(data, pos)
	return &SQLError{
		Num:     int(code),
		State:   state,
		Message: msg,
	}
}

// parseReply classifies one server packet received while a command is
// outstanding.
func parseReply(data []byte) (Reply, error) {
	if len(data) == 0 {
		return nil, newProtocolError("empty server packet")
	}
	switch {
	case data[0] == OKPacket:
		ok, err := parseOKPacket(data)
		if err != nil {
			return nil, err
		}
		return ok, nil
	case isEOFPacket(data):
		// With CapabilityClientDeprecateEOF this is an OK packet
		// wearing the EOF header. A classic EOF packet is shorter
		// and carries no row counts: hand it through raw.
		if len(data) < 7 {
			return &ReplyRaw{Data: data}, nil
		}
		ok, err := parseOKPacket(data)
		if err != nil {
			return nil, err
		}
		return ok, nil
	case data[0] == ErrPacket:
		return &ReplyErr{Err: ParseErrorPacket(data)}, nil
	case data[0] == LocalInfilePacket:
		filename, _, _ := readEOFString(data, 1)
		return &ReplyLocalInfile{Filename: filename}, nil
	}
	return &ReplyRaw{Data: data}, nil
}
