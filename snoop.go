package main

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	datalinkHCIUnencapsulated uint32 = 1001
	datalinkHCIUART           uint32 = 1002

	snoopHeaderLen  = 16
	recordHeaderLen = 24

	recordFlagReceived       uint32 = 1
	recordFlagCommandOrEvent uint32 = 1 << 1

	h4ACL   byte = 0x02
	h4Event byte = 0x04

	attCID uint16 = 0x0004
)

var errNotSnoop = errors.New("not a btl snoop file")

var knownCharacteristics = map[string]string{
	"803c3b1f-d300-1120-0530-33a62b7838c9": "COMMAND",
}

// attPacket is a write from the host or a notification from the peripheral.
type attPacket struct {
	nr      Nr
	at      timestamp
	dir     direction
	handle  uint16
	payload []byte
}

// snoopDecoder walks the HCI records of a capture and hands every ATT write and
// notification of the tracked connection to onPacket.
type snoopDecoder struct {
	// address is the peer to follow in bToHex form, empty follows every
	// connection.
	address          string
	datalink         uint32
	connectionHandle uint16

	lastUncompletedPackage     []byte
	lastUncompletedPackageSize uint16

	handleToUUID map[uint16]string
	onPacket     func(attPacket)
}

func newSnoopDecoder(address string, onPacket func(attPacket)) *snoopDecoder {
	return &snoopDecoder{
		address:      address,
		handleToUUID: map[uint16]string{},
		onPacket:     onPacket,
	}
}

func (d *snoopDecoder) decode(snoopBytes []byte) error {
	if len(snoopBytes) < snoopHeaderLen || bToHex(snoopBytes[:8]) != "62 74 73 6e 6f 6f 70 00" {
		return errNotSnoop
	}
	snoopBytes = snoopBytes[8:]

	versionNumber := binary.BigEndian.Uint32(snoopBytes[:4])
	if versionNumber != 1 {
		return fmt.Errorf("expected btl snoop file format version 1 but got %d", versionNumber)
	}
	snoopBytes = snoopBytes[4:]

	d.datalink = binary.BigEndian.Uint32(snoopBytes[:4])
	switch d.datalink {
	case datalinkHCIUnencapsulated, datalinkHCIUART:
		// Expected
	case 1003:
		return errors.New("unsupported datalink type: HCI BSCP")
	case 1004:
		return errors.New("unsupported datalink type: HCI Serial (H5)")
	default:
		return fmt.Errorf("unsupported datalink type: reserved / unassigned (%d)", d.datalink)
	}
	snoopBytes = snoopBytes[4:]

	var nr Nr
	for len(snoopBytes) > 0 {
		nr++

		if len(snoopBytes) < recordHeaderLen {
			return fmt.Errorf("record %d: truncated header", nr)
		}
		originalLength := binary.BigEndian.Uint32(snoopBytes[:4])
		includedLength := binary.BigEndian.Uint32(snoopBytes[4:8])
		flags := binary.BigEndian.Uint32(snoopBytes[8:12])
		// cumulativeDrops := binary.BigEndian.Uint32(snoopBytes[12:16])
		at := timestamp(binary.BigEndian.Uint64(snoopBytes[16:24]))
		snoopBytes = snoopBytes[recordHeaderLen:]

		if uint32(len(snoopBytes)) < includedLength {
			return fmt.Errorf("record %d: expected %d bytes but only %d left", nr, includedLength, len(snoopBytes))
		}
		data := snoopBytes[:includedLength]
		snoopBytes = snoopBytes[includedLength:]

		if includedLength < originalLength {
			logger.Debugf("record %d: truncated from %d to %d bytes", nr, originalLength, includedLength)
		}
		if len(data) > 0 {
			d.parseRecord(data, flags, nr, at)
		}
	}

	return nil
}

func (d *snoopDecoder) parseRecord(data []byte, flags uint32, nr Nr, at timestamp) {
	if d.datalink == datalinkHCIUART {
		indicator := data[0]
		data = data[1:]
		switch indicator {
		case h4Event:
			d.parseEvent(data, nr)
		case h4ACL:
			d.decodeHciAclPacket(data, nr, at)
		}
		return
	}

	if flags&recordFlagCommandOrEvent != 0 {
		if flags&recordFlagReceived != 0 {
			d.parseEvent(data, nr)
		}
		return
	}
	d.decodeHciAclPacket(data, nr, at)
}

func (d *snoopDecoder) parseEvent(data []byte, nr Nr) {
	// 0x3e = LE meta event
	if len(data) < 3 || data[0] != 0x3e {
		return
	}

	subEvent := data[2]
	switch subEvent {
	case 0x01, 0x0a:
		// Sub Event: LE Connection Complete (0x01)
		// Sub Event: LE Enhanced Connection Complete (0x0a)
		if len(data) < 14 || data[3] != 0 {
			return
		}

		address := bToHex(reverse(append([]byte{}, data[8:14]...)))
		if d.address != "" && address != d.address {
			// This is not a package we're interested in
			return
		}

		d.connectionHandle = binary.LittleEndian.Uint16(data[4:6]) & 0x0fff
		logger.Debugf("%d: connected to %s with handle %d", nr, address, d.connectionHandle)
	case 0x02, 0x03, 0x04, 0x06:
		// Advertising reports, connection updates, remote features and
		// connection parameter requests carry nothing we need
	}
}

const (
	pbFlagSend     byte = 0x00
	pbFlagRec      byte = 0x20
	pbFlagContinue byte = 0x10
)

func (d *snoopDecoder) decodeHciAclPacket(data []byte, nr Nr, at timestamp) {
	if len(data) < 4 {
		return
	}

	dataConnectionHandle := binary.LittleEndian.Uint16(data[:2]) & 0x0fff
	if d.connectionHandle == 0 && d.address != "" {
		return
	}
	if d.connectionHandle != 0 && dataConnectionHandle != d.connectionHandle {
		return
	}

	pbFlag := data[1] & 0x30 /* 0011 0000 */

	size := binary.LittleEndian.Uint16(data[2:4])
	if int(size) > len(data)-4 {
		logger.Warnf("%d: ACL packet claims %d bytes but carries %d", nr, size, len(data)-4)
		return
	}
	data = data[4 : 4+size]

	switch pbFlag {
	case pbFlagSend, pbFlagRec:
		// ..00 .... = PB Flag: First Non-automatically Flushable Packet (0)
		// ..10 .... = PB Flag: First Automatically Flushable Packet (2)
	case pbFlagContinue:
		// ..01 .... = PB Flag: Continuing Fragment (1)
		if d.lastUncompletedPackage == nil {
			return
		}
		d.lastUncompletedPackage = append(d.lastUncompletedPackage, data...)
		if d.lastUncompletedPackageSize > uint16(len(d.lastUncompletedPackage)) {
			return
		}

		d.parseAtt(d.lastUncompletedPackage[:d.lastUncompletedPackageSize], nr, at)

		d.lastUncompletedPackage = nil
		d.lastUncompletedPackageSize = 0
		return
	default:
		return
	}

	if len(data) < 4 {
		return
	}
	dataLen := binary.LittleEndian.Uint16(data[:2])
	if cid := binary.LittleEndian.Uint16(data[2:4]); cid != attCID {
		logger.Tracef("%d: skipping L2CAP channel 0x%04x", nr, cid)
		return
	}

	if int(dataLen) > len(data)-4 {
		d.lastUncompletedPackage = append([]byte{}, data[4:]...)
		d.lastUncompletedPackageSize = dataLen
	} else {
		d.parseAtt(data[4:4+dataLen], nr, at)
	}
}

func (d *snoopDecoder) parseAtt(data []byte, nr Nr, at timestamp) {
	if len(data) == 0 {
		return
	}

	methodMask := byte(0x3F) /* 00111111 */
	method := data[0] & methodMask
	switch method {
	case 0x12:
		// ..01 0010 = Method: Write Request (0x12)
		// 0101 0010 = Method: Write Command (0x52)
		d.emit(data, nr, at, dirWrite)
	case 0x1b, 0x1d:
		// ..01 1011 = Method: Handle Value Notification (0x1b)
		// ..01 1101 = Method: Handle Value Indication (0x1d)
		d.emit(data, nr, at, dirNotify)
	case 0x09:
		// ..00 1001 = Method: Read By Type Response (0x09)
		if len(data) < 2 {
			return
		}
		attributeLen := int(data[1])
		data = data[2:]
		for attributeLen > 0 && len(data) >= attributeLen {
			if attributeLen == 21 {
				characteristicValueHandle := binary.LittleEndian.Uint16(data[3:5])
				uuid, err := bToUUID(data[5:21], true)
				if err == nil {
					d.handleToUUID[characteristicValueHandle] = uuid
				}
			}
			data = data[attributeLen:]
		}
	default:
		logger.Tracef("%d: ignoring ATT method 0x%02x", nr, method)
	}
}

func (d *snoopDecoder) emit(data []byte, nr Nr, at timestamp, dir direction) {
	if len(data) < 3 {
		return
	}
	handle := binary.LittleEndian.Uint16(data[1:3])
	payload := data[3:]
	logger.Tracef("%d: %s handle %d payload %q", nr, dir, handle, payload)

	d.onPacket(attPacket{
		nr:      nr,
		at:      at,
		dir:     dir,
		handle:  handle,
		payload: append([]byte{}, payload...),
	})
}
