package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/cihub/seelog"
	"github.com/mjarkk/decode-vibease-ble-packets/vibease"
	"github.com/muesli/termenv"
)

var style *termenv.Output

// logger carries diagnostics on stderr, stdout is reserved for decoded output.
var logger seelog.LoggerInterface = seelog.Disabled

func init() {
	style = termenv.NewOutput(os.Stdout)
}

func initLogger(level string) error {
	lvl, found := seelog.LogLevelFromString(level)
	if !found {
		return fmt.Errorf("log level '%s' is invalid", level)
	}

	l, err := seelog.LoggerFromWriterWithMinLevelAndFormat(os.Stderr, lvl, "%Time [%LEV] %Msg%n")
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func printErr(err string) {
	fmt.Println(style.String(err).Foreground(termenv.ANSIBrightRed))
}

func fatal(err string) {
	printErr(err)
	logger.Flush()
	os.Exit(1)
}

func warn(msg string) {
	fmt.Println(style.String("warning: " + msg).Foreground(termenv.ANSIYellow))
}

func applyMeta(s string) termenv.Style {
	return style.String(s).Italic()
}

type hexStyleFlags int

const (
	hexStyleDescrambled hexStyleFlags = 1
)

func hexStyle(b []byte, flags hexStyleFlags) string {
	bytesString := ""
	for i, bt := range b {
		if i != 0 {
			bytesString += " "
		}
		bytesString += style.String(hex.EncodeToString([]byte{bt})).Foreground(termenv.ANSIGreen).String()
	}

	resp := fmt.Sprintf("[%s]", bytesString)

	if flags&hexStyleDescrambled == hexStyleDescrambled {
		resp += style.String(" Descrambled").Foreground(termenv.ANSIBrightBlack).String()
	}

	return resp
}

// packetStyle highlights the framing characters of a raw packet.
func packetStyle(packet []byte) string {
	if len(packet) < 2 {
		return style.String(fmt.Sprintf("%q", packet)).Foreground(termenv.ANSIRed).String()
	}

	terminatorColor := termenv.ANSIBrightBlack
	if vibease.Packet(packet).Final() {
		terminatorColor = termenv.ANSIMagenta
	}

	return style.String(string(packet[:1])).Foreground(termenv.ANSIBrightCyan).String() +
		string(packet[1:len(packet)-1]) +
		style.String(string(packet[len(packet)-1:])).Foreground(terminatorColor).String()
}

// plaintextStyle prints printable plaintext as text, anything else as hex.
func plaintextStyle(b []byte) string {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return hexStyle(b, hexStyleDescrambled)
		}
	}
	return style.String(string(b)).Bold().String() + " " + hexStyle(b, hexStyleDescrambled)
}

func humanHandle(handle uint16, handleToUUID map[uint16]string) string {
	handleUUID, ok := handleToUUID[handle]
	if !ok {
		return fmt.Sprintf("(HANDLE uint16(%d))", handle)
	}

	hint, ok := knownCharacteristics[handleUUID]
	hintText := ""
	if ok {
		hintText = fmt.Sprintf(" (%s)", hint)
	}

	uuidParts := strings.Split(handleUUID, "-")
	uuidParts[0] = style.String(uuidParts[0]).Foreground(termenv.ANSIBrightCyan).String()
	styledHandleUuid := strings.Join(uuidParts, "-")

	return styledHandleUuid + hintText
}
