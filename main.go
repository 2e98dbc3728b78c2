package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mjarkk/decode-vibease-ble-packets/vibease"
	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err.Error())
	}
}

var keyFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "key",
		Value: "secondary",
		Usage: "key for host requests: primary, secondary, hex:<bytes> or a literal key",
	},
	cli.StringFlag{
		Name:  "rx-key",
		Value: "secondary",
		Usage: "key for everything else, same format as --key",
	},
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "decode-vibease-ble-packets"
	app.Usage = "decode and replay the obfuscated Vibease BLE protocol"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "loglevel",
			Value: "warn",
			Usage: "logging level {trace, debug, info, warn, error, critical}",
		},
	}
	app.Before = func(c *cli.Context) error {
		return initLogger(c.GlobalString("loglevel"))
	}
	app.After = func(c *cli.Context) error {
		logger.Flush()
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "dump",
			Usage: "decode every message in a btsnoop HCI capture",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "file",
					Usage: "the btsnoop file you want to inspect (required)",
				},
				cli.StringFlag{
					Name:  "address",
					Usage: `address of the device to follow ("c4:7c:8d:6a:12:0b")`,
				},
				cli.BoolFlag{
					Name:  "rx-session-key",
					Usage: "also use the session key for peripheral messages once it is known",
				},
				cli.DurationFlag{
					Name:  "stall-timeout",
					Value: 5 * time.Second,
					Usage: "drop a message that received no packet for this long (0 disables)",
				},
			}, keyFlags...),
			Action: dumpAction,
		},
		{
			Name:      "encode",
			Usage:     "scramble a command and split it into packets",
			ArgsUsage: "<plaintext>",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "prefix",
					Value: string(rune(vibease.PrefixRequest)),
					Usage: "prefix of the first packet",
				},
				cli.IntFlag{
					Name:  "max-body-len",
					Value: vibease.MaxBodyLen,
					Usage: "maximum body characters per packet",
				},
			}, keyFlags[0]),
			Action: encodeAction,
		},
		{
			Name:      "decode",
			Usage:     "reassemble and descramble the packets of one message",
			ArgsUsage: "<packet>...",
			Flags:     keyFlags,
			Action:    decodeAction,
		},
		{
			Name:      "handshake",
			Usage:     "print the handshake request, or derive the session key from the reply packets",
			ArgsUsage: "[<packet>...]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "key",
					Value: "secondary",
					Usage: "key the reply is scrambled with",
				},
			},
			Action: handshakeAction,
		},
	}
	return app
}

func dumpAction(c *cli.Context) error {
	btSnoopFile := c.String("file")
	if btSnoopFile == "" {
		return cli.NewExitError(`file argument not set, usage: --file "btsnoop_hci.log"`, 1)
	}

	address := ""
	if c.String("address") != "" {
		var err error
		address, err = parseAddress(c.String("address"))
		if err != nil {
			return cli.NewExitError("invalid address, error: "+err.Error(), 1)
		}
	} else {
		warn(`device address not set, following every connection, usage: --address "c4:7c:8d:6a:12:0b"`)
	}

	keys, err := parseKeys(c.String("key"), c.String("rx-key"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	snoopBytes, err := os.ReadFile(btSnoopFile)
	if err != nil {
		return err
	}

	conv := newConversation(keys, c.Bool("rx-session-key"), c.Duration("stall-timeout"))
	var decoder *snoopDecoder
	decoder = newSnoopDecoder(address, func(p attPacket) {
		printPacket(conv, decoder.handleToUUID, p)
	})
	if err := decoder.decode(snoopBytes); err != nil {
		return err
	}
	if err := conv.close(); err != nil {
		warn(err.Error())
	}

	if address != "" && decoder.connectionHandle == 0 {
		fmt.Println("It seems like we where unable to get the connection handle")
		fmt.Println("Make sure you started the bluetooth sniff before you connected to the device")
	}
	return nil
}

func printPacket(conv *conversation, handleToUUID map[uint16]string, p attPacket) {
	if !printable(p.payload) {
		logger.Debugf("%d: skipping binary attribute value %s", p.nr, bToHex(p.payload))
		return
	}

	kind := "Write"
	if p.dir == dirNotify {
		kind = "Notify"
	}
	fmt.Printf("%s %s %s > %s\n", p.nr, applyMeta(kind), humanHandle(p.handle, handleToUUID), packetStyle(p.payload))

	if err := conv.expire(p.at); err != nil {
		warn(err.Error())
	}

	msg, err := conv.feed(p.nr, p.at, p.dir, p.payload)
	if err != nil {
		warn(err.Error())
	}
	if msg == nil {
		return
	}

	fmt.Printf("%s %s %s %s\n", msg.nr, applyMeta(msg.dir.String()), string(rune(msg.prefix)), plaintextStyle(msg.plaintext))
	if msg.sessionKey != nil {
		fmt.Printf("%s %s %s\n", p.nr, applyMeta("HS key identified:"), msg.sessionKey)
	}
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func encodeAction(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.NewExitError("nothing to encode, usage: encode <plaintext>", 1)
	}
	plaintext := strings.Join(c.Args(), " ")

	prefix := c.String("prefix")
	if len(prefix) != 1 {
		return cli.NewExitError("prefix must be a single character", 1)
	}

	key, err := parseKeyOption(c.String("key"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	scrambled, err := vibease.Scramble([]byte(plaintext), key)
	if err != nil {
		return err
	}

	packets := vibease.FragmentAs(vibease.Prefix(prefix[0]), base64.StdEncoding.EncodeToString(scrambled), c.Int("max-body-len"))
	for _, p := range packets {
		fmt.Println(p)
	}
	return nil
}

func decodeAction(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.NewExitError("no packets given, usage: decode <packet>...", 1)
	}

	keys, err := parseKeys(c.String("key"), c.String("rx-key"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	s, err := vibease.NewSession(keys)
	if err != nil {
		return err
	}

	for i, p := range c.Args() {
		complete, plaintext, err := s.AddPacket(p)
		if err != nil {
			return fmt.Errorf("packet %d: %w", i+1, err)
		}
		if !complete {
			continue
		}

		if i != len(c.Args())-1 {
			warn(fmt.Sprintf("ignoring %d packet(s) after the final one", len(c.Args())-1-i))
		}
		fmt.Println(string(plaintext))
		if vibease.IsHandshakeResponse(plaintext) {
			key, err := vibease.ParseHandshakeResponse(plaintext)
			if err != nil {
				return err
			}
			fmt.Println(applyMeta("HS key:"), key)
		}
		return nil
	}

	return s.Discard()
}

func handshakeAction(c *cli.Context) error {
	if !c.Args().Present() {
		for _, p := range vibease.HandshakeRequest() {
			fmt.Println(p)
		}
		return nil
	}

	key, err := parseKeyOption(c.String("key"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	sessionKey, err := vibease.DeriveSessionKey(c.Args(), key)
	if errors.Is(err, vibease.ErrHandshakeFailure) {
		return cli.NewExitError(err.Error()+", falling back to the static keys", 2)
	} else if err != nil {
		return err
	}

	fmt.Println(sessionKey)
	return nil
}
