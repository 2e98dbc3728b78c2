package main

import (
	"fmt"
	"time"

	"github.com/muesli/termenv"
)

// Nr is the 1 based record number, as shown by wireshark.
type Nr uint

func (nr Nr) String() string {
	return style.String(fmt.Sprintf("#%d", nr)).Italic().Foreground(termenv.ANSIBrightBlack).String()
}

// timestamp is a btsnoop record time in microseconds.
type timestamp int64

func (t timestamp) since(earlier timestamp) time.Duration {
	return time.Duration(t-earlier) * time.Microsecond
}
