package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

var ErrPickerCancelled = errors.New("device selection cancelled")

// SelectDevice shows an arrow-key picker on the terminal. With a single
// device it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, ErrNoDevice
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone (↑/↓, Enter to confirm, Esc to cancel):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[headset mic]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m> %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case n == 1 && (buf[0] == 3 || buf[0] == 0x1b || buf[0] == 'q'):
			fmt.Print("\r\n")
			return nil, ErrPickerCancelled
		case n == 1 && buf[0] == 'j', n == 3 && buf[0] == 0x1b && buf[2] == 'B':
			cursor = min(cursor+1, len(devices)-1)
		case n == 1 && buf[0] == 'k', n == 3 && buf[0] == 0x1b && buf[2] == 'A':
			cursor = max(cursor-1, 0)
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}
