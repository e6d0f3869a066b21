package vm

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Console is the machine's character device.
//
// INP reads lines from Input, which must be set before the first read. OUT appends to the output stream, which is
// also copied to Echo when set.
type Console struct {
	Input io.Reader
	Echo  io.Writer

	reader *bufio.Reader
	output strings.Builder
}

// Output returns everything written so far.
func (con *Console) Output() string {
	return con.output.String()
}

// Write appends text to the output stream.
// If the echo fails, the output stream is not changed.
func (con *Console) Write(text string) (err error) {
	if con.Echo != nil {
		_, err = io.WriteString(con.Echo, text)
		if err != nil {
			return
		}
	}

	con.output.WriteString(text)

	return
}

// ReadLine blocks for one line of input, without the line terminator.
func (con *Console) ReadLine() (line string, err error) {
	if con.Input == nil {
		err = ErrInput
		return
	}

	if con.reader == nil {
		con.reader = bufio.NewReader(con.Input)
	}

	line, err = con.reader.ReadString('\n')
	if errors.Is(err, io.EOF) && len(line) > 0 {
		err = nil
	}
	if err != nil {
		err = errors.Join(ErrInput, err)
		return
	}

	line = strings.TrimRight(line, "\r\n")
	return
}
