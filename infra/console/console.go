// Package console provides the stdin input and stdout output components,
// mainly for development and the one-shot CLI.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kestrelhq/kestrel/core/component"
	"github.com/kestrelhq/kestrel/core/logger"
	"github.com/kestrelhq/kestrel/core/model"
)

// Input reads lines from a reader on a background goroutine and exposes them
// as token batches through a non-blocking Read.
type Input struct {
	*component.Base
	log     logger.Logger
	reader  io.Reader
	batches chan []model.Token
	done    chan struct{}
}

// NewInput builds an Input reading from r; a nil r means stdin.
func NewInput(r io.Reader, notifier component.Notifier, log logger.Logger) *Input {
	if r == nil {
		r = os.Stdin
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Input{
		Base:    component.NewBase("console-input", notifier),
		log:     log,
		reader:  r,
		batches: make(chan []model.Token, 16),
		done:    make(chan struct{}),
	}
}

// Start launches the line-reading goroutine.
func (in *Input) Start() error {
	go in.readLines()
	in.Notify(model.StatusIdle)
	return nil
}

// Stop tells the reader goroutine to drop further lines. The goroutine
// itself exits when the reader hits EOF; a blocked stdin read cannot be
// interrupted from here.
func (in *Input) Stop() error {
	close(in.done)
	return nil
}

// Read pops one pending batch, or nil when nothing was typed.
func (in *Input) Read() []model.Token {
	select {
	case batch := <-in.batches:
		in.Notify(model.StatusIdle)
		return batch
	default:
		return nil
	}
}

func (in *Input) readLines() {
	scanner := bufio.NewScanner(in.reader)
	for scanner.Scan() {
		tokens := model.Tokenize(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		select {
		case <-in.done:
			return
		case in.batches <- tokens:
			in.Notify(model.StatusActive)
		}
	}
	if err := scanner.Err(); err != nil {
		in.log.Errorf("console read: %v", err)
	}
}

// Output writes responses to a writer, one per line.
type Output struct {
	*component.Base
	writer io.Writer
}

// NewOutput builds an Output writing to w; a nil w means stdout.
func NewOutput(w io.Writer, notifier component.Notifier) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{
		Base:   component.NewBase("console-output", notifier),
		writer: w,
	}
}

// Write prints the response.
func (out *Output) Write(text string) error {
	out.Notify(model.StatusWorking)
	defer out.Notify(model.StatusIdle)
	_, err := fmt.Fprintln(out.writer, text)
	return err
}
