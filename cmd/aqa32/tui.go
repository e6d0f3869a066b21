// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ezrec/aqa32/emulator"
	"github.com/ezrec/aqa32/render"
)

// viewer is the interactive machine viewer.
//
// The step loop owns the emulator; the UI only sees rendered text.
type viewer struct {
	app *tview.Application

	root       *tview.Flex
	frameView  *tview.TextView
	statusView *tview.TextView
	inputView  *tview.InputField

	emu   *emulator.Emulator
	delay time.Duration

	paused       bool
	nextStep     bool
	resetRequest bool
	inputWriter  *io.PipeWriter
	mu           sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

const viewerHelp = "[::b]space[::-] run/pause  [::b]n[::-] step  [::b]r[::-] reset  [::b]tab[::-] input  [::b]q[::-] quit"

func newViewer(emu *emulator.Emulator, delay time.Duration) (v *viewer) {
	app := tview.NewApplication()

	frameView := tview.NewTextView().
		SetWrap(false)
	frameView.SetTitle("AQA32").SetBorder(true)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetText(viewerHelp)

	inputView := tview.NewInputField().
		SetLabel("INP> ").
		SetFieldBackgroundColor(tcell.ColorDarkBlue)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(frameView, render.HEIGHT+2, 0, true).
		AddItem(inputView, 1, 0, false).
		AddItem(statusView, 1, 0, false)

	ctx, cancel := context.WithCancel(context.Background())

	v = &viewer{
		app:        app,
		root:       root,
		frameView:  frameView,
		statusView: statusView,
		inputView:  inputView,
		emu:        emu,
		delay:      delay,
		paused:     true,
		ctx:        ctx,
		cancel:     cancel,
	}

	return
}

// Stop the viewer, unblocking any pending INP.
func (v *viewer) Stop() {
	v.cancel()

	v.mu.Lock()
	if v.inputWriter != nil {
		v.inputWriter.CloseWithError(context.Canceled)
	}
	v.mu.Unlock()

	v.app.Stop()
}

// reset restarts the machine with a fresh INP pipe.
func (v *viewer) reset() (err error) {
	reader, writer := io.Pipe()

	v.mu.Lock()
	if v.inputWriter != nil {
		v.inputWriter.CloseWithError(context.Canceled)
	}
	v.inputWriter = writer
	v.mu.Unlock()

	v.emu.Input = reader
	v.emu.Echo = nil

	err = v.emu.Reset()
	return
}

func (v *viewer) Init() (err error) {
	err = v.reset()
	if err != nil {
		return
	}

	v.inputView.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			line := v.inputView.GetText()
			v.inputView.SetText("")
			v.mu.Lock()
			writer := v.inputWriter
			v.mu.Unlock()
			go func() {
				// Blocks until the machine executes INP.
				_, _ = io.WriteString(writer, line+"\n")
			}()
		case tcell.KeyEscape, tcell.KeyTab:
			v.app.SetFocus(v.frameView)
		}
	})

	v.root.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			v.Stop()
			return nil
		}

		if v.app.GetFocus() == v.inputView {
			return event
		}

		switch event.Key() {
		case tcell.KeyEscape:
			v.Stop()
			return nil
		case tcell.KeyTab:
			v.app.SetFocus(v.inputView)
			return nil
		}

		switch event.Rune() {
		case 'n':
			v.mu.Lock()
			v.nextStep = true
			v.mu.Unlock()
			return nil
		case ' ':
			v.mu.Lock()
			v.paused = !v.paused
			v.mu.Unlock()
			return nil
		case 'r':
			v.mu.Lock()
			v.resetRequest = true
			v.mu.Unlock()
			return nil
		case 'q':
			v.Stop()
			return nil
		}
		return event
	})

	return
}

// step advances the machine if running, or if a single step was requested.
func (v *viewer) step() (status string) {
	v.mu.Lock()
	run := !v.paused || v.nextStep
	reset := v.resetRequest
	v.nextStep = false
	v.resetRequest = false
	v.mu.Unlock()

	if reset {
		err := v.reset()
		if err != nil {
			status = fmt.Sprintf("[red]%v[-]", err)
		} else {
			status = viewerHelp
		}
		return
	}

	if !run || v.emu.Halted() {
		return
	}

	_, err := v.emu.Tick()
	if err != nil {
		v.mu.Lock()
		v.paused = true
		v.mu.Unlock()
		status = fmt.Sprintf("[red]%v[-]", err)
	}

	return
}

// loop runs the machine, pushing a freshly rendered frame to the UI after
// each step.
func (v *viewer) loop() {
	ticker := time.NewTicker(v.delay)
	defer ticker.Stop()

	for {
		status := v.step()
		frame := render.Render(v.emu.Machine, v.emu.Program, v.emu.Rate()).String()

		v.app.QueueUpdateDraw(func() {
			v.frameView.SetText(frame)
			if len(status) != 0 {
				v.statusView.SetText(status)
			}
		})

		select {
		case <-ticker.C:
		case <-v.ctx.Done():
			return
		}
	}
}

// runViewer runs the interactive viewer until the user quits.
func runViewer(emu *emulator.Emulator, delay time.Duration) (err error) {
	if delay <= 0 {
		delay = time.Millisecond
	}

	v := newViewer(emu, delay)
	err = v.Init()
	if err != nil {
		return
	}

	go v.loop()

	err = v.app.SetRoot(v.root, true).SetFocus(v.frameView).Run()
	v.cancel()

	return
}
