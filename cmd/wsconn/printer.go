package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/sonirico/wsconn"
)

const (
	eventConnected    = "connected"
	eventDisconnected = "disconnected"
	eventError        = "error"
	eventText         = "text"
	eventBinary       = "binary"
)

// event is one line of --json output.
type event struct {
	Time  time.Time `json:"time"`
	Conn  string    `json:"conn"`
	Type  string    `json:"type"`
	Text  string    `json:"text,omitempty"`
	Data  []byte    `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
}

// printer is a wsconn.Sink that writes one line per notification.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	json bool
	now  func() time.Time
}

func newPrinter(out io.Writer, json bool) *printer {
	return &printer{out: out, json: json, now: time.Now}
}

func (p *printer) OnConnected(c wsconn.Connection) {
	p.emit(event{Conn: c.ID(), Type: eventConnected, Text: c.Address()})
}

func (p *printer) OnDisconnected(c wsconn.Connection, err error) {
	e := event{Conn: c.ID(), Type: eventDisconnected}
	if err != nil {
		e.Error = err.Error()
	}
	p.emit(e)
}

func (p *printer) OnError(c wsconn.Connection, err error) {
	p.emit(event{Conn: c.ID(), Type: eventError, Error: err.Error()})
}

func (p *printer) OnTextMessage(c wsconn.Connection, text string) {
	p.emit(event{Conn: c.ID(), Type: eventText, Text: text})
}

func (p *printer) OnBinaryMessage(c wsconn.Connection, data []byte) {
	p.emit(event{Conn: c.ID(), Type: eventBinary, Data: data})
}

func (p *printer) emit(e event) {
	e.Time = p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		bts, err := sonic.Marshal(e)
		if err != nil {
			fmt.Fprintf(p.out, "{\"type\":\"error\",\"error\":%q}\n", err.Error())
			return
		}
		_, _ = p.out.Write(append(bts, '\n'))
		return
	}

	ts := e.Time.Format(time.TimeOnly)

	switch e.Type {
	case eventConnected:
		_, _ = color.New(color.FgGreen, color.Bold).Fprintf(p.out, "%s connected to %s\n", ts, e.Text)
	case eventDisconnected:
		if e.Error != "" {
			_, _ = color.New(color.FgHiYellow).Fprintf(p.out, "%s disconnected: %s\n", ts, e.Error)
			return
		}
		_, _ = color.New(color.FgHiYellow).Fprintf(p.out, "%s disconnected\n", ts)
	case eventError:
		_, _ = color.New(color.FgRed).Fprintf(p.out, "%s error: %s\n", ts, e.Error)
	case eventText:
		_, _ = color.New(color.FgHiCyan).Fprintf(p.out, "%s <= ", ts)
		fmt.Fprintln(p.out, e.Text)
	case eventBinary:
		_, _ = color.New(color.FgHiMagenta).Fprintf(p.out, "%s <= [%d bytes] ", ts, len(e.Data))
		fmt.Fprintf(p.out, "% x\n", e.Data)
	}
}
