package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// countFields are appended to a message as "(N name)".
var countFields = []string{"commands", "files", "problems"}

// ConsoleWriter renders zerolog events as colored, listfile-oriented lines like
// "CMakeLists.txt:3:1: cc_library: message (2 problems)".
type ConsoleWriter struct {
	out    io.Writer
	buffer strings.Builder
	lock   sync.Mutex
}

func NewConsoleWriter(out io.Writer) *ConsoleWriter {
	return &ConsoleWriter{out: out}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	err = d.Decode(&evt)
	if err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	color := "[green]"
	switch evt["level"] {
	case "fatal", "error":
		color = "[red]"
	case "warn":
		color = "[yellow]"
	case "debug", "trace":
		color = "[blue]"
	}

	w.buffer.Reset()
	w.buffer.WriteString(color)
	if location := eventLocation(evt); location != "" {
		w.buffer.WriteString(location + ": ")
	}
	if command, ok := evt["command"]; ok {
		w.buffer.WriteString("[bold]" + fmt.Sprint(command) + "[reset]" + color + ": ")
	}

	if evt["level"] == "error" {
		w.buffer.WriteString("Error: ")
	}

	msg, _ := evt["message"].(string)
	w.buffer.WriteString(msg)

	for _, field := range countFields {
		if value, ok := evt[field]; ok {
			w.buffer.WriteString(fmt.Sprintf(" (%v %s)", value, field))
		}
	}

	if errorDetails, ok := evt["error"]; ok {
		w.buffer.WriteString("\n")
		w.buffer.WriteString(fmt.Sprint(errorDetails))
	}

	if os.Getenv("CMKSCHEMA_DEBUG") != "" {
		w.buffer.WriteString("\n")
		for name, value := range evt {
			w.buffer.WriteString(fmt.Sprintf("  %s: %+v\n", name, value))
		}
	}

	w.buffer.WriteString("[reset]\n")
	_, err = colorstring.Fprint(w.out, w.buffer.String())
	return len(p), err
}

// eventLocation joins the path, line and col fields of an event to "path:line:col".
func eventLocation(evt map[string]interface{}) string {
	path, ok := evt["path"]
	if !ok {
		return ""
	}

	location := fmt.Sprint(path)
	if line, ok := evt["line"]; ok {
		location += fmt.Sprintf(":%v", line)
		if col, ok := evt["col"]; ok {
			location += fmt.Sprintf(":%v", col)
		}
	}
	return location
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, os.Getenv("CMKSCHEMA_DEBUG") != "")
	}
}
