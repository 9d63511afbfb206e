package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// Init sets up Apex with a custom handler and a log level from the
// PANTRYBOOK_LOG env variable.
func Init() {
	level := strings.ToUpper(os.Getenv("PANTRYBOOK_LOG"))
	if level == "" {
		level = "INFO"
	}
	log.SetHandler(&CustomHandler{})
	log.SetLevelFromString(level)
}

// CustomHandler formats log messages and writes to stdout
type CustomHandler struct{}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var fields strings.Builder
	for _, name := range names {
		fmt.Fprintf(&fields, " %s=%v", name, e.Fields.Get(name))
	}

	fmt.Fprintf(os.Stdout, "%s %.1s %s%s\n", timestamp, level, e.Message, fields.String())
	return nil
}
