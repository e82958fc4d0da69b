package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

const (
	consoleTimeFormat = "15:04:05"
	fileTimeFormat    = "2006-01-02 15:04:05,000"
)

// consoleFormatter renders "[15:04:05] INFO - message key=value".
type consoleFormatter struct {
	styles map[logrus.Level]lipgloss.Style
}

func newConsoleFormatter(w io.Writer, color bool) *consoleFormatter {
	f := &consoleFormatter{}
	if !color {
		return f
	}
	r := lipgloss.NewRenderer(w)
	f.styles = map[logrus.Level]lipgloss.Style{
		logrus.PanicLevel: r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
		logrus.FatalLevel: r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
		logrus.ErrorLevel: r.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		logrus.WarnLevel:  r.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
		logrus.InfoLevel:  r.NewStyle().Foreground(lipgloss.Color("#F0F0F0")),
		logrus.DebugLevel: r.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		logrus.TraceLevel: r.NewStyle().Foreground(lipgloss.Color("#6E6E6E")),
	}
	return f
}

func (f *consoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	label := levelName(entry.Level)
	if style, ok := f.styles[entry.Level]; ok {
		label = style.Render(label)
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] %s - %s", entry.Time.Format(consoleTimeFormat), label, entry.Message)
	writeFields(&b, entry.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// fileFormatter renders "[2006-01-02 15:04:05,000] - INFO - name - message".
type fileFormatter struct {
	name string
}

func (f *fileFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] - %s - %s - %s", entry.Time.Format(fileTimeFormat), levelName(entry.Level), f.name, entry.Message)
	writeFields(&b, entry.Data)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARNING"
	}
	return strings.ToUpper(level.String())
}

func writeFields(b *bytes.Buffer, data logrus.Fields) {
	if len(data) == 0 {
		return
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, data[k])
	}
}
