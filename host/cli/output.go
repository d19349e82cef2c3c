package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Formatter renders command results.
type Formatter interface {
	Format(data any) string
	// Structured reports json and yaml, which print one document per command
	Structured() bool
}

// NewFormatter returns a Formatter for "table" (default), "json" or "yaml".
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return jsonFormatter{}
	case "yaml":
		return yamlFormatter{}
	default:
		return tableFormatter{}
	}
}

// tableFormatter prints slices of structs as aligned columns named after
// the fields, and a single struct as key: value lines.
type tableFormatter struct{}

func (tableFormatter) Structured() bool { return false }

func (tableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return dimStyle.Render("(none)") + "\n"
		}
		t := v.Type().Elem()
		if t.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				fmt.Fprintln(w, v.Index(i).Interface())
			}
			break
		}
		headers := make([]string, t.NumField())
		for i := range headers {
			headers[i] = strings.ToUpper(t.Field(i).Name)
		}
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for i := 0; i < v.Len(); i++ {
			row := v.Index(i)
			vals := make([]string, row.NumField())
			for j := range vals {
				vals[j] = fmt.Sprintf("%v", row.Field(j).Interface())
			}
			fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			fmt.Fprintf(w, "%s:\t%v\n", t.Field(i).Name, v.Field(i).Interface())
		}
	default:
		fmt.Fprintln(w, data)
	}

	w.Flush()
	return buf.String()
}

type jsonFormatter struct{}

func (jsonFormatter) Structured() bool { return true }

func (jsonFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

type yamlFormatter struct{}

func (yamlFormatter) Structured() bool { return true }

func (yamlFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
