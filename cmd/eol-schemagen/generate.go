package main

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/eol-bench/eol-go/pkg/codec"
)

var funcMap = template.FuncMap{
	"hex": func(v uint32) string { return fmt.Sprintf("0x%X", v) },
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}

var templates = template.Must(template.New("").Funcs(funcMap).Parse(headerTmpl + messageTmpl))

const headerTmpl = `{{define "header"}}// Code generated by eol-schemagen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

// Schema identity.
const (
	SchemaName        = {{quote .Name}}
	SchemaVersion     = {{quote .Version}}
	SchemaFingerprint = {{quote .Fingerprint}}
)
{{end}}`

const messageTmpl = `{{define "message"}}
// {{.Name}} ({{hex .ID}}, {{.Length}} bytes).
const (
	{{.GoName}}ID     uint32 = {{hex .ID}}
	{{.GoName}}Length        = {{.Length}}
)

// {{.GoName}} signal names.
const (
{{- range .Signals}}
	{{.GoName}} = {{quote .Name}}
{{- end}}
)
{{range .Choices}}
// {{.Signal}} values.
const (
{{- range .Values}}
	{{.GoName}} = {{.Value}}
{{- end}}
)
{{end}}{{end}}`

type headerData struct {
	Source      string
	Package     string
	Name        string
	Version     string
	Fingerprint string
}

type messageData struct {
	Name    string
	GoName  string
	ID      uint32
	Length  int
	Signals []signalData
	Choices []choiceData
}

type signalData struct {
	Name   string
	GoName string
}

type choiceData struct {
	Signal string
	Values []choiceValue
}

type choiceValue struct {
	GoName string
	Value  int
}

// Generate renders Go constants for every message, signal and choice in
// schema. The output is valid but unformatted Go source.
func Generate(schema *codec.Schema, pkg, source string) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, "header", headerData{
		Source:      source,
		Package:     pkg,
		Name:        schema.Name,
		Version:     schema.Version,
		Fingerprint: schema.Fingerprint(),
	}); err != nil {
		return "", fmt.Errorf("template header: %w", err)
	}

	seen := make(map[string]string)
	declare := func(name, origin string) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("identifier %s from %s collides with %s", name, origin, prev)
		}
		seen[name] = origin
		return nil
	}

	for _, id := range schema.MessageIDs() {
		msg, _ := schema.Message(id)
		data := messageData{
			Name:   msg.Name,
			GoName: goName(msg.Name),
			ID:     msg.ID,
			Length: msg.Length,
		}
		for _, suffix := range []string{"ID", "Length"} {
			if err := declare(data.GoName+suffix, msg.Name); err != nil {
				return "", err
			}
		}

		for _, sig := range msg.Signals {
			sd := signalData{Name: sig.Name, GoName: data.GoName + goName(sig.Name)}
			if err := declare(sd.GoName, msg.Name+"."+sig.Name); err != nil {
				return "", err
			}
			data.Signals = append(data.Signals, sd)

			if len(sig.Choices) == 0 {
				continue
			}
			cd := choiceData{Signal: sd.GoName}
			for _, v := range sortedChoices(sig.Choices) {
				cv := choiceValue{GoName: sd.GoName + goName(sig.Choices[v]), Value: v}
				if err := declare(cv.GoName, fmt.Sprintf("%s.%s=%d", msg.Name, sig.Name, v)); err != nil {
					return "", err
				}
				cd.Values = append(cd.Values, cv)
			}
			data.Choices = append(data.Choices, cd)
		}

		if err := templates.ExecuteTemplate(&b, "message", data); err != nil {
			return "", fmt.Errorf("template message %s: %w", msg.Name, err)
		}
	}
	return b.String(), nil
}

func sortedChoices(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// goName converts a schema name into an exported Go identifier:
// "Voltage_mV" becomes "VoltageMV", "RELAY_CMD" becomes "RelayCmd".
func goName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	title := cases.Title(language.Und)
	var b strings.Builder
	for _, p := range parts {
		if isUpperWord(p) {
			b.WriteString(title.String(p))
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	name := b.String()
	if name == "" {
		return "X"
	}
	if unicode.IsDigit(rune(name[0])) {
		name = "N" + name
	}
	return name
}

// isUpperWord reports whether p is a shouting word such as "RELAY". Short
// tokens like "K1" or "ID" are kept.
func isUpperWord(p string) bool {
	letters := 0
	for _, r := range p {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 2
}
