// =============================================================================
// output.go - Response and Event Rendering
// =============================================================================
//
// Responses are printed as a table with one column per field (pterm) or as
// one JSON document per response when --json is set. Events use the same
// two formats. All writes go through a mutex because events are printed
// from the session's reader goroutine while the REPL prints from its own.
//
// =============================================================================

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/ts3query/ts3query/serverquery"
)

type printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	json   bool
}

func newPrinter(out, errOut io.Writer, asJSON bool) *printer {
	return &printer{out: out, errOut: errOut, json: asJSON}
}

type statusJSON struct {
	ID           int    `json:"id"`
	Message      string `json:"msg"`
	Extra        string `json:"extra_msg,omitempty"`
	FailedPermID int    `json:"failed_permid,omitempty"`
}

type responseJSON struct {
	Data   []serverquery.Record `json:"data,omitempty"`
	Status statusJSON           `json:"status"`
}

type eventJSON struct {
	Event  string               `json:"event"`
	Family string               `json:"family"`
	Data   []serverquery.Record `json:"data,omitempty"`
}

// response prints the data records and, unless the status is ok, the
// status line on the error stream.
func (p *printer) response(resp *serverquery.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		return json.NewEncoder(p.out).Encode(responseJSON{
			Data: resp.Records(),
			Status: statusJSON{
				ID:           resp.Status.Code,
				Message:      resp.Status.Message,
				Extra:        resp.Status.Extra,
				FailedPermID: resp.Status.FailedPermID,
			},
		})
	}

	if resp.HasData() {
		table, err := renderTable(resp.Records())
		if err != nil {
			return err
		}
		fmt.Fprint(p.out, table)
	}
	if !resp.OK() {
		fmt.Fprintf(p.errOut, "Error: %s\n", formatStatus(resp.Status))
	}
	return nil
}

// event prints one notification.
func (p *printer) event(family string, n serverquery.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		json.NewEncoder(p.out).Encode(eventJSON{Event: n.Name, Family: family, Data: n.Records()})
		return
	}
	fmt.Fprintf(p.out, "\n*** %s %s\n", n.Name, formatRecords(n.Records()))
}

func (p *printer) println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, a...)
}

func (p *printer) printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, a...)
}

func (p *printer) errorf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errOut, "Error: "+format+"\n", a...)
}

// renderTable lays out records with the union of their keys as header.
func renderTable(records []serverquery.Record) (string, error) {
	columns := recordKeys(records)
	data := pterm.TableData{columns}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		data = append(data, row)
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// recordKeys returns the sorted union of the record keys.
func recordKeys(records []serverquery.Record) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// formatRecords renders records as "k=v" pairs with "|" between records,
// keeping values decoded.
func formatRecords(records []serverquery.Record) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		keys := recordKeys([]serverquery.Record{rec})
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = k + "=" + rec[k]
		}
		parts = append(parts, strings.Join(fields, " "))
	}
	return strings.Join(parts, " | ")
}

func formatStatus(s serverquery.Status) string {
	text := fmt.Sprintf("error id=%d msg=%s", s.Code, s.Message)
	if s.Extra != "" {
		text += " (" + s.Extra + ")"
	}
	return text
}
