package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts3query/ts3query/serverquery"
)

func TestRecordKeys(t *testing.T) {
	records := []serverquery.Record{
		{"clid": "1", "client_nickname": "a"},
		{"clid": "2", "client_away": "1"},
	}
	assert.Equal(t, []string{"clid", "client_away", "client_nickname"}, recordKeys(records))
	assert.Empty(t, recordKeys(nil))
}

func TestRenderTable(t *testing.T) {
	table, err := renderTable([]serverquery.Record{
		{"cid": "1", "channel_name": "Lobby"},
		{"cid": "2", "channel_name": "AFK Room"},
	})
	require.NoError(t, err)

	assert.Contains(t, table, "channel_name")
	assert.Contains(t, table, "cid")
	assert.Less(t, strings.Index(table, "channel_name"), strings.Index(table, "Lobby"), "header comes first")
	assert.Less(t, strings.Index(table, "Lobby"), strings.Index(table, "AFK Room"), "rows keep record order")
}

func TestFormatRecords(t *testing.T) {
	assert.Equal(t, "a=1 b=x y", formatRecords([]serverquery.Record{{"b": "x y", "a": "1"}}))
	assert.Equal(t, "a=1 | a=2", formatRecords([]serverquery.Record{{"a": "1"}, {"a": "2"}}))
	assert.Equal(t, "", formatRecords(nil))
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "error id=0 msg=ok", formatStatus(serverquery.Status{Code: 0, Message: "ok"}))
	assert.Equal(t, "error id=2568 msg=insufficient client permissions (missing b_serverinstance_info_view)",
		formatStatus(serverquery.Status{Code: 2568, Message: "insufficient client permissions", Extra: "missing b_serverinstance_info_view"}))
}

func TestPrinterResponseStatusOnly(t *testing.T) {
	var out, errOut syncBuffer
	p := newPrinter(&out, &errOut, false)

	require.NoError(t, p.response(serverquery.Parse("error id=0 msg=ok\n\r")))
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())

	require.NoError(t, p.response(serverquery.Parse("error id=512 msg=invalid\\sclientID\n\r")))
	assert.Equal(t, "Error: error id=512 msg=invalid clientID\n", errOut.String())
}

func TestPrinterResponseJSON(t *testing.T) {
	var out, errOut syncBuffer
	p := newPrinter(&out, &errOut, true)

	resp := serverquery.Parse("error id=2568 msg=insufficient\\sclient\\spermissions failed_permid=4\n\r")
	require.NoError(t, p.response(resp))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &got))
	assert.NotContains(t, got, "data", "status-only responses carry no data")
	status := got["status"].(map[string]any)
	assert.Equal(t, float64(2568), status["id"])
	assert.Equal(t, "insufficient client permissions", status["msg"])
	assert.Equal(t, float64(4), status["failed_permid"])
	assert.Empty(t, errOut.String())
}

func TestPrinterEvent(t *testing.T) {
	var out, errOut syncBuffer
	p := newPrinter(&out, &errOut, false)

	p.event(serverquery.FamilyText, serverquery.ParseNotification(`notifytextmessage msg=Hi\sthere invokerid=5`))
	assert.Equal(t, "\n*** notifytextmessage invokerid=5 msg=Hi there\n", out.String())
}
