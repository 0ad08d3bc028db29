package serverquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stringerValue struct{}

func (stringerValue) String() string { return "from stringer" }

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		fields   Fields
		expected string
	}{
		{"No fields", "version", nil, "version"},
		{"Raw line", "use sid=1", nil, "use sid=1"},
		{"Integer", "use", Fields{"sid": 1}, "use sid=1"},
		{"Encoded string", "sendtextmessage", Fields{"targetmode": 3, "target": 1, "msg": "Hello World|/"},
			`sendtextmessage msg=Hello\sWorld\p\/ target=1 targetmode=3`},
		{"True flag", "clientlist", Fields{"uid": true}, "clientlist --uid"},
		{"False flag", "clientlist", Fields{"uid": false}, "clientlist --uid"},
		{"Flags before params", "channellist", Fields{"topic": true, "cid": 5, "flags": true},
			"channellist --flags --topic cid=5"},
		{"Stringer", "x", Fields{"v": stringerValue{}}, `x v=from\sstringer`},
		{"Duration", "x", Fields{"d": 2 * time.Second}, "x d=2s"},
		{"Nil value", "x", Fields{"v": nil}, "x v="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCommand(tt.command, tt.fields))
		})
	}
}

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "whoami\n\r", FormatLine("whoami", nil))
}
