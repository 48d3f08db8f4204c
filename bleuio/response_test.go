package bleuio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Response
	}{
		{
			name: "acknowledgement",
			line: `{"A":1,"err":0,"errMsg":"ok"}`,
			want: Acknowledgement{ErrorCode: 0, Message: "ok"},
		},
		{
			name: "acknowledgement with error",
			line: `{"A":2,"err":5,"errMsg":"Invalid command"}`,
			want: Acknowledgement{ErrorCode: 5, Message: "Invalid command"},
		},
		{
			name: "non-numeric err defaults to -1",
			line: `{"err":"bad"}`,
			want: Acknowledgement{ErrorCode: -1},
		},
		{
			name: "null err defaults to -1",
			line: `{"err":null}`,
			want: Acknowledgement{ErrorCode: -1},
		},
		{
			name: "fractional err defaults to -1",
			line: `{"err":1.5}`,
			want: Acknowledgement{ErrorCode: -1},
		},
		{
			name: "err wins over end marker",
			line: `{"E":1,"err":0}`,
			want: Acknowledgement{ErrorCode: 0},
		},
		{
			name: "end of response",
			line: `{"E":1,"nol":4}`,
			want: EndOfResponse{Lines: 4},
		},
		{
			name: "end of response without line count",
			line: `{"E":0}`,
			want: EndOfResponse{},
		},
		{
			name: "scan result",
			line: `{"S":5,"rssi":-56,"addr":"[1]D0:76:50:80:01:75","data":"0201061BFF5B07"}`,
			want: ScanResult{Address: "[1]D0:76:50:80:01:75", Data: "0201061BFF5B07", RSSI: -56},
		},
		{
			name: "scan result with data only",
			line: `{"data":"0201"}`,
			want: ScanResult{Data: "0201"},
		},
		{
			name: "scan result with non-string data",
			line: `{"addr":"[0]AA:BB:CC:DD:EE:FF","data":42}`,
			want: ScanResult{Address: "[0]AA:BB:CC:DD:EE:FF"},
		},
		{
			name: "command echo",
			line: `{"C":1,"cmd":"ATV1"}`,
			want: Unrecognized{RawLine: `{"C":1,"cmd":"ATV1"}`},
		},
		{
			name: "empty object",
			line: `{}`,
			want: Unrecognized{RawLine: `{}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_ParseError(t *testing.T) {
	lines := []string{"ECHO OFF", "VERBOSE ON", "OK", "ERROR", "", "[1,2]", `"text"`, "42", "null", `{"err":0`}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			got, err := Classify(line)
			assert.Nil(t, got)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, line, perr.Line)
			assert.Contains(t, perr.Error(), "unstructured line")
		})
	}
}

func TestScanResult_Addr(t *testing.T) {
	tests := []struct {
		addr     string
		addrType int
		want     string
	}{
		{"[1]D0:76:50:80:01:75", 1, "d0:76:50:80:01:75"},
		{"[0]AA:BB:CC:DD:EE:FF", 0, "aa:bb:cc:dd:ee:ff"},
		{"11:22:33:44:55:66", -1, "11:22:33:44:55:66"},
		{"[x]11:22:33:44:55:66", -1, "[x]11:22:33:44:55:66"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			sr := ScanResult{Address: tt.addr}
			assert.Equal(t, tt.addrType, sr.AddressType())
			assert.True(t, strings.EqualFold(tt.want, sr.Addr().String()), "got %s", sr.Addr())
		})
	}
}
