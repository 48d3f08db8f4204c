package bleuio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// Response is one classified line of dongle output.
type Response interface {
	isResponse()
}

// Acknowledgement reports the outcome of the command in progress.
// ErrorCode is -1 when the dongle sent no usable code.
type Acknowledgement struct {
	ErrorCode int64
	Message   string
}

// EndOfResponse closes the output of one command. Lines is the number of
// lines the dongle reports for it.
type EndOfResponse struct {
	Lines int
}

// ScanResult is a single advertisement reported while scanning.
type ScanResult struct {
	Address string
	Data    string
	RSSI    int
}

// Unrecognized is a well-formed object the driver has no use for, such as a
// command echo.
type Unrecognized struct {
	RawLine string
}

func (Acknowledgement) isResponse() {}
func (EndOfResponse) isResponse()   {}
func (ScanResult) isResponse()      {}
func (Unrecognized) isResponse()    {}

// ParseError is returned for lines that are not a structured object.
// The plain-text replies of the dongle ("OK", "ECHO OFF", ...) end up here.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unstructured line %q", e.Line)
	}
	return fmt.Sprintf("unstructured line %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Classify turns one line of dongle output into a Response.
//
// Precedence follows the dongle dialect: an object carrying "err" is an
// acknowledgement, then "E" marks the end of a response, then "addr" or "data"
// is a scan result. Any other object is Unrecognized.
func Classify(line string) (Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Line: line}
	}

	if raw, ok := fields["err"]; ok {
		ack := Acknowledgement{ErrorCode: -1}
		var code int64
		if string(raw) != "null" && json.Unmarshal(raw, &code) == nil {
			ack.ErrorCode = code
		}
		ack.Message = stringField(fields, "errMsg")
		return ack, nil
	}

	if _, ok := fields["E"]; ok {
		end := EndOfResponse{}
		if raw, ok := fields["nol"]; ok {
			_ = json.Unmarshal(raw, &end.Lines)
		}
		return end, nil
	}

	_, hasAddr := fields["addr"]
	_, hasData := fields["data"]
	if hasAddr || hasData {
		sr := ScanResult{
			Address: stringField(fields, "addr"),
			Data:    stringField(fields, "data"),
		}
		if raw, ok := fields["rssi"]; ok {
			_ = json.Unmarshal(raw, &sr.RSSI)
		}
		return sr, nil
	}

	return Unrecognized{RawLine: line}, nil
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// AddressType returns the address type the dongle prefixes scan addresses
// with ("[0]" public, "[1]" random), or -1 when there is none.
func (r ScanResult) AddressType() int {
	if len(r.Address) >= 3 && r.Address[0] == '[' && r.Address[2] == ']' {
		if c := r.Address[1]; c >= '0' && c <= '9' {
			return int(c - '0')
		}
	}
	return -1
}

// Addr returns the advertiser address without the address type prefix.
func (r ScanResult) Addr() ble.Addr {
	addr := r.Address
	if r.AddressType() >= 0 {
		addr = addr[3:]
	}
	return ble.NewAddr(strings.TrimSpace(addr))
}
