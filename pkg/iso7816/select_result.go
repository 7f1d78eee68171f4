package iso7816

import (
	"fmt"
	"strings"
)

// SelectResult is the outcome of a SELECT command: the assembled response
// plus the physical exchanges that produced it.
type SelectResult struct {
	Trace
	Response *ResponseAPDU
	AID      []byte
}

// NewSelectResult wraps the result of a SELECT. The trace must start with a SELECT.
func NewSelectResult(resp *ResponseAPDU, t Trace) (*SelectResult, error) {
	if len(t) == 0 || resp == nil {
		return nil, fmt.Errorf("cannot create result from empty trace")
	}

	first := t[0].Command
	if first.Instruction != INS_SELECT {
		return nil, fmt.Errorf("trace must start with SELECT command (got %02X)", byte(first.Instruction))
	}

	return &SelectResult{Trace: t, Response: resp, AID: first.Data}, nil
}

// IsSuccess reports a 9000 on the assembled response.
func (r *SelectResult) IsSuccess() bool {
	return r.Response.IsSuccess()
}

// FCI parses the File Control Information of a successful selection.
func (r *SelectResult) FCI() (*FileControlInfo, error) {
	if !r.IsSuccess() {
		return nil, fmt.Errorf("selection failed (%s), cannot parse FCI", r.Response.StatusCode())
	}
	return ParseFCI(r.Response.Data)
}

// Describe returns a short report of the selection.
func (r *SelectResult) Describe() string {
	var sb strings.Builder

	sb.WriteString("=== SELECT ===\n")
	sb.WriteString(fmt.Sprintf("    + AID:     %X (%q)\n", r.AID, safeASCII(r.AID)))
	sb.WriteString(fmt.Sprintf("    + Steps:   %d\n", len(r.Trace)))
	sb.WriteString(fmt.Sprintf("    + Status:  %s\n", r.Response.Status.Verbose()))

	fci, err := r.FCI()
	if err != nil {
		sb.WriteString(fmt.Sprintf("    - FCI:     %v", err))
		return sb.String()
	}
	if len(fci.DFName) > 0 {
		sb.WriteString(fmt.Sprintf("    - DF Name: %X\n", fci.DFName))
	}
	if len(fci.ApplicationLabel) > 0 {
		sb.WriteString(fmt.Sprintf("    - Label:   %q\n", safeASCII(fci.ApplicationLabel)))
	}
	for _, t := range fci.Unknown {
		sb.WriteString(fmt.Sprintf("    - Tag %s: %X\n", t.Tag, t.Value))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func safeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
