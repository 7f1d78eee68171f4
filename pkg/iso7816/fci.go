package iso7816

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// FILE CONTROL INFORMATION returned by SELECT.
//
// Depending on P2 and on the card, the data field of a successful SELECT is
//   - an FCI template '6F' holding '84' (DF name) and an 'A5' proprietary
//     template (label '50', SFI '88', ...),
//   - an FCP template '62' or an FMD template '64',
//   - or a flat list of the same tags.
// Only the fields needed to identify the selected application are extracted;
// everything else is kept as raw TLVs.

// FileControlInfo is the subset of a SELECT answer identifying the selected file.
type FileControlInfo struct {
	DFName           []byte
	FileIdentifier   []byte
	ApplicationLabel []byte
	SFI              []byte
	Proprietary      []byte

	Unknown []bertlv.TLV
}

// ParseFCI decodes the data field of a SELECT response.
// Proprietary answers (first byte >= 0xC0) are returned untouched.
func ParseFCI(data []byte) (*FileControlInfo, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty FCI")
	}

	if data[0] >= 0xC0 {
		return &FileControlInfo{Proprietary: append([]byte(nil), data...)}, nil
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	if len(packets) == 1 && isTemplate(packets[0].Tag) {
		packets = packets[0].TLVs
	}

	fci := &FileControlInfo{}
	fci.collect(packets)
	return fci, nil
}

func (f *FileControlInfo) collect(packets []bertlv.TLV) {
	for _, p := range packets {
		switch strings.ToUpper(p.Tag) {
		case "84":
			f.DFName = p.Value
		case "83":
			f.FileIdentifier = p.Value
		case "50":
			f.ApplicationLabel = p.Value
		case "88":
			f.SFI = p.Value
		case "62", "64", "A5":
			f.collect(p.TLVs)
		default:
			f.Unknown = append(f.Unknown, p)
		}
	}
}

func isTemplate(tag string) bool {
	switch strings.ToUpper(tag) {
	case "6F", "62", "64":
		return true
	}
	return false
}
