package iso7816

import (
	"fmt"
)

// Interindustry command builders.
//
// These are thin conveniences over CommandAPDU; every builder leaves Le at 00
// so that the card answers with whatever it has, either directly or through
// the 61XX/6CXX procedures handled by Client.

// SelectionMethod defines how SELECT targets a file (P1).
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04 // Select by AID
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectChildDF:
		return "Select Child DF"
	case SelectEFUnderCurrentDF:
		return "Select EF under current DF"
	case SelectParentDF:
		return "Select Parent DF"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	case SelectPathFromMF:
		return "Select Path from MF"
	case SelectPathFromCurrentDF:
		return "Select Path from Current DF"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// GetResponse builds GET RESPONSE (INS C0) asking for le bytes.
func GetResponse(cla Class, le byte) *CommandAPDU {
	return NewCommandAPDU(cla, INS_GET_RESPONSE, 0x00, 0x00, nil, le)
}

// SelectFile builds SELECT (INS A4) with an explicit P1/P2.
func SelectFile(cla Class, method SelectionMethod, p2 byte, data []byte) *CommandAPDU {
	return NewCommandAPDU(cla, INS_SELECT, byte(method), p2, data, 0x00)
}

// SelectByAID selects an application by its name: P1=04, P2=00 (first occurrence, FCI).
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return SelectFile(cla, SelectByDFName, 0x00, aid)
}

// ReadRecord reads one record by number from a short file identifier.
// P2 is (SFI << 3) | 100b, "record number in P1".
func ReadRecord(cla Class, sfi byte, record byte) *CommandAPDU {
	return NewCommandAPDU(cla, INS_READ_RECORD, record, (sfi<<3)|0x04, nil, 0x00)
}

// ReadBinary reads from the current transparent EF at a 15-bit offset.
func ReadBinary(cla Class, offset uint16, le byte) *CommandAPDU {
	return NewCommandAPDU(cla, INS_READ_BINARY, byte(offset>>8)&0x7F, byte(offset), nil, le)
}

// GetData retrieves a data object identified by P1-P2.
func GetData(cla Class, p1, p2 byte) *CommandAPDU {
	return NewCommandAPDU(cla, INS_GET_DATA, p1, p2, nil, 0x00)
}
