package iso7816

import (
	"regexp"
)

// Status word meanings.
//
// The table is ordered and the first matching pattern wins. Specific codes
// are listed before the SW1 range they belong to so their sub-meaning is
// reachable; the final catch-all makes the classification total.
// Patterns are matched against the lowercase code returned by StatusWord.Code.

type meaningEntry struct {
	pattern *regexp.Regexp
	meaning string
}

func entry(pattern, meaning string) meaningEntry {
	return meaningEntry{pattern: regexp.MustCompile(pattern), meaning: meaning}
}

var meaningTable = []meaningEntry{
	entry(`^9000$`, "Normal processing"),
	entry(`^61..$`, "Normal processing, SW2 indicates the number of response bytes still available"),

	entry(`^6200$`, "Warning processing: no information given"),
	entry(`^6281$`, "Warning processing: part of returned data may be corrupted"),
	entry(`^6282$`, "Warning processing: end of file/record reached before reading Le bytes"),
	entry(`^6283$`, "Warning processing: selected file invalidated"),
	entry(`^6284$`, "Warning processing: FCI not formatted according to ISO"),
	entry(`^6285$`, "Warning processing: file control info not in required format"),
	entry(`^6286$`, "Warning processing: unsuccessful writing"),
	entry(`^62..$`, "Warning processing"),

	entry(`^6300$`, "Warning processing: no information given"),
	entry(`^6381$`, "Warning processing: file filled up by the last write"),
	entry(`^6382$`, "Warning processing: execution successful after retry"),
	entry(`^63..$`, "Warning processing"),

	entry(`^6500$`, "Execution error: no information given"),
	entry(`^6581$`, "Execution error: memory failure"),
	entry(`^6[45]..$`, "Execution error"),

	entry(`^66..$`, "Reserved for future use"),

	entry(`^6700$`, "Wrong length"),

	entry(`^6800$`, "Checking error: functions in CLA not supported, no information given"),
	entry(`^6881$`, "Checking error: logical channel not supported"),
	entry(`^6882$`, "Checking error: secure messaging not supported"),
	entry(`^68..$`, "Checking error: functions in CLA not supported"),

	entry(`^69..$`, "Checking error: command not allowed"),
	entry(`^6a..$`, "Checking error: wrong parameters P1-P2"),
	entry(`^6b..$`, "Checking error: wrong parameters"),
	entry(`^6c..$`, "Checking error: wrong length, SW2 indicates the correct Le"),
	entry(`^6d..$`, "Checking error: wrong instruction"),
	entry(`^6e..$`, "Checking error: class not supported"),
	entry(`^6f..$`, "Checking error: no precise diagnosis"),

	entry(`.*`, "Unknown"),
}

// Meaning returns the human meaning of the status word according to the
// ISO 7816-4 table. Codes outside the table map to "Unknown".
func (sw StatusWord) Meaning() string {
	code := sw.Code()
	for _, e := range meaningTable {
		if e.pattern.MatchString(code) {
			return e.meaning
		}
	}
	return "Unknown"
}
