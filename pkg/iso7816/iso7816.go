/*
Package iso7816 implements the ISO/IEC 7816-4 command/response layer used to
converse with a smart card: command APDU encoding, response APDU decoding,
status word classification and the automatic 61XX / 6CXX procedures.

# Fundamentals

The communication with a smart card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

Commands are encoded in short form, always terminated by an Le byte:

	CLA INS P1 P2 [Lc Data...] Le

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success (OK).
  - 0x61XX: Normal processing, XX response bytes still available.
  - 0x6CXX: Wrong length, XX is the Le the card expects.
  - Other: warnings and errors, see StatusWord.Meaning.

# Chaining

A Client turns one logical command into as many physical exchanges as the
card asks for. GET RESPONSE keeps the logical channel of the command that
triggered it, so it is CLA 00 on channel 0; a proprietary CLA falls back to 00.

	client := iso7816.NewClient(card)
	cmd, err := iso7816.ParseCommand("00 A4 04 00 02 3F 00 00")
	if err != nil {
	    log.Fatal(err)
	}

	resp, err := client.Issue(cmd)
	if err != nil {
	    log.Fatal(err)
	}

	// '61 XX' answers have been followed by GET RESPONSE and their data joined;
	// '6C XX' answers have been replaced by a re-send with the corrected Le.
	fmt.Println(resp.StatusCode(), resp.Meaning())
*/
package iso7816
