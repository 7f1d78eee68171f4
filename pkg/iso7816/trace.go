package iso7816

// TRANSACTION:
// A Transaction is one physical exchange: one C-APDU sent to the card and the
// R-APDU it answered with.
//
// TRACE:
// A Trace is the chronological list of Transactions performed to satisfy one
// logical command. A SELECT answered with '61 XX' produces two entries (the
// SELECT and the GET RESPONSE); a READ BINARY answered with '6C XX' produces
// two entries (the original and the re-sent command).

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a 9000 status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.IsSuccess()
}

// Trace is a sequence of transactions (Command-Response pairs).
type Trace []Transaction

// Last returns the final transaction of the trace, or nil if the trace is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the FINAL transaction in the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Steps returns the protocol state reached after each transaction.
func (t Trace) Steps() []ProtocolState {
	steps := make([]ProtocolState, len(t))
	for i, tx := range t {
		steps[i] = nextState(tx.Response)
	}
	return steps
}
