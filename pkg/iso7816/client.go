package iso7816

import (
	"errors"
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client acts as a driver over the physical connection and hides the
// ISO 7816-3/-4 transport procedures that T=0 exposes to the application:
//
// 1. "61 XX" (Response Available):
//    XX bytes are waiting. The client sends GET RESPONSE with Le=XX and
//    prepends the data already received to whatever the GET RESPONSE returns.
//
// 2. "6C XX" (Wrong Length):
//    The card rejected Le and suggests XX. The client re-sends the same
//    command with Le=XX; that answer replaces the rejected one.
//
// The procedures are run as an explicit state machine:
//
//	Sent -> Done
//	Sent -> NeedMore -> Sent ...
//	Sent -> RetryWrongLength -> Sent ...
//
// A card that keeps answering 61/6C would loop forever, so the number of
// follow-up exchanges is capped by MaxChainLength.

// DefaultMaxChainLength caps follow-up exchanges when Client.MaxChainLength is zero.
const DefaultMaxChainLength = 8

// ErrProtocolExhausted reports a card that kept requesting follow-up exchanges.
var ErrProtocolExhausted = errors.New("protocol chain exhausted")

// ProtocolState is the state of one logical command.
type ProtocolState int

const (
	StateSent ProtocolState = iota
	StateNeedMore
	StateRetryWrongLength
	StateDone
)

func (s ProtocolState) String() string {
	switch s {
	case StateSent:
		return "Sent"
	case StateNeedMore:
		return "NeedMore"
	case StateRetryWrongLength:
		return "RetryWrongLength"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("ProtocolState(%d)", int(s))
	}
}

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Observer is notified around every physical exchange.
// CommandIssued is called before the bytes are transmitted and
// ResponseReceived once the answer is decoded, so for a given command the
// two calls always arrive in that order.
type Observer interface {
	CommandIssued(cmd *CommandAPDU)
	ResponseReceived(tx Transaction)
}

// Client manages the high-level communication with the card.
// A Client is not safe for concurrent use: the session owning it must
// serialize calls.
type Client struct {
	Card           Transmitter
	Observer       Observer
	MaxChainLength int
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Issue sends a command, runs the 61XX/6CXX procedures and returns the
// assembled response: the data of every step joined in order, with the status
// word of the last exchange.
func (c *Client) Issue(cmd *CommandAPDU) (*ResponseAPDU, error) {
	resp, _, err := c.run(cmd)
	return resp, err
}

// Send behaves like Issue but returns every physical exchange instead of the
// assembled response.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	_, trace, err := c.run(cmd)
	return trace, err
}

// Exchange is Issue and Send combined.
func (c *Client) Exchange(cmd *CommandAPDU) (*ResponseAPDU, Trace, error) {
	return c.run(cmd)
}

func (c *Client) run(cmd *CommandAPDU) (*ResponseAPDU, Trace, error) {
	if cmd == nil {
		return nil, nil, fmt.Errorf("%w: nil command", ErrInvalidInput)
	}

	limit := c.MaxChainLength
	if limit <= 0 {
		limit = DefaultMaxChainLength
	}

	var (
		trace    Trace
		acc      []byte
		assemble bool
		current  = cmd
	)

	for {
		resp, err := c.transmit(current)
		if err != nil {
			return nil, trace, err
		}
		trace = append(trace, Transaction{Command: current, Response: resp})

		state := nextState(resp)
		if state == StateDone {
			if !assemble {
				return resp, trace, nil
			}
			data := make([]byte, 0, len(acc)+len(resp.Data))
			data = append(append(data, acc...), resp.Data...)
			return NewResponseAPDU(data, resp.Status), trace, nil
		}

		if len(trace) > limit {
			return nil, trace, fmt.Errorf("%w: still %s after %d exchanges (last status %s)",
				ErrProtocolExhausted, state, len(trace), resp.StatusCode())
		}

		switch state {
		case StateNeedMore:
			assemble = true
			acc = append(acc, resp.Data...)
			current = GetResponse(followUpClass(cmd.Class), resp.Available())
		case StateRetryWrongLength:
			current = current.WithLe(resp.CorrectLength())
		}
	}
}

func (c *Client) transmit(cmd *CommandAPDU) (*ResponseAPDU, error) {
	rawCmd, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	if c.Observer != nil {
		c.Observer.CommandIssued(cmd)
	}

	rawResp, err := c.Card.Transmit(rawCmd)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}

	resp, err := ParseResponseAPDU(rawResp)
	if err != nil {
		return nil, err
	}

	if c.Observer != nil {
		c.Observer.ResponseReceived(Transaction{Command: cmd, Response: resp})
	}
	return resp, nil
}

// nextState classifies a response. 9000 and every status other than 61XX
// and 6CXX end the command.
func nextState(resp *ResponseAPDU) ProtocolState {
	switch {
	case resp == nil || resp.IsSuccess():
		return StateDone
	case resp.HasMoreData():
		return StateNeedMore
	case resp.IsWrongLength():
		return StateRetryWrongLength
	default:
		return StateDone
	}
}

// followUpClass keeps the logical channel of the original command and drops
// chaining and SM. Proprietary classes fall back to channel 0.
func followUpClass(cls Class) Class {
	if cls.IsProprietary {
		return ClassInterindustry
	}
	out, err := OnChannel(cls.Channel)
	if err != nil {
		return ClassInterindustry
	}
	return out
}
