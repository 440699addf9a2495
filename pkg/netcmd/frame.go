package netcmd

import (
	"net/netip"
	"strings"
)

// BroadcastAddr addresses all nodes.
const BroadcastAddr = "0.0.0.0"

// Commands
const (
	CmdSlave        = "slave"
	CmdAdmin        = "admin"
	CmdVote         = "vote"
	CmdMaster       = "master"
	CmdForward      = "forward"
	CmdMove         = "move"
	CmdStop         = "stop"
	CmdUnauthorized = "Unauthorized"
)

// Frame is a single protocol message.
type Frame struct {
	Addr   string
	Tokens []string
}

// NewFrame creates a Frame.
func NewFrame(addr string, tokens ...string) Frame {
	return Frame{Addr: addr, Tokens: tokens}
}

// ParseFrame parses a line into a Frame. Surrounding whitespace
// including line terminators is ignored.
func ParseFrame(line string) (Frame, error) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "[") {
		return Frame{}, &MalformedFrameError{Line: line, Reason: "missing '['"}
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Frame{}, &MalformedFrameError{Line: line, Reason: "missing ']'"}
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s[1:end]))
	if err != nil || !addr.Is4() {
		return Frame{}, &MalformedFrameError{Line: line, Reason: "invalid address"}
	}
	tokens := strings.Fields(s[end+1:])
	if len(tokens) == 0 {
		return Frame{}, &MalformedFrameError{Line: line, Reason: "empty payload"}
	}
	return Frame{Addr: addr.String(), Tokens: tokens}, nil
}

// String renders the frame in wire format without line terminator.
func (f Frame) String() string {
	return "[" + f.Addr + "] " + strings.Join(f.Tokens, " ")
}

// Command returns the first token.
func (f Frame) Command() string {
	if len(f.Tokens) == 0 {
		return ""
	}
	return f.Tokens[0]
}

// Args returns tokens after the command.
func (f Frame) Args() []string {
	if len(f.Tokens) < 2 {
		return nil
	}
	return f.Tokens[1:]
}

// IsBroadcast indicates the frame is sent to all nodes.
func (f Frame) IsBroadcast() bool {
	return f.Addr == BroadcastAddr
}

// AddressedTo checks whether a node with the address should act on the frame.
func (f Frame) AddressedTo(addr string) bool {
	return f.IsBroadcast() || (addr != "" && f.Addr == addr)
}
