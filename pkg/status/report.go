package status

import (
	"github.com/golang/protobuf/proto"
)

// Role of the node in the fleet.
type Role int32

// Roles
const (
	RoleFollower   Role = 0
	RoleController Role = 1
)

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleController {
		return "controller"
	}
	return "follower"
}

// Report is a snapshot of the vehicle state.
type Report struct {
	// Duties of front-left, front-right, back-left and back-right.
	Duties     []uint32 `protobuf:"varint,1,rep,packed,name=duties,proto3" json:"duties,omitempty"`
	LeftSpeed  int32    `protobuf:"varint,2,opt,name=left_speed,proto3" json:"left_speed,omitempty"`
	RightSpeed int32    `protobuf:"varint,3,opt,name=right_speed,proto3" json:"right_speed,omitempty"`
	Role       Role     `protobuf:"varint,4,opt,name=role,proto3" json:"role,omitempty"`
	Moving     bool     `protobuf:"varint,5,opt,name=moving,proto3" json:"moving,omitempty"`
	// Timestamp in unix milliseconds.
	Timestamp int64 `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Report) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Report) Reset() { *m = Report{} }

// String implements proto.Message.
func (m *Report) String() string { return proto.CompactTextString(m) }

// Encode serializes the report.
func (m *Report) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeReport parses a serialized report.
func DecodeReport(data []byte) (*Report, error) {
	m := &Report{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NodeMeta describes a node, published as JSON.
type NodeMeta struct {
	ID          string            `json:"id"`
	Addr        string            `json:"addr,omitempty"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}
