package frontend

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes ev as a ninja.Status payload without its length prefix.
// Message always carries its level since an absent level means error.
func Marshal(ev Event) []byte {
	var (
		num  protowire.Number
		body []byte
	)
	switch e := ev.(type) {
	case TotalEdges:
		num = fieldTotalEdges
		body = appendVarintField(body, 1, uint64(e.Total))
	case BuildStarted:
		num = fieldBuildStarted
		body = appendVarintField(body, 1, uint64(e.Parallelism))
		body = appendVarintField(body, 2, protowire.EncodeBool(e.Verbose))
	case BuildFinished:
		num = fieldBuildFinished
	case EdgeStarted:
		num = fieldEdgeStarted
		body = appendVarintField(body, 1, uint64(e.ID))
		body = appendVarintField(body, 2, uint64(uint32(e.StartTimeMillis)))
		for _, id := range e.Inputs {
			body = appendVarintField(body, 3, uint64(id))
		}
		for _, id := range e.Outputs {
			body = appendVarintField(body, 4, uint64(id))
		}
		body = appendStringField(body, 5, e.Description)
		body = appendStringField(body, 6, e.Command)
		body = appendVarintField(body, 7, protowire.EncodeBool(e.Console))
	case EdgeFinished:
		num = fieldEdgeFinished
		body = appendVarintField(body, 1, uint64(e.ID))
		body = appendVarintField(body, 2, uint64(uint32(e.EndTimeMillis)))
		body = appendVarintField(body, 3, protowire.EncodeZigZag(int64(e.Status)))
		body = appendStringField(body, 4, e.Output)
	case Message:
		num = fieldMessage
		body = appendVarintField(body, 1, uint64(e.Level))
		body = appendStringField(body, 2, e.Text)
	default:
		panic(fmt.Sprintf("frontend: cannot marshal %T", ev))
	}
	b := protowire.AppendTag(nil, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// AppendFrame appends ev to b as a length-prefixed frame.
func AppendFrame(b []byte, ev Event) []byte {
	payload := Marshal(ev)
	b = protowire.AppendVarint(b, uint64(len(payload)))
	return append(b, payload...)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
