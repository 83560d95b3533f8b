package frontend

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of ninja.Status (frontend.proto).
const (
	fieldTotalEdges    protowire.Number = 1
	fieldBuildStarted  protowire.Number = 2
	fieldBuildFinished protowire.Number = 3
	fieldEdgeStarted   protowire.Number = 4
	fieldEdgeFinished  protowire.Number = 5
	fieldMessage       protowire.Number = 6
)

var (
	errNoEvent        = errors.New("frame carries no event")
	errMultipleEvents = errors.New("frame carries more than one event")
)

type field struct {
	num   protowire.Number
	typ   protowire.Type
	v     uint64
	bytes []byte
}

// eachField walks the top-level fields of a message. Fields of wire types
// other than varint and length-delimited are skipped.
func eachField(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) wantType(typ protowire.Type) error {
	if f.typ != typ {
		return fmt.Errorf("field %d: wire type %d, want %d", f.num, f.typ, typ)
	}
	return nil
}

func (f field) uint32() (uint32, error) {
	if err := f.wantType(protowire.VarintType); err != nil {
		return 0, err
	}
	return uint32(f.v), nil
}

func (f field) bool() (bool, error) {
	if err := f.wantType(protowire.VarintType); err != nil {
		return false, err
	}
	return protowire.DecodeBool(f.v), nil
}

func (f field) sint32() (int32, error) {
	if err := f.wantType(protowire.VarintType); err != nil {
		return 0, err
	}
	return int32(protowire.DecodeZigZag(f.v & 0xffffffff)), nil
}

func (f field) string() (string, error) {
	if err := f.wantType(protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.bytes), nil
}

// appendUint32s accepts both the unpacked and the packed encoding of a
// repeated uint32.
func (f field) appendUint32s(dst []uint32) ([]uint32, error) {
	switch f.typ {
	case protowire.VarintType:
		return append(dst, uint32(f.v)), nil
	case protowire.BytesType:
		b := f.bytes
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return dst, fmt.Errorf("field %d: %w", f.num, protowire.ParseError(n))
			}
			dst = append(dst, uint32(v))
			b = b[n:]
		}
		return dst, nil
	default:
		return dst, fmt.Errorf("field %d: wire type %d, want repeated uint32", f.num, f.typ)
	}
}

func parseStatus(b []byte) (Event, error) {
	var (
		ev   Event
		seen = map[protowire.Number]bool{}
	)
	err := eachField(b, func(f field) error {
		if f.num < fieldTotalEdges || f.num > fieldMessage {
			return nil
		}
		if err := f.wantType(protowire.BytesType); err != nil {
			return err
		}
		var err error
		switch f.num {
		case fieldTotalEdges:
			ev, err = parseTotalEdges(f.bytes)
		case fieldBuildStarted:
			ev, err = parseBuildStarted(f.bytes)
		case fieldBuildFinished:
			ev = BuildFinished{}
		case fieldEdgeStarted:
			ev, err = parseEdgeStarted(f.bytes)
		case fieldEdgeFinished:
			ev, err = parseEdgeFinished(f.bytes)
		case fieldMessage:
			ev, err = parseMessage(f.bytes)
		}
		if err != nil {
			return fmt.Errorf("%T: %w", ev, err)
		}
		seen[f.num] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch len(seen) {
	case 0:
		return nil, errNoEvent
	case 1:
		return ev, nil
	default:
		return nil, errMultipleEvents
	}
}

func parseTotalEdges(b []byte) (ev TotalEdges, err error) {
	err = eachField(b, func(f field) (err error) {
		if f.num == 1 {
			ev.Total, err = f.uint32()
		}
		return err
	})
	return ev, err
}

func parseBuildStarted(b []byte) (ev BuildStarted, err error) {
	err = eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			ev.Parallelism, err = f.uint32()
		case 2:
			ev.Verbose, err = f.bool()
		}
		return err
	})
	return ev, err
}

func parseEdgeStarted(b []byte) (ev EdgeStarted, err error) {
	err = eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			ev.ID, err = f.uint32()
		case 2:
			var ms uint32
			ms, err = f.uint32()
			ev.StartTimeMillis = int64(ms)
		case 3:
			ev.Inputs, err = f.appendUint32s(ev.Inputs)
		case 4:
			ev.Outputs, err = f.appendUint32s(ev.Outputs)
		case 5:
			ev.Description, err = f.string()
		case 6:
			ev.Command, err = f.string()
		case 7:
			ev.Console, err = f.bool()
		}
		return err
	})
	return ev, err
}

func parseEdgeFinished(b []byte) (ev EdgeFinished, err error) {
	err = eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			ev.ID, err = f.uint32()
		case 2:
			var ms uint32
			ms, err = f.uint32()
			ev.EndTimeMillis = int64(ms)
		case 3:
			ev.Status, err = f.sint32()
		case 4:
			ev.Output, err = f.string()
		}
		return err
	})
	return ev, err
}

func parseMessage(b []byte) (ev Message, err error) {
	// frontend.proto declares [default = ERROR].
	ev.Level = LevelError
	err = eachField(b, func(f field) (err error) {
		switch f.num {
		case 1:
			var lvl uint32
			lvl, err = f.uint32()
			ev.Level = Level(lvl)
		case 2:
			ev.Text, err = f.string()
		}
		return err
	})
	return ev, err
}
