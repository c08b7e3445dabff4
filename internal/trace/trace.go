// Package trace reads, writes, generates and replays allocation traces.
//
// A trace file starts with four header numbers, one per line (suggested heap
// size, number of ids, number of ops, weight), followed by one op per line:
//
//	a <id> <bytes>   allocate
//	r <id> <bytes>   resize
//	f <id>           release
//
// Blank lines and lines starting with '#' are ignored.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformed indicates a trace that does not follow the file format.
var ErrMalformed = errors.New("trace: malformed")

// maxPrealloc bounds the op slice reserved from the header's op count.
const maxPrealloc = 1 << 16

// OpKind identifies a trace operation.
type OpKind byte

const (
	OpAlloc  OpKind = 'a'
	OpResize OpKind = 'r'
	OpFree   OpKind = 'f'
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpResize:
		return "resize"
	case OpFree:
		return "free"
	default:
		return fmt.Sprintf("OpKind(%q)", byte(k))
	}
}

// Op is one trace line.
type Op struct {
	Kind OpKind
	ID   int
	Size int // unused for OpFree
}

// Trace is a parsed trace file.
type Trace struct {
	Name          string
	SuggestedHeap int
	NumIDs        int
	Weight        int
	Ops           []Op
}

// ParseFile reads and parses the trace at path. The trace is named after the
// file.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// Parse reads a trace. The declared op count must match the ops present and
// every id must be below the declared id count.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	t := &Trace{}
	var header [4]int
	nHeader := 0
	numOps := 0
	line := 0

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if nHeader < len(header) {
			v, err := strconv.Atoi(text)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: line %d: header value %q", ErrMalformed, line, text)
			}
			header[nHeader] = v
			nHeader++
			if nHeader == len(header) {
				t.SuggestedHeap, t.NumIDs, numOps, t.Weight = header[0], header[1], header[2], header[3]
				// the declared count is untrusted; it is checked after parsing
				t.Ops = make([]Op, 0, min(numOps, maxPrealloc))
			}
			continue
		}

		op, err := parseOp(text, t.NumIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		t.Ops = append(t.Ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	if nHeader < len(header) {
		return nil, fmt.Errorf("%w: header has %d of 4 values", ErrMalformed, nHeader)
	}
	if len(t.Ops) != numOps {
		return nil, fmt.Errorf("%w: header declares %d ops, found %d", ErrMalformed, numOps, len(t.Ops))
	}
	return t, nil
}

func parseOp(text string, numIDs int) (Op, error) {
	fields := strings.Fields(text)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("unknown op %q", fields[0])
	}

	op := Op{Kind: OpKind(fields[0][0])}
	want := 3
	switch op.Kind {
	case OpAlloc, OpResize:
	case OpFree:
		want = 2
	default:
		return Op{}, fmt.Errorf("unknown op %q", fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%s takes %d fields, got %d", op.Kind, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 || id >= numIDs {
		return Op{}, fmt.Errorf("id %q outside [0,%d)", fields[1], numIDs)
	}
	op.ID = id

	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, fmt.Errorf("size %q", fields[2])
		}
		op.Size = size
	}
	return op, nil
}

// Write encodes t in the trace file format.
func (t *Trace) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", t.SuggestedHeap, t.NumIDs, len(t.Ops), t.Weight)
	for _, op := range t.Ops {
		if op.Kind == OpFree {
			fmt.Fprintf(bw, "%c %d\n", op.Kind, op.ID)
			continue
		}
		fmt.Fprintf(bw, "%c %d %d\n", op.Kind, op.ID, op.Size)
	}
	return bw.Flush()
}

// WriteFile writes t to path, replacing any existing file.
func (t *Trace) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write trace: %w", err)
	}
	return f.Close()
}
