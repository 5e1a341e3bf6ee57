package cachesim

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// ErrInvalidTrace is returned for trace files that cannot be simulated.
var ErrInvalidTrace = errors.New("invalid trace file")

// headerLines is the number of lines before the first command.
const headerLines = 3

// Op is a trace command.
type Op byte

// Trace commands.
const (
	OpLoad          Op = 'l'
	OpStore         Op = 's'
	OpToggleVerbose Op = 'v'
	OpHitRate       Op = 'h'
	OpPrint         Op = 'p'
)

// Command is a single trace instruction. Address is only meaningful for
// loads and stores.
type Command struct {
	Op      Op
	Address int
	Line    int
}

// Trace is a parsed trace file.
type Trace struct {
	Cache    Config
	Type     string
	Commands []Command
}

// cacheTypes maps the header cache type to ways and replacement policy.
var cacheTypes = map[string]struct {
	ways   int
	policy Policy
}{
	"1":  {1, Random},
	"2r": {2, Random},
	"2l": {2, LRU},
	"4r": {4, Random},
	"4l": {4, LRU},
}

// LoadTrace reads and parses the trace file at path.
func LoadTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't find tracefile: %w", err)
	}
	defer f.Close()

	return ParseTrace(f)
}

// ParseTrace parses a trace: block count, block size and cache type header
// lines followed by one command per line. Only the first token of each
// header line is used. Blank command lines are skipped.
func ParseTrace(r io.Reader) (*Trace, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < headerLines {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidTrace)
	}

	header := make([]string, headerLines)
	for i := range header {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: empty header line %d", ErrInvalidTrace, i+1)
		}

		header[i] = fields[0]
	}

	blockCount, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("%w: block count: %w", ErrInvalidTrace, err)
	}

	blockSize, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("%w: block size: %w", ErrInvalidTrace, err)
	}

	kind, ok := cacheTypes[header[2]]
	if !ok {
		return nil, fmt.Errorf("%w: invalid cache type: %s", ErrInvalidTrace, header[2])
	}

	trace := &Trace{
		Cache: Config{
			BlockCount: blockCount,
			BlockSize:  blockSize,
			Ways:       kind.ways,
			Policy:     kind.policy,
		},
		Type: header[2],
	}

	for i, line := range lines[headerLines:] {
		lineNum := i + headerLines + 1

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, err := parseCommand(fields, lineNum)
		if err != nil {
			return nil, err
		}

		trace.Commands = append(trace.Commands, cmd)
	}

	return trace, nil
}

func parseCommand(fields []string, lineNum int) (Command, error) {
	if len(fields[0]) != 1 || !strings.Contains("lsvhp", fields[0]) {
		return Command{}, fmt.Errorf("%w: command %q on line %d is incorrect",
			ErrInvalidTrace, fields[0], lineNum)
	}

	cmd := Command{Op: Op(fields[0][0]), Line: lineNum}

	if cmd.Op != OpLoad && cmd.Op != OpStore {
		return cmd, nil
	}

	if len(fields) < 2 || !startsWithDigit(fields[1]) {
		return Command{}, fmt.Errorf("%w: command %q on line %d needs an address",
			ErrInvalidTrace, fields[0], lineNum)
	}

	addr, err := strconv.Atoi(fields[1])
	if err != nil {
		return Command{}, fmt.Errorf("%w: address on line %d: %w",
			ErrInvalidTrace, lineNum, err)
	}

	cmd.Address = addr

	return cmd, nil
}

func startsWithDigit(s string) bool {
	return s != "" && unicode.IsDigit(rune(s[0]))
}
